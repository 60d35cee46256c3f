package tid

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// NodeID is the 48-bit node value stamped into every TID-equivalent UUID.
// It must never change: doing so breaks the equivalence for stored UUIDs.
const NodeID int64 = 47103254751

// ToUUID returns the version-1 UUID equivalent to t.
//
// The TID occupies the UUID's 60-bit timestamp field, the clock sequence is
// zero and the node is NodeID.
func ToUUID(t int64) (uuid.UUID, error) {
	if !Valid(t) {
		return uuid.Nil, fmt.Errorf("tid %d has no UUID equivalent", t)
	}
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], uint32(t))
	binary.BigEndian.PutUint16(u[4:6], uint16(t>>32))
	binary.BigEndian.PutUint16(u[6:8], uint16(t>>48)&0x0fff|0x1000)
	u[8] = 0x80 // RFC 4122 variant, clock sequence 0
	u[9] = 0x00
	var node [8]byte
	binary.BigEndian.PutUint64(node[:], uint64(NodeID))
	copy(u[10:], node[2:])
	return u, nil
}

// FromUUID returns the TID equivalent to u. It fails for UUIDs that were
// not produced by ToUUID.
func FromUUID(u uuid.UUID) (int64, error) {
	if u.Version() != 1 || u.Variant() != uuid.RFC4122 {
		return 0, fmt.Errorf("uuid %s is not a TID equivalent: wrong version or variant", u)
	}
	var node [8]byte
	copy(node[2:], u.NodeID())
	if int64(binary.BigEndian.Uint64(node[:])) != NodeID {
		return 0, fmt.Errorf("uuid %s is not a TID equivalent: foreign node", u)
	}
	if u.ClockSequence() != 0 {
		return 0, fmt.Errorf("uuid %s is not a TID equivalent: non-zero clock sequence", u)
	}
	t := int64(u.Time())
	if !Valid(t) {
		return 0, fmt.Errorf("uuid %s encodes invalid tid %d", u, t)
	}
	return t, nil
}
