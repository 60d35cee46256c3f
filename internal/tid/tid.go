package tid

import (
	"time"
)

// Max is the largest valid TID, 36^11 - 1, the largest value whose base-36
// form fits in 11 characters. It is far below the 2^60 limit of the UUID
// timestamp field.
const Max int64 = 131621703842267135

// Valid reports whether t is in the range of valid TIDs.
func Valid(t int64) bool {
	return t > 0 && t <= Max
}

// ToTime returns the creation time encoded in t.
func ToTime(t int64) time.Time {
	return time.UnixMilli(t)
}

// ToUnix returns the creation time of t as whole seconds since the epoch.
func ToUnix(t int64) int64 {
	return t / 1000
}

// FromTime returns the TID a generator would produce at time tm,
// absent collisions.
func FromTime(tm time.Time) int64 {
	return tm.UnixMilli()
}
