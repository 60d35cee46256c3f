package tid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidString is returned when a string does not encode a valid TID.
var ErrInvalidString = errors.New("invalid TID string")

const (
	// maxBase36Len is the longest base-36 string accepted by FromString.
	maxBase36Len = 11

	// minBase10Len is the shortest all-digit string read as base-10.
	minBase10Len = 12

	cosmeticWidth = 8
)

// ToBase36 returns the uppercase base-36 form of t.
func ToBase36(t int64) string {
	return strings.ToUpper(strconv.FormatInt(t, 36))
}

// ToBase36String returns the cosmetic form of t: the base-36 string
// left-padded with zeros to 8 characters, with a dash before the last 4.
//
//	ToBase36String(1735941183123) == "M5HA-K5G3"
//	ToBase36String(1281232313)    == "00L6-T96H"
func ToBase36String(t int64) string {
	s := ToBase36(t)
	if len(s) < cosmeticWidth {
		s = strings.Repeat("0", cosmeticWidth-len(s)) + s
	}
	dash := len(s) - 4
	return s[:dash] + "-" + s[dash:]
}

// FromString decodes a TID from its base-36 or base-10 form.
//
// Dashes, dots and whitespace are ignored. A string of 12 or more decimal
// digits is decoded as base-10; any other string must be at most 11
// alphanumeric characters and is decoded as base-36 (case-insensitive).
func FromString(s string) (int64, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', ' ', '\n', '\t', '\r':
			return -1
		}
		return r
	}, s)
	if clean == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidString, s)
	}

	if len(clean) >= minBase10Len && allDigits(clean) {
		t, err := strconv.ParseInt(clean, 10, 64)
		if err != nil || !Valid(t) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidString, s)
		}
		return t, nil
	}

	if len(clean) > maxBase36Len || !allAlphanumeric(clean) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidString, s)
	}
	t, err := strconv.ParseInt(clean, 36, 64)
	if err != nil || !Valid(t) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidString, s)
	}
	return t, nil
}

// ToHex returns the uppercase hexadecimal form of t.
func ToHex(t int64) string {
	return strings.ToUpper(strconv.FormatInt(t, 16))
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func allAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}
