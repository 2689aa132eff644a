// Package names implements the fixed-width packed name encoding used to
// identify accounts and stored files. A name is up to 12 characters drawn
// from the alphabet ".12345abcdefghijklmnopqrstuvwxyz", packed 5 bits per
// character into a uint64 with the first character in the most significant
// group. The low 4 bits are reserved for an optional 13th character drawn
// from the first 16 symbols of the alphabet.
//
// Because short names leave trailing all-zero groups, a zero group by itself
// does not mean the name contains a dot. HasVisibleDot tells real embedded
// separators apart from that padding.
package names

import (
	"errors"
	"strings"
)

// Name is a packed name value. The zero value is the empty name.
type Name uint64

const alphabet = ".12345abcdefghijklmnopqrstuvwxyz"

// MaxLength is the longest representable name, using the reserved low
// nibble for the 13th character.
const MaxLength = 13

var (
	// ErrTooLong means the name has more than 13 characters.
	ErrTooLong = errors.New("name is longer than 13 characters")

	// ErrBadChar means the name contains a character outside of
	// ".12345a-z", or a 13th character outside of ".12345a-j".
	ErrBadChar = errors.New("name contains an invalid character")

	// ErrLeadingDot means the name begins with a separator. Such names
	// would have an ambiguous suffix, so they are rejected outright.
	ErrLeadingDot = errors.New("name begins with a dot")
)

// symbol returns the 5-bit value for c, or -1 if c is not valid.
func symbol(c byte) int {
	switch {
	case c == '.':
		return 0
	case c >= '1' && c <= '5':
		return int(c-'1') + 1
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 6
	}
	return -1
}

// Parse converts the string form of a name to its packed value.
// Trailing dots are padding and are dropped, so Parse("abc.") yields the
// same value as Parse("abc").
func Parse(s string) (Name, error) {
	if len(s) > MaxLength {
		return 0, ErrTooLong
	}
	if len(s) > 0 && s[0] == '.' {
		return 0, ErrLeadingDot
	}
	var value uint64
	for i := 0; i < len(s); i++ {
		sym := symbol(s[i])
		if sym < 0 {
			return 0, ErrBadChar
		}
		if i < 12 {
			value |= uint64(sym) << uint(64-5*(i+1))
			continue
		}
		// 13th character lives in the low nibble
		if sym > 0x0f {
			return 0, ErrBadChar
		}
		value |= uint64(sym)
	}
	return Name(value), nil
}

// MustParse is Parse except it panics on a malformed name. Intended for
// tests and compile-time constants.
func MustParse(s string) Name {
	n, err := Parse(s)
	if err != nil {
		panic("names: " + s + ": " + err.Error())
	}
	return n
}

// String returns the text form of the name, with any trailing padding
// removed.
func (n Name) String() string {
	var b [MaxLength]byte
	for i := 0; i < 12; i++ {
		sym := (uint64(n) >> uint(64-5*(i+1))) & 0x1f
		b[i] = alphabet[sym]
	}
	b[12] = alphabet[uint64(n)&0x0f]
	return strings.TrimRight(string(b[:]), ".")
}

// Length is the number of significant characters in the name, that is, the
// position just after the last non-pad symbol.
func (n Name) Length() int {
	length := 0
	for i := 0; i < 12; i++ {
		if (uint64(n)>>uint(64-5*(i+1)))&0x1f != 0 {
			length = i + 1
		}
	}
	if uint64(n)&0x0f != 0 {
		length = 13
	}
	return length
}

// Empty reports whether the name has no characters.
func (n Name) Empty() bool { return n == 0 }

// HasVisibleDot reports whether the encoded name value contains a real
// embedded separator. It inspects only the declared character positions of
// the name, skipping position zero, so the trailing all-zero pad groups of
// a short name are never mistaken for dots. The reserved low nibble cannot
// hold a separator and is not inspected.
func HasVisibleDot(value uint64, length int) bool {
	if length > 12 {
		length = 12
	}
	for i := 1; i < length; i++ {
		if (value>>uint(64-5*(i+1)))&0x1f == 0 {
			return true
		}
	}
	return false
}

// HasDot reports whether the name contains a visible separator.
func (n Name) HasDot() bool {
	return HasVisibleDot(uint64(n), n.Length())
}

// MarshalText encodes the name as its string form, so JSON documents stay
// readable.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText decodes a name from its string form.
func (n *Name) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// Suffix returns the name following the final visible separator. A name
// with no separator is its own suffix.
func (n Name) Suffix() Name {
	s := n.String()
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return n
	}
	// the substring is a valid name whenever n is
	suffix, err := Parse(s[i+1:])
	if err != nil {
		return 0
	}
	return suffix
}
