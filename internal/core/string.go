package core

import (
	"fmt"
	"strconv"
	"strings"

	"oovm-go/internal/arena"
)

// StringData is an immutable, sized byte buffer with a cached hash (spec
// §3.3 "String"). The backing bytes are drawn from the shared arena
// rather than ordinary Go allocation, since a String's payload is exactly
// the kind of fixed-size, manually-lifetimed buffer the arena exists for.
type StringData struct {
	bytes []byte
	hash  uint32
	valid bool
	a     *arena.Arena
}

// NewStringData copies s into an arena-backed buffer.
func NewStringData(a *arena.Arena, s string) (*StringData, error) {
	buf, err := a.Alloc(len(s), false)
	if err != nil {
		return nil, err
	}
	copy(buf, s)
	return &StringData{bytes: buf, a: a}, nil
}

func (s *StringData) KindName() string  { return "string" }
func (s *StringData) Trace(func(*Cell)) {}
func (s *StringData) Finalize() {
	if s.a != nil && len(s.bytes) > 0 {
		s.a.Free(s.bytes, len(s.bytes))
		s.bytes = nil
	}
}

// String returns the Go string view of the bytes.
func (s *StringData) String() string { return string(s.bytes) }

// Len returns the byte length.
func (s *StringData) Len() int { return len(s.bytes) }

// Hash returns the FNV-1a hash of the contents, caching it. Spec
// invariant §8.6: equal strings must hash equal, which holds here because
// the hash is a pure function of the bytes.
func (s *StringData) Hash() uint32 {
	if s.valid {
		return s.hash
	}
	var h uint32 = 2166136261
	for _, b := range s.bytes {
		h ^= uint32(b)
		h *= 16777619
	}
	s.hash = h
	s.valid = true
	return h
}

// Equal reports byte-for-byte equality.
func (s *StringData) Equal(o *StringData) bool {
	return string(s.bytes) == string(o.bytes)
}

// SliceNormalize resolves a (offset, length) pair against a buffer of
// size n the way every String/Array/ByteArray slice operation must (spec
// §4.D and testable property §8.4):
//
//	negative offset wraps from the end;
//	negative length means "length bytes ending at offset" — offset is
//	decremented by |length| and length is negated;
//	the resulting range must lie within [0, n].
func SliceNormalize(offset, length, n int) (int, int, bool) {
	if offset < 0 {
		offset += n
	}
	if length < 0 {
		offset += length
		length = -length
	}
	if offset < 0 || length < 0 || offset+length > n || offset > n {
		return 0, 0, false
	}
	return offset, length, true
}

// Slice returns the substring described by (offset, length) after
// SliceNormalize, or an error matching spec's system.index-range.
func (s *StringData) Slice(offset, length int) (string, error) {
	ofs, ln, ok := SliceNormalize(offset, length, len(s.bytes))
	if !ok {
		return "", fmt.Errorf("%w: string slice(%d, %d) out of range for length %d", ErrIndexRange, offset, length, len(s.bytes))
	}
	return string(s.bytes[ofs : ofs+ln]), nil
}

// ParseInteger implements String#Integer (spec §9 supplemented feature 1,
// original_source's prefix-sniffing integer scan): an explicit base
// always wins; with no explicit base, "0x"/"0X" selects hex, "0b"/"0B"
// selects binary, a bare leading "0" on a string longer than one
// character selects octal, otherwise decimal. A leading '-' disables
// prefix sniffing and forces base 10 over the remaining digits (Open
// Question 1 in spec §9 is resolved this way).
func (s *StringData) ParseInteger(base int) (int64, error) {
	str := strings.TrimSpace(string(s.bytes))
	if str == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidValue)
	}
	if strings.HasPrefix(str, "-") {
		v, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return v, nil
	}
	if base != 0 {
		v, err := strconv.ParseInt(str, base, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return v, nil
	}
	switch {
	case strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X"):
		v, err := strconv.ParseUint(str[2:], 16, 64)
		return int64(v), wrapParse(err)
	case strings.HasPrefix(str, "0b") || strings.HasPrefix(str, "0B"):
		v, err := strconv.ParseUint(str[2:], 2, 64)
		return int64(v), wrapParse(err)
	case len(str) > 1 && str[0] == '0':
		v, err := strconv.ParseUint(str[1:], 8, 64)
		return int64(v), wrapParse(err)
	default:
		v, err := strconv.ParseInt(str, 10, 64)
		return v, wrapParse(err)
	}
}

// StringOf returns o's StringData payload, or nil if o is not a String.
func StringOf(o *Object) *StringData {
	if o == nil {
		return nil
	}
	sd, _ := o.Payload.(*StringData)
	return sd
}

// NewString constructs a String object over an arena-backed copy of s.
func (h *Heap) NewString(class *Object, s string) (*Object, error) {
	sd, err := NewStringData(h.Arena, s)
	if err != nil {
		return nil, err
	}
	return h.NewObject(class, sd, len(s)), nil
}

func wrapParse(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidValue, err)
}
