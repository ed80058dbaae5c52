package value

import (
	"errors"
	"math"
	"strconv"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrNotAnInteger is returned by Incr when the content is not the canonical decimal form of an int64
	ErrNotAnInteger = errors.New("value is not an integer")
	// ErrOutOfRange is returned by Incr when the result would overflow an int64
	ErrOutOfRange = errors.New("increment or decrement would overflow")
	// ErrTooLarge is returned by SetRange when the result cannot be addressed as a byte slice
	ErrTooLarge = errors.New("string exceeds maximum allowed size")
)

// --------------------------------------------------------------------------
// Kind (the variant tag)
// --------------------------------------------------------------------------

type Kind uint8

const (
	KindNil Kind = iota
	KindData
	KindInteger
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "Nil"
	case KindData:
		return "Data"
	case KindInteger:
		return "Integer"
	default:
		return "Unknown"
	}
}

// maxInt64Digits is the length of "-9223372036854775808"
const maxInt64Digits = 20

// --------------------------------------------------------------------------
// Value Type
// --------------------------------------------------------------------------

// Value is the content of one key of the string type.
// Exactly one of the variants is active, selected by kind:
//   - KindNil: no content, behaves like an empty byte string
//   - KindData: raw bytes owned by the value
//   - KindInteger: an int64 whose decimal rendering is the logical content
//
// The zero Value is Nil.
//
// Thread-safety: Value is not safe for concurrent use. The owner (db.Database) hands out
// a single mutable handle and the caller serializes access.
type Value struct {
	kind    Kind
	data    []byte
	integer int64
}

// Nil returns the empty placeholder value
func Nil() Value {
	return Value{}
}

// Data returns a raw byte value. The bytes are copied.
func Data(b []byte) Value {
	return Value{kind: KindData, data: cloneBytes(b)}
}

// Integer returns an integer value
func Integer(n int64) Value {
	return Value{kind: KindInteger, integer: n}
}

// Kind returns the active variant
func (v *Value) Kind() Kind {
	return v.kind
}

// Bytes returns the canonical bytes of the value.
// Integers are rendered as decimal ASCII, Nil yields an empty slice.
// The returned slice must not be modified by the caller.
func (v *Value) Bytes() []byte {
	switch v.kind {
	case KindData:
		return v.data
	case KindInteger:
		return strconv.AppendInt(make([]byte, 0, maxInt64Digits), v.integer, 10)
	default:
		return []byte{}
	}
}

// Int returns the integer view of the value.
// Nil counts as 0, Data is accepted only in canonical decimal form.
func (v *Value) Int() (int64, bool) {
	switch v.kind {
	case KindNil:
		return 0, true
	case KindInteger:
		return v.integer, true
	default:
		return parseCanonical(v.data)
	}
}

// Len returns the length of the canonical bytes
func (v *Value) Len() int {
	switch v.kind {
	case KindData:
		return len(v.data)
	case KindInteger:
		return decimalLen(v.integer)
	default:
		return 0
	}
}

// Equal reports whether both values hold the same variant and content
func (v *Value) Equal(other *Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindData:
		return string(v.data) == string(other.data)
	case KindInteger:
		return v.integer == other.integer
	default:
		return true
	}
}

func (v *Value) String() string {
	switch v.kind {
	case KindData:
		return "Data(" + strconv.Quote(string(v.data)) + ")"
	case KindInteger:
		return "Integer(" + strconv.FormatInt(v.integer, 10) + ")"
	default:
		return "Nil"
	}
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// Set replaces the content. Canonical integers are stored as Integer, anything else as Data.
func (v *Value) Set(b []byte) {
	if n, ok := parseCanonical(b); ok {
		*v = Integer(n)
		return
	}
	*v = Data(b)
}

// Append concatenates b to the current content and returns the new length.
// The result is always Data, even if it looks like an integer.
func (v *Value) Append(b []byte) int {
	switch v.kind {
	case KindData:
		v.data = append(v.data, b...)
	default:
		current := v.Bytes()
		buf := make([]byte, 0, len(current)+len(b))
		buf = append(buf, current...)
		buf = append(buf, b...)
		*v = Value{kind: KindData, data: buf}
	}
	return len(v.data)
}

// Incr adds delta to the integer view of the value and stores the result as Integer.
// On error the value is left unchanged.
func (v *Value) Incr(delta int64) (int64, error) {
	n, ok := v.Int()
	if !ok {
		return 0, ErrNotAnInteger
	}

	sum := n + delta
	// signed overflow: both operands share a sign that the result does not
	if (delta > 0 && sum < n) || (delta < 0 && sum > n) {
		return 0, ErrOutOfRange
	}

	*v = Integer(sum)
	return sum, nil
}

// GetRange returns a copy of the inclusive byte range [start, end] of the canonical bytes.
// Negative indexes count from the end (-1 is the last byte). end is clamped to the last
// byte, start is not, so a start beyond the last byte yields an empty slice.
func (v *Value) GetRange(start, end int64) []byte {
	b := v.Bytes()
	length := int64(len(b))
	if length == 0 {
		return []byte{}
	}

	if start < 0 {
		start = length + start
	}
	if end < 0 {
		end = length + end
	}
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	if end >= length {
		end = length - 1
	}
	if start > end {
		return []byte{}
	}

	return cloneBytes(b[start : end+1])
}

// SetRange overwrites the content starting at offset with b and returns the new length.
// A gap between the old length and offset is filled with zero bytes.
// The result is always Data. An empty b leaves the value untouched.
// If offset+len(b) exceeds math.MaxInt, ErrTooLarge is returned and the value is unchanged.
func (v *Value) SetRange(offset uint64, b []byte) (int, error) {
	if len(b) == 0 {
		return v.Len(), nil
	}
	if offset > uint64(math.MaxInt)-uint64(len(b)) {
		return v.Len(), ErrTooLarge
	}

	var buf []byte
	if v.kind == KindData {
		buf = v.data
	} else {
		buf = cloneBytes(v.Bytes())
	}

	end := offset + uint64(len(b))
	if end > uint64(len(buf)) {
		if end <= uint64(cap(buf)) {
			old := len(buf)
			buf = buf[:end]
			clear(buf[old:])
		} else {
			grown := make([]byte, end)
			copy(grown, buf)
			buf = grown
		}
	}
	copy(buf[offset:], b)

	*v = Value{kind: KindData, data: buf}
	return len(buf), nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseCanonical parses b as an int64 only if rendering the result yields b again.
// This rejects "+1", "01", "-0", " 1" and similar.
func parseCanonical(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > maxInt64Digits {
		return 0, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	if decimalLen(n) != len(b) {
		return 0, false
	}
	return n, true
}

// decimalLen returns the number of bytes of the decimal rendering of n
func decimalLen(n int64) int {
	if n == 0 {
		return 1
	}
	l := 0
	u := uint64(n)
	if n < 0 {
		l = 1
		u = uint64(-(n + 1)) + 1
	}
	for u > 0 {
		l++
		u /= 10
	}
	return l
}

func cloneBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
