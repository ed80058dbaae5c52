// Package value implements the content of a single key of the string data type.
//
// A Value is a closed variant over three representations:
//
//   - Nil: the placeholder created for a key that was just materialized. It behaves like
//     an empty byte string for Len, Append, GetRange and SetRange.
//   - Data: an owned, arbitrary byte sequence.
//   - Integer: a signed 64-bit integer. A value is stored as Integer only when its bytes are
//     exactly the canonical decimal rendering of an int64 (no leading zeros, no '+', no "-0").
//
// Set is the only operation that derives Integer from bytes. Append and SetRange always
// produce Data, Incr always produces Integer. Incr fails with ErrNotAnInteger for non-numeric
// content and with ErrOutOfRange on overflow, leaving the value unchanged in both cases.
//
// GetRange follows the inclusive, negative-indexed substring convention of GETRANGE:
//
//	v := value.Integer(123)
//	v.GetRange(0, -1)    // "123"
//	v.GetRange(-100, -2) // "12"
//	v.GetRange(1, 1)     // "2"
//
// A Value knows nothing about keys, databases or expiration; those belong to package db.
package value
