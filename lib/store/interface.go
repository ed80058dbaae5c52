package store

import (
	"fmt"

	"github.com/XiaonuoGantan/rsedis/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() *db.Database

// IStore is the command layer on top of a db.Database: the string commands of a
// Redis-compatible server, addressed by database index.
// Every method runs to completion as one atomic command.
// Failures are returned as *Error, absence is reported by the boolean results.
type IStore interface {
	// Set stores the value (SET) and removes a previous expiration.
	Set(dbIndex uint32, key, value []byte) (err error)
	// SetPX stores the value and sets an absolute expiration in ms (SET ... PXAT).
	SetPX(dbIndex uint32, key, value []byte, atMs int64) (err error)
	// Get returns the value of a key (GET). The returned slice is a copy.
	Get(dbIndex uint32, key []byte) (value []byte, loaded bool, err error)
	// Append appends to the value of a key and returns the new length (APPEND).
	Append(dbIndex uint32, key, value []byte) (length int, err error)
	// IncrBy adds delta to the integer value of a key (INCR, INCRBY, DECR, DECRBY).
	IncrBy(dbIndex uint32, key []byte, delta int64) (result int64, err error)
	// GetRange returns the inclusive byte range [start, end] of a value (GETRANGE).
	GetRange(dbIndex uint32, key []byte, start, end int64) (value []byte, err error)
	// SetRange overwrites part of a value starting at offset and returns the new length (SETRANGE).
	SetRange(dbIndex uint32, key []byte, offset int64, value []byte) (length int, err error)
	// StrLen returns the length of a value, 0 for absent keys (STRLEN).
	StrLen(dbIndex uint32, key []byte) (length int, err error)
	// Delete removes a key and reports whether it existed (DEL).
	Delete(dbIndex uint32, key []byte) (deleted bool, err error)
	// Exists reports whether a key is visible (EXISTS).
	Exists(dbIndex uint32, key []byte) (loaded bool, err error)
	// PExpireAt sets the absolute expiration in ms of an existing key (PEXPIREAT).
	PExpireAt(dbIndex uint32, key []byte, atMs int64) (ok bool, err error)
	// PTTL returns the remaining time to live in ms, -2 for absent keys and -1 for keys without expiration (PTTL).
	PTTL(dbIndex uint32, key []byte) (ttl int64, err error)
	// Persist removes the expiration of a key (PERSIST).
	Persist(dbIndex uint32, key []byte) (ok bool, err error)
	// DBSize returns the number of keys of a database (DBSIZE).
	DBSize(dbIndex uint32) (size int, err error)
	// FlushDB removes all keys of a database (FLUSHDB).
	FlushDB(dbIndex uint32) (err error)
	// FlushAll removes all keys of all databases (FLUSHALL).
	FlushAll() (err error)
	// GetDBInfo returns metadata about the database underlying the store.
	GetDBInfo() (info db.DatabaseInfo, err error)
	// Close releases background resources of the store.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// IsCode reports whether err is an *Error with the given code
func IsCode(err error, code RetCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCInvalidOperation                // 2: Invalid operation or argument.
	RetCNotAnInteger                    // 3: Value is not an integer.
	RetCOutOfRange                      // 4: Increment or decrement would overflow.
	RetCInvalidDBIndex                  // 5: Database index is out of range.
	RetCValueTooLarge                   // 6: Result would exceed the max value size.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNotAnInteger:
		return "NotAnInteger"
	case RetCOutOfRange:
		return "OutOfRange"
	case RetCInvalidDBIndex:
		return "InvalidDBIndex"
	case RetCValueTooLarge:
		return "ValueTooLarge"
	default:
		return "Unknown"
	}
}
