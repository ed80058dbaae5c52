// Package store defines the command layer of the engine: the IStore interface with the
// string commands of a Redis-compatible server and a structured error type.
//
// Key Components:
//
//   - IStore Interface: one method per command (SET, GET, APPEND, INCRBY, GETRANGE,
//     SETRANGE, STRLEN, DEL, EXISTS, PEXPIREAT, PTTL, PERSIST, DBSIZE, FLUSHDB, FLUSHALL).
//     Each method is one atomic command against a db.Database: it obtains the value
//     through the database, runs one value operation and releases it.
//
//   - Error System: failed commands return *Error with a RetCode. Value level failures
//     map to RetCNotAnInteger and RetCOutOfRange, command level checks to
//     RetCInvalidDBIndex, RetCValueTooLarge and RetCInvalidOperation. A protocol layer
//     translates these codes into error replies.
//
//   - DBFactory: abstracts the creation of the underlying db.Database.
//
// Implementations:
//
//	- Local Store (lstore): serializes commands with one mutex per database index and
//	  runs the active expire cycle in the background.
//	  Available in the "github.com/XiaonuoGantan/rsedis/lib/store/lstore" package.
package store
