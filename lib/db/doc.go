// Package db implements the multi-database keyspace of the engine.
//
// A Database is an indexed collection of independent keyspaces (one per database index,
// as selected with SELECT). Every keyspace maps key bytes to an owned value.Value and keeps
// an auxiliary index of absolute expirations in milliseconds since the Unix epoch.
//
// Visibility:
//
//	A key is visible iff it has an entry AND (no expiration OR an expiration strictly in
//	the future of the Clock at the moment of the check). Expired entries may still exist
//	physically; they behave as absent for every operation:
//	  - Get, Expiration, DBSize and GetInfo skip them without changing state
//	  - GetOrCreate replaces them with a fresh Nil value and clears the expiration
//	  - Remove drops them and reports the key as absent
//
// Key lifecycle:
//
//	Absent -(GetOrCreate)-> Present(Nil) -(value ops)-> Present(Data|Integer)
//	Present -(Remove | expiration elapses)-> Absent
//
// Mutation goes through GetOrCreate, which returns the single handle to a key's value.
// The caller performs value.Value operations on it directly:
//
//	database := db.New(nil)
//	n, err := database.GetOrCreate(0, []byte("counter")).Incr(1)
//	database.SetMsExpiration(0, []byte("counter"), util.MsTime()+10_000)
//
// Concurrency:
//
//	Database does no locking of its own. Different database indexes may be used from
//	different goroutines (the keyspace directory is a concurrent map), but all calls for
//	the same index must be serialized by the caller, e.g. with a per-database mutex as
//	lstore does. A handle returned by GetOrCreate must not be held across unrelated work.
//
// Active expiration:
//
//	ActiveExpireCycle removes expired entries earliest-first with a budget. It is never
//	run by the Database itself; see lstore for a ticker driven sweep.
package db
