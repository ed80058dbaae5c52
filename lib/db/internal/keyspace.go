package internal

import (
	"github.com/XiaonuoGantan/rsedis/lib/db/util"
	"github.com/XiaonuoGantan/rsedis/lib/value"
)

// --------------------------------------------------------------------------
// Keyspace Type (one logical database)
// --------------------------------------------------------------------------

// Keyspace holds the entries of one database index and their absolute expirations.
// A key without an item in Expires never expires.
//
// Thread-safety: This type is not thread-safe.
type Keyspace struct {
	Entries map[string]*value.Value // Map of stored values
	Expires *util.MapHeap[string]   // Absolute expiration (ms) per key, earliest first
}

// NewKeyspace creates an empty keyspace
func NewKeyspace() *Keyspace {
	return &Keyspace{
		Entries: make(map[string]*value.Value),
		Expires: util.NewMapHeap[string](),
	}
}

// IsExpired returns whether the key has an expiration that is not strictly in the future
func (ks *Keyspace) IsExpired(key string, nowMs int64) bool {
	at, ok := ks.Expires.GetByKey(key)
	return ok && at <= nowMs
}

// Lookup returns the entry for key if it exists and is not expired.
// visible is true for such an entry, stale is true if an entry exists physically but is expired.
func (ks *Keyspace) Lookup(key string, nowMs int64) (v *value.Value, visible bool, stale bool) {
	v, ok := ks.Entries[key]
	if !ok {
		return nil, false, false
	}
	if ks.IsExpired(key, nowMs) {
		return nil, false, true
	}
	return v, true, false
}

// Drop removes the entry and the expiration of a key
func (ks *Keyspace) Drop(key string) {
	delete(ks.Entries, key)
	ks.Expires.RemoveByKey(key)
}
