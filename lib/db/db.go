package db

import (
	"slices"
	"sync/atomic"

	"github.com/XiaonuoGantan/rsedis/lib/db/internal"
	"github.com/XiaonuoGantan/rsedis/lib/db/util"
	"github.com/XiaonuoGantan/rsedis/lib/value"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Core Database structure
// --------------------------------------------------------------------------

// Database is a collection of independent keyspaces, one per database index.
// Each keyspace maps key bytes to an owned value.Value plus an optional absolute
// expiration in milliseconds since the Unix epoch.
//
// A key is visible iff it has an entry and no expiration, or an expiration strictly in
// the future. Expiration is checked lazily on every access, there is no background task.
type Database struct {
	keyspaces   *xsync.MapOf[uint32, *internal.Keyspace] // Materialized keyspaces by index
	clock       util.Clock                               // Time source for expirations
	expiredKeys atomic.Uint64                            // Expired entries physically removed
}

// Options configures the Database during initialization
type Options struct {
	Clock util.Clock // Time source (nil = util.MsTime)
}

// DefaultOptions returns the default Database options
func DefaultOptions() *Options {
	return &Options{
		Clock: util.MsTime,
	}
}

// New creates an empty Database with the specified options (optional)
func New(opts *Options) *Database {
	if opts == nil {
		opts = DefaultOptions()
	}
	clock := opts.Clock
	if clock == nil {
		clock = util.MsTime
	}

	return &Database{
		keyspaces: xsync.NewMapOf[uint32, *internal.Keyspace](),
		clock:     clock,
	}
}

// keyspace returns the keyspace for an index and creates it if needed
func (d *Database) keyspace(dbIndex uint32) *internal.Keyspace {
	ks, _ := d.keyspaces.LoadOrCompute(dbIndex, internal.NewKeyspace)
	return ks
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns the value of a visible key.
// The returned value is a read-only view and must not be modified, use GetOrCreate for writes.
// Get never changes any state (expired entries are skipped, not removed).
//
// Thread-safety: Calls for the same database index must be serialized by the caller.
func (d *Database) Get(dbIndex uint32, key []byte) (*value.Value, bool) {
	ks, ok := d.keyspaces.Load(dbIndex)
	if !ok {
		return nil, false
	}

	v, visible, _ := ks.Lookup(string(key), d.clock())
	return v, visible
}

// Expiration returns the absolute expiration (ms) of a visible key.
// The boolean is false if the key is not visible or never expires.
func (d *Database) Expiration(dbIndex uint32, key []byte) (int64, bool) {
	ks, ok := d.keyspaces.Load(dbIndex)
	if !ok {
		return 0, false
	}

	k := string(key)
	if _, visible, _ := ks.Lookup(k, d.clock()); !visible {
		return 0, false
	}
	return ks.Expires.GetByKey(k)
}

// DBSize returns the number of visible keys of a database
func (d *Database) DBSize(dbIndex uint32) int {
	ks, ok := d.keyspaces.Load(dbIndex)
	if !ok {
		return 0
	}

	now := d.clock()
	size := len(ks.Entries)
	ks.Expires.Range(func(key string, at int64) bool {
		if _, exists := ks.Entries[key]; exists && at <= now {
			size--
		}
		return true
	})
	return size
}

// Indexes returns the sorted indexes of all keyspaces that were ever written to
func (d *Database) Indexes() []uint32 {
	indexes := make([]uint32, 0, d.keyspaces.Size())
	d.keyspaces.Range(func(idx uint32, _ *internal.Keyspace) bool {
		indexes = append(indexes, idx)
		return true
	})
	slices.Sort(indexes)
	return indexes
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// GetOrCreate returns the mutable value of a key.
// If the key is absent or expired, a Nil value is stored, any stale expiration is cleared
// and the new value is returned. Changes made through the handle are immediately visible.
//
// Thread-safety: Only one handle for a key may be in use at a time and calls for the same
// database index must be serialized by the caller.
func (d *Database) GetOrCreate(dbIndex uint32, key []byte) *value.Value {
	ks := d.keyspace(dbIndex)
	k := string(key)

	v, visible, stale := ks.Lookup(k, d.clock())
	if visible {
		return v
	}
	if stale {
		d.expiredKeys.Add(1)
	}

	ks.Expires.RemoveByKey(k)
	v = &value.Value{}
	ks.Entries[k] = v
	return v
}

// Remove deletes a key and its expiration and returns the previous value.
// An expired key is dropped as well but reported as absent.
func (d *Database) Remove(dbIndex uint32, key []byte) (*value.Value, bool) {
	ks, ok := d.keyspaces.Load(dbIndex)
	if !ok {
		return nil, false
	}

	k := string(key)
	v, visible, stale := ks.Lookup(k, d.clock())
	ks.Drop(k)

	if stale {
		d.expiredKeys.Add(1)
	}
	return v, visible
}

// SetMsExpiration sets or overwrites the absolute expiration (ms since epoch) of a key.
// The key does not need to exist; without an entry the expiration has no visible effect.
// A timestamp that is not in the future hides the key immediately.
func (d *Database) SetMsExpiration(dbIndex uint32, key []byte, atMs int64) {
	d.keyspace(dbIndex).Expires.AddItem(string(key), atMs)
}

// Persist removes the expiration of a visible key.
// Returns true if an expiration was removed.
func (d *Database) Persist(dbIndex uint32, key []byte) bool {
	ks, ok := d.keyspaces.Load(dbIndex)
	if !ok {
		return false
	}

	k := string(key)
	if _, visible, _ := ks.Lookup(k, d.clock()); !visible {
		return false
	}
	_, removed := ks.Expires.RemoveByKey(k)
	return removed
}

// FlushDB removes all keys of one database
func (d *Database) FlushDB(dbIndex uint32) {
	d.keyspaces.Delete(dbIndex)
}

// FlushAll removes all keys of all databases
func (d *Database) FlushAll() {
	d.keyspaces.Clear()
}

// --------------------------------------------------------------------------
// Active Expiration
// --------------------------------------------------------------------------

// ActiveExpireCycle physically removes up to budget expired keys of a database,
// earliest expiration first, and returns how many entries were removed.
// A budget <= 0 removes all expired keys.
// Expirations without an entry are discarded and not counted.
//
// The Database never calls this itself. The caller decides when to run it and must
// serialize it like any other write to the database index.
func (d *Database) ActiveExpireCycle(dbIndex uint32, budget int) int {
	ks, ok := d.keyspaces.Load(dbIndex)
	if !ok {
		return 0
	}

	now := d.clock()
	removed := 0
	for budget <= 0 || removed < budget {
		key, at, exists := ks.Expires.Peek()
		if !exists || at > now {
			break
		}
		ks.Expires.PopMin()

		if _, present := ks.Entries[key]; present {
			delete(ks.Entries, key)
			removed++
		}
	}

	d.expiredKeys.Add(uint64(removed))
	return removed
}

// Now returns the current time of the Database clock (ms)
func (d *Database) Now() int64 {
	return d.clock()
}

// ExpiredKeys returns the number of expired entries removed so far, lazily or actively
func (d *Database) ExpiredKeys() uint64 {
	return d.expiredKeys.Load()
}
