// Package lstore provides a local, thread-safe implementation of the store.IStore interface
// on top of a single db.Database.
//
// Implementation Details:
//
//   - Serialization: db.Database leaves locking to its caller. The store keeps one mutex per
//     database index and holds it for the whole command, so every command (e.g. INCR: obtain
//     the value, increment, release) runs without interleaving on that database. Commands on
//     different databases run in parallel. FLUSHALL and INFO lock all databases in index order.
//
//   - Bounds: database indexes must be below EngineConfig.Databases (RetCInvalidDBIndex).
//     APPEND and SETRANGE refuse to grow a value beyond EngineConfig.MaxValueBytes
//     (RetCValueTooLarge), a negative SETRANGE offset is RetCInvalidOperation.
//
//   - Active expiration: if EngineConfig.SweepInterval is set, a goroutine calls
//     db.Database.ActiveExpireCycle for every database on each tick with
//     EngineConfig.SweepBudget, locking one database at a time. Close stops it.
//
//   - Metrics: keyspace hits and misses, expired keys and a per-command counter are kept in
//     a VictoriaMetrics metrics.Set owned by the store and exported with WriteMetrics.
//
// Usage Example:
//
//	s, err := lstore.NewLocalStore(func() *db.Database { return db.New(nil) }, common.DefaultEngineConfig())
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	_ = s.Set(0, []byte("counter"), []byte("10"))
//	n, _ := s.IncrBy(0, []byte("counter"), 5) // 15
package lstore
