// Package testing provides standardised tests and benchmarks for the db.Database keyspace.
//
// The package contains:
//   - testing: a test suite for the visibility, lifecycle and value semantics of db.Database
//   - benchmark: performance tests for the common command paths (GET, SET, INCR, APPEND, ...)
//
// Example usage:
//
//	factory := func(clock util.Clock) *db.Database {
//		return db.New(&db.Options{Clock: clock})
//	}
//
//	dbtesting.RunDatabaseTests(t, "Database", factory)
//	dbtesting.RunDatabaseBenchmarks(b, "Database", factory)
package testing
