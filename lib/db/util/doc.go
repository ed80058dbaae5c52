// Package util provides the supporting pieces of the db package.
//
// The package contains:
//   - functions: the Clock time source (milliseconds since the Unix epoch) and a ManualClock for tests
//   - mapheap: a priority queue with key-based access, used as the expiration index of a keyspace
//   - statistics: summary statistics and a SizeHistogram for estimating keyspace memory usage
package util
