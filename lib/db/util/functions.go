package util

import (
	"time"
)

// --------------------------------------------------------------------------
// Time Source
// --------------------------------------------------------------------------

// Clock returns the current wall-clock time in milliseconds since the Unix epoch.
// Expirations are absolute timestamps compared against values from a Clock only.
type Clock func() int64

// MsTime is the default Clock backed by the system time
func MsTime() int64 {
	return time.Now().UnixMilli()
}

// ManualClock is a Clock whose time only moves when told to. It is meant for tests and tools
// that need deterministic expiration.
//
// Thread-safety: This type is not thread-safe.
type ManualClock struct {
	now int64
}

// NewManualClock creates a ManualClock starting at the given time (ms)
func NewManualClock(startMs int64) *ManualClock {
	return &ManualClock{now: startMs}
}

// Now returns the current time of the clock, use it as Clock
func (c *ManualClock) Now() int64 {
	return c.now
}

// Advance moves the clock forward by the given number of milliseconds
func (c *ManualClock) Advance(ms int64) {
	c.now += ms
}

// Set moves the clock to an absolute time
func (c *ManualClock) Set(ms int64) {
	c.now = ms
}
