package testutil

import (
	"sync"
	"time"
)

// ManualClock is a millisecond clock that only moves when told to.
//
// It satisfies tid.Clock, so tests can force several TID requests into the
// same millisecond, or move time backwards, and check that the generator
// still hands out strictly increasing values.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu     sync.Mutex
	millis int64
}

// NewManualClock creates a clock frozen at the given millisecond.
func NewManualClock(millis int64) *ManualClock {
	return &ManualClock{millis: millis}
}

// NowMillis returns the current millisecond without advancing.
func (c *ManualClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.millis
}

// Now returns the current time, for code that takes a func() time.Time.
func (c *ManualClock) Now() time.Time {
	return time.UnixMilli(c.NowMillis())
}

// Advance moves the clock by d (which may be negative).
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.millis += d.Milliseconds()
}

// Set moves the clock to the given millisecond.
func (c *ManualClock) Set(millis int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.millis = millis
}
