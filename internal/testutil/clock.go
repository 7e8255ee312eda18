package testutil

import (
	"sync"
	"time"
)

// Epoch is the fixed starting instant used by test clocks and fixtures.
var Epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock provides a thread-safe wall clock for tests that only
// moves when told to.
//
// Pass Now to store.WithClock so created timestamps are reproducible.
// This enables the same test scenario to run multiple times with
// identical timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
}

// NewDeterministicClock creates a clock reading start.
// A zero start means Epoch.
func NewDeterministicClock(start time.Time) *DeterministicClock {
	if start.IsZero() {
		start = Epoch
	}
	start = start.UTC()
	return &DeterministicClock{start: start, now: start}
}

// Now returns the current reading without advancing.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
func (c *DeterministicClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Reset returns the clock to its starting reading.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
