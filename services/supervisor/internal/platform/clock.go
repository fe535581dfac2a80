package platform

import (
	"sync"
	"time"
)

// SystemClock reads the Go monotonic clock relative to its creation, which
// stands in for "time since reset".
type SystemClock struct {
	boot time.Time
}

func NewSystemClock() *SystemClock { return &SystemClock{boot: time.Now()} }

func (c *SystemClock) Now() time.Duration    { return time.Since(c.boot) }
func (c *SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// FakeClock is a manually advanced clock. Sleep advances it instantly, so
// pulse sequences complete without real waiting.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	sleeps []time.Duration
}

func NewFakeClock(start time.Duration) *FakeClock { return &FakeClock{now: start} }

func (c *FakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
}

// Advance moves the clock forward without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// Sleeps returns every duration passed to Sleep.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}
