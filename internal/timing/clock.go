// Package timing provides a clockwork fake clock whose Sleep returns at once,
// so a whole polling cycle can run on the test goroutine.
package timing

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// FakeClock advances on Sleep instead of blocking until Advance is called.
// Every other method comes from clockwork's fake clock.
type FakeClock struct {
	clockwork.FakeClock

	mu     sync.Mutex
	sleeps []time.Duration
}

var _ clockwork.Clock = (*FakeClock)(nil)

// NewFakeClock starts a fake clock at a fixed instant
func NewFakeClock() *FakeClock {
	return &FakeClock{
		FakeClock: clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

// Sleep advances the clock by d and records the call
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	c.FakeClock.Advance(d)
}

// Sleeps returns a copy of the recorded sleep durations
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
