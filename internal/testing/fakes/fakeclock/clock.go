// Package fakeclock provides a controllable Clock for tests.
package fakeclock

import (
	"sync"
	"time"

	"github.com/wanjune/yuu-transfer/internal/ports"
)

// Clock only moves when told to.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// New creates a fake clock set to initial.
func New(initial time.Time) *Clock {
	return &Clock{current: initial}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Set sets the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

var _ ports.Clock = (*Clock)(nil)
