// Package realclock provides the Clock port backed by the time package.
package realclock

import (
	"time"

	"github.com/wanjune/yuu-transfer/internal/ports"
)

// Clock implements ports.Clock.
type Clock struct{}

// New returns a new real Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (c *Clock) Now() time.Time {
	return time.Now()
}

var _ ports.Clock = (*Clock)(nil)
