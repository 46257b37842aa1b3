// Package fakesshdialer provides a fake SSH dialer for testing.
package fakesshdialer

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/ssh"
)

// DialFunc is the behavior behind Dial.
type DialFunc func(ctx context.Context, network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)

// Dialer is a fake SSH dialer that records calls and delegates to a DialFunc.
type Dialer struct {
	mu    sync.Mutex
	fn    DialFunc
	calls []DialCall
}

// DialCall records a call to Dial.
type DialCall struct {
	Network string
	Addr    string
	User    string
}

// New creates a fake Dialer that fails every dial.
func New() *Dialer {
	return &Dialer{
		fn: func(context.Context, string, string, *ssh.ClientConfig) (*ssh.Client, error) {
			return nil, fmt.Errorf("fakesshdialer: not configured")
		},
	}
}

// Dial records the call and delegates to the configured DialFunc.
func (d *Dialer) Dial(ctx context.Context, network, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	d.mu.Lock()
	d.calls = append(d.calls, DialCall{Network: network, Addr: addr, User: config.User})
	fn := d.fn
	d.mu.Unlock()
	return fn(ctx, network, addr, config)
}

// Calls returns the recorded Dial calls.
func (d *Dialer) Calls() []DialCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DialCall(nil), d.calls...)
}

// SetDialFunc replaces the dial behavior.
func (d *Dialer) SetDialFunc(fn DialFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fn = fn
}

// SetError makes every dial fail with err.
func (d *Dialer) SetError(err error) {
	d.SetDialFunc(func(context.Context, string, string, *ssh.ClientConfig) (*ssh.Client, error) {
		return nil, err
	})
}
