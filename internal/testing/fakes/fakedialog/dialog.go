// Package fakedialog provides a test fake for ports.DialogProvider.
package fakedialog

import (
	"errors"
	"sync"

	"github.com/wanjune/yuu-transfer/internal/ports"
)

// ErrNoAnswer is returned by Secret when no answer was queued.
var ErrNoAnswer = errors.New("fakedialog: no answer queued")

// Provider is a controllable fake DialogProvider for testing.
type Provider struct {
	mu sync.Mutex

	// NotInteractive makes Interactive report false.
	NotInteractive bool
	// Secrets are returned by Secret in order.
	Secrets []string
	// Prompts records the titles passed to Secret.
	Prompts []string

	SFTPResult        ports.SFTPProfileForm
	ObjectStoreResult ports.ObjectStoreProfileForm
	// Err is returned by the profile forms.
	Err error
}

// New returns a new fake dialog provider.
func New(secrets ...string) *Provider {
	return &Provider{Secrets: secrets}
}

// Interactive reports !NotInteractive.
func (p *Provider) Interactive() bool {
	return !p.NotInteractive
}

// Secret pops the next queued answer.
func (p *Provider) Secret(title, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Prompts = append(p.Prompts, title)
	if len(p.Secrets) == 0 {
		return "", ErrNoAnswer
	}
	s := p.Secrets[0]
	p.Secrets = p.Secrets[1:]
	return s, nil
}

// SFTPProfileForm returns SFTPResult or Err.
func (p *Provider) SFTPProfileForm(prefill ports.SFTPProfileForm) (ports.SFTPProfileForm, error) {
	if p.Err != nil {
		return prefill, p.Err
	}
	return p.SFTPResult, nil
}

// ObjectStoreProfileForm returns ObjectStoreResult or Err.
func (p *Provider) ObjectStoreProfileForm(prefill ports.ObjectStoreProfileForm) (ports.ObjectStoreProfileForm, error) {
	if p.Err != nil {
		return prefill, p.Err
	}
	return p.ObjectStoreResult, nil
}

var _ ports.DialogProvider = (*Provider)(nil)
