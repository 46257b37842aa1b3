// Package realdialog provides a terminal DialogProvider using charmbracelet/huh.
//
// The CLI owns its terminal, so forms run in place. The MCP server talks
// over stdio and never prompts; Interactive reports false there.
package realdialog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/wanjune/yuu-transfer/internal/ports"
)

// ErrNotInteractive is returned when a prompt is needed but stdin is not a
// terminal.
var ErrNotInteractive = errors.New("no terminal available for prompt")

// Provider implements ports.DialogProvider on the process terminal.
type Provider struct {
	interactive bool
}

// New returns a provider that prompts only when stdin and stdout are
// terminals.
func New() *Provider {
	return &Provider{
		interactive: isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// NewNonInteractive returns a provider that never prompts.
func NewNonInteractive() *Provider {
	return &Provider{}
}

// Interactive reports whether prompts can be shown.
func (p *Provider) Interactive() bool {
	return p.interactive
}

// Secret prompts for a secret with echo disabled.
func (p *Provider) Secret(title, description string) (string, error) {
	if !p.interactive {
		return "", ErrNotInteractive
	}

	var value string
	input := huh.NewInput().
		Title(title).
		Description(description).
		EchoMode(huh.EchoModePassword).
		Validate(notEmpty("secret")).
		Value(&value)

	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("secret prompt: %w", err)
	}
	return value, nil
}

// SFTPProfileForm shows the SFTP profile form.
func (p *Provider) SFTPProfileForm(prefill ports.SFTPProfileForm) (ports.SFTPProfileForm, error) {
	if !p.interactive {
		return prefill, ErrNotInteractive
	}
	return runSFTPForm(prefill)
}

// ObjectStoreProfileForm shows the object store profile form.
func (p *Provider) ObjectStoreProfileForm(prefill ports.ObjectStoreProfileForm) (ports.ObjectStoreProfileForm, error) {
	if !p.interactive {
		return prefill, ErrNotInteractive
	}
	return runObjectStoreForm(prefill)
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

var _ ports.DialogProvider = (*Provider)(nil)
