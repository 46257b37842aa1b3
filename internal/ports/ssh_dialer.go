// Package ports defines interfaces for external dependencies (Ports and Adapters pattern).
package ports

import (
	"context"

	"golang.org/x/crypto/ssh"
)

// SSHDialer abstracts SSH connection establishment for testing.
type SSHDialer interface {
	// Dial establishes an SSH connection to addr. Dialing stops when ctx
	// is done before the TCP connection is up.
	Dial(ctx context.Context, network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)
}
