// Package ssh establishes the SSH transport used by SFTP sessions.
package ssh

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/wanjune/yuu-transfer/internal/adapters/realsshdialer"
	"github.com/wanjune/yuu-transfer/internal/ports"
	"golang.org/x/crypto/ssh"
)

const (
	// DefaultPort is used when Options.Port is zero.
	DefaultPort = 22

	// DefaultTimeout bounds connect plus handshake.
	DefaultTimeout = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	Host            string
	Port            int
	User            string
	AuthMethods     []ssh.AuthMethod
	HostKeyCallback ssh.HostKeyCallback
	Timeout         time.Duration
	Dialer          ports.SSHDialer
}

// Client owns one SSH connection.
type Client struct {
	conn   *ssh.Client
	config *ssh.ClientConfig
	host   string
	port   int
	user   string
	dialer ports.SSHDialer
	mu     sync.Mutex
}

// NewClient validates opts and applies defaults. It does not connect.
func NewClient(opts Options) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if opts.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	if len(opts.AuthMethods) == 0 {
		return nil, fmt.Errorf("at least one auth method is required")
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HostKeyCallback == nil {
		opts.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	if opts.Dialer == nil {
		opts.Dialer = realsshdialer.New()
	}

	return &Client{
		config: &ssh.ClientConfig{
			User:            opts.User,
			Auth:            opts.AuthMethods,
			HostKeyCallback: opts.HostKeyCallback,
			Timeout:         opts.Timeout,
		},
		host:   opts.Host,
		port:   opts.Port,
		user:   opts.User,
		dialer: opts.Dialer,
	}, nil
}

// Connect establishes the SSH connection. Connecting an already connected
// client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	conn, err := c.dialer.Dial(ctx, "tcp", addr, c.config)
	if err != nil {
		return fmt.Errorf("ssh dial %s: %w", c.Target(), err)
	}

	c.conn = conn
	return nil
}

// Conn returns the live connection, or nil before Connect.
func (c *Client) Conn() *ssh.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Close closes the connection. Closing twice is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Target identifies the connection as user@host:port. It never includes
// credentials.
func (c *Client) Target() string {
	return fmt.Sprintf("%s@%s", c.user, net.JoinHostPort(c.host, strconv.Itoa(c.port)))
}

// Port returns the effective port.
func (c *Client) Port() int {
	return c.port
}
