// Package sftp provides the remote shell file session used for SFTP transfers.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/pathutil"
	"github.com/wanjune/yuu-transfer/internal/ports"
	transport "github.com/wanjune/yuu-transfer/internal/ssh"
)

// Options describes how to reach and authenticate to an SFTP server.
type Options struct {
	Host          string
	Port          int // Defaults to 22
	User          string
	Password      string
	KeyPath       string
	KeyPassphrase string
	UseAgent      bool

	KnownHostsPath  string
	InsecureHostKey bool
	Timeout         time.Duration

	Dialer ports.SSHDialer
	Fs     afero.Fs // Key and known_hosts lookup; nil selects the OS
}

// Session is one open connection to an SFTP server. A Session is not safe
// for concurrent transfers; open one per goroutine.
type Session struct {
	opts   Options
	conn   *transport.Client
	client *sftp.Client
	root   string
	cwd    string
	mu     sync.Mutex
}

// New returns a closed session for opts.
func New(opts Options) *Session {
	if opts.Port == 0 {
		opts.Port = transport.DefaultPort
	}
	return &Session{opts: opts}
}

// Target identifies the server as user@host:port.
func (s *Session) Target() string {
	return fmt.Sprintf("%s@%s:%d", s.opts.User, s.opts.Host, s.opts.Port)
}

// Open connects, starts the SFTP subsystem and captures the root path from
// the server's working directory. Errors never contain the password.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return fmt.Errorf("session %s already open", s.Target())
	}

	methods, err := transport.BuildAuthMethods(transport.AuthConfig{
		Host:          s.opts.Host,
		KeyPath:       s.opts.KeyPath,
		KeyPassphrase: s.opts.KeyPassphrase,
		Password:      s.opts.Password,
		UseAgent:      s.opts.UseAgent,
		Fs:            s.opts.Fs,
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", s.Target(), err)
	}
	hostKeys, err := transport.BuildHostKeyCallback(transport.HostKeyConfig{
		KnownHostsPath: s.opts.KnownHostsPath,
		Insecure:       s.opts.InsecureHostKey,
		Fs:             s.opts.Fs,
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", s.Target(), err)
	}

	conn, err := transport.NewClient(transport.Options{
		Host:            s.opts.Host,
		Port:            s.opts.Port,
		User:            s.opts.User,
		AuthMethods:     methods,
		HostKeyCallback: hostKeys,
		Timeout:         s.opts.Timeout,
		Dialer:          s.opts.Dialer,
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", s.Target(), err)
	}
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	client, err := sftp.NewClient(conn.Conn())
	if err != nil {
		conn.Close()
		return fmt.Errorf("create sftp client: %w", err)
	}

	pwd, err := client.Getwd()
	if err != nil {
		client.Close()
		conn.Close()
		return fmt.Errorf("get working directory: %w", err)
	}

	s.conn = conn
	s.client = client
	s.root = pathutil.Root(pwd)
	s.cwd = pathutil.Resolve(".", s.root)

	slog.Debug("sftp session opened",
		slog.String("target", s.Target()),
		slog.String("root", s.root),
	)
	return nil
}

// Close shuts down the SFTP channel and then the transport. Both steps are
// best effort and closing a closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil && s.conn == nil {
		return nil
	}

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			slog.Debug("close sftp channel", slog.String("error", err.Error()))
		}
		s.client = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			slog.Debug("close ssh transport", slog.String("error", err.Error()))
		}
		s.conn = nil
	}

	slog.Debug("sftp session closed", slog.String("target", s.Target()))
	return nil
}

// IsOpen reports whether the session is connected.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// Root returns the root captured at Open.
func (s *Session) Root() string {
	return s.root
}

// Resolve makes p absolute against the session root.
func (s *Session) Resolve(p string) string {
	return pathutil.Resolve(p, s.root)
}

func (s *Session) channel() (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, apperr.ErrSessionClosed
	}
	return s.client, nil
}

// Stat reports whether p exists. Any failure, including a lost connection,
// reports false; use Probe to tell the two apart.
func (s *Session) Stat(p string) bool {
	return s.Probe(p).State == Exists
}

// IsDir reports whether p is a directory. Any failure reports false.
func (s *Session) IsDir(p string) bool {
	pr := s.Probe(p)
	return pr.State == Exists && pr.IsDir
}

// Probe fetches metadata for p and classifies the outcome.
func (s *Session) Probe(p string) Probe {
	client, err := s.channel()
	if err != nil {
		return Probe{State: Unknown, Err: err}
	}
	info, err := client.Stat(s.Resolve(p))
	switch {
	case err == nil:
		return Probe{State: Exists, IsDir: info.IsDir()}
	case errors.Is(err, fs.ErrNotExist):
		return Probe{State: NotFound}
	default:
		return Probe{State: Unknown, Err: err}
	}
}

// List returns the entries directly inside dir in name order. A missing
// or empty directory yields an empty list.
func (s *Session) List(dir string) ([]ports.RemoteNode, error) {
	client, err := s.channel()
	if err != nil {
		return nil, err
	}
	dir = s.Resolve(dir)
	infos, err := client.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}

	nodes := make([]ports.RemoteNode, 0, len(infos))
	for _, info := range infos {
		if info.Name() == "." || info.Name() == ".." {
			continue
		}
		nodes = append(nodes, ports.RemoteNode{
			Path:  pathutil.Child(dir, info.Name()),
			Name:  info.Name(),
			IsDir: info.IsDir(),
			Size:  info.Size(),
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

// Mkdir creates one directory.
func (s *Session) Mkdir(p string) error {
	client, err := s.channel()
	if err != nil {
		return err
	}
	return client.Mkdir(s.Resolve(p))
}

// MkdirAll creates p and any missing parents.
func (s *Session) MkdirAll(p string) error {
	client, err := s.channel()
	if err != nil {
		return err
	}
	return client.MkdirAll(s.Resolve(p))
}

// Cd changes the directory that relative PutStream names resolve against.
func (s *Session) Cd(p string) error {
	client, err := s.channel()
	if err != nil {
		return err
	}
	dir := s.Resolve(p)
	info, err := client.Stat(dir)
	if err != nil {
		return fmt.Errorf("cd %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cd %s: not a directory", dir)
	}
	s.cwd = dir
	return nil
}

// Pwd returns the directory set by the last Cd, or the root.
func (s *Session) Pwd() string {
	return s.cwd
}

// Remove deletes one file.
func (s *Session) Remove(p string) error {
	client, err := s.channel()
	if err != nil {
		return err
	}
	return client.Remove(s.Resolve(p))
}

// RemoveDir deletes one empty directory.
func (s *Session) RemoveDir(p string) error {
	client, err := s.channel()
	if err != nil {
		return err
	}
	return client.RemoveDirectory(s.Resolve(p))
}

// GetStream opens a remote file for reading. The caller closes it.
func (s *Session) GetStream(p string) (io.ReadCloser, error) {
	client, err := s.channel()
	if err != nil {
		return nil, err
	}
	f, err := client.Open(s.Resolve(p))
	if err != nil {
		return nil, fmt.Errorf("open remote file: %w", err)
	}
	return f, nil
}

// PutStream writes r to name, truncating any existing file. A relative
// name is placed in the current directory set by Cd.
func (s *Session) PutStream(name string, r io.Reader) (err error) {
	client, err := s.channel()
	if err != nil {
		return err
	}
	target := pathutil.Resolve(name, pathutil.Root(s.cwd))
	f, err := client.Create(target)
	if err != nil {
		return fmt.Errorf("create remote file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close remote file: %w", cerr)
		}
	}()

	if _, err := f.ReadFrom(r); err != nil {
		return fmt.Errorf("write remote file: %w", err)
	}
	return nil
}
