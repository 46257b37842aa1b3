package ssh

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

var defaultKeys = []string{
	"~/.ssh/id_ed25519",
	"~/.ssh/id_rsa",
	"~/.ssh/id_ecdsa",
}

// AuthConfig holds the credentials for one connection.
type AuthConfig struct {
	Host          string // Target host for ~/.ssh/config lookup
	KeyPath       string // Path to private key file
	KeyPassphrase string // Passphrase for encrypted keys
	Password      string // Password for password and keyboard-interactive auth
	UseAgent      bool   // Offer keys held by ssh-agent

	// Fs and Home locate key and config files. Zero values select the OS
	// filesystem and the user's home directory.
	Fs   afero.Fs
	Home string
}

func (c AuthConfig) fs() afero.Fs {
	if c.Fs == nil {
		return afero.NewOsFs()
	}
	return c.Fs
}

func (c AuthConfig) home() string {
	if c.Home != "" {
		return c.Home
	}
	home, _ := os.UserHomeDir()
	return home
}

// BuildAuthMethods constructs SSH auth methods from config. Methods are
// offered in this order: agent, explicit key, ~/.ssh/config IdentityFile,
// first default key, then password.
func BuildAuthMethods(cfg AuthConfig) ([]ssh.AuthMethod, error) {
	fsys, home := cfg.fs(), cfg.home()
	var methods []ssh.AuthMethod

	if cfg.UseAgent {
		if agentAuth, err := sshAgentAuth(); err == nil {
			methods = append(methods, agentAuth)
		} else {
			slog.Debug("ssh agent unavailable", slog.String("error", err.Error()))
		}
	}

	if cfg.KeyPath != "" {
		keyAuth, err := privateKeyAuth(fsys, expandPath(cfg.KeyPath, home), cfg.KeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("private key auth: %w", err)
		}
		methods = append(methods, keyAuth)
	}

	if cfg.KeyPath == "" && cfg.Host != "" {
		if configKey := identityFileFor(fsys, home, cfg.Host); configKey != "" {
			if keyAuth, err := privateKeyAuth(fsys, configKey, cfg.KeyPassphrase); err == nil {
				methods = append(methods, keyAuth)
			}
		}
	}

	if cfg.KeyPath == "" && cfg.Password == "" && len(methods) == 0 {
		for _, keyPath := range defaultKeys {
			keyAuth, err := privateKeyAuth(fsys, expandPath(keyPath, home), cfg.KeyPassphrase)
			if err == nil {
				methods = append(methods, keyAuth)
				break
			}
		}
	}

	if cfg.Password != "" {
		methods = append(methods, PasswordAuth(cfg.Password))
		methods = append(methods, KeyboardInteractiveAuth(cfg.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no authentication methods available")
	}

	return methods, nil
}

func sshAgentAuth() (ssh.AuthMethod, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK not set")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("dial agent: %w", err)
	}

	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

func privateKeyAuth(fsys afero.Fs, keyPath, passphrase string) (ssh.AuthMethod, error) {
	keyData, err := afero.ReadFile(fsys, keyPath)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(keyData)
	}
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

// HostKeyConfig selects how server host keys are verified.
type HostKeyConfig struct {
	KnownHostsPath string // Defaults to ~/.ssh/known_hosts
	Insecure       bool   // Accept any host key
	Fs             afero.Fs
	Home           string
}

// BuildHostKeyCallback creates a host key callback from known_hosts. When
// the file does not exist every host key is accepted and a warning is
// logged on first use.
func BuildHostKeyCallback(cfg HostKeyConfig) (ssh.HostKeyCallback, error) {
	if cfg.Insecure {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	fsys := cfg.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	home := cfg.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}

	knownHostsPath := cfg.KnownHostsPath
	if knownHostsPath == "" {
		knownHostsPath = "~/.ssh/known_hosts"
	}
	expanded := expandPath(knownHostsPath, home)

	if ok, _ := afero.Exists(fsys, expanded); !ok {
		return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			slog.Warn("known_hosts not found, host key not verified",
				slog.String("host", hostname),
				slog.String("known_hosts", expanded),
			)
			return nil
		}, nil
	}

	// knownhosts reads from the OS filesystem only.
	callback, err := knownhosts.New(expanded)
	if err != nil {
		return nil, fmt.Errorf("parse known_hosts: %w", err)
	}

	return callback, nil
}

func expandPath(path, home string) string {
	if strings.HasPrefix(path, "~/") && home != "" {
		return filepath.Join(home, path[2:])
	}
	return path
}

// identityFileFor returns the first IdentityFile of a ~/.ssh/config Host
// block matching host.
func identityFileFor(fsys afero.Fs, home, host string) string {
	file, err := fsys.Open(expandPath("~/.ssh/config", home))
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var matchesHost bool

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "host":
			matchesHost = matchHostPatterns(host, parts[1:])
		case "identityfile":
			if matchesHost {
				return expandPath(strings.Join(parts[1:], " "), home)
			}
		}
	}

	return ""
}

// matchHostPatterns applies ssh_config Host semantics: any positive
// pattern must match and no negated (!) pattern may match.
func matchHostPatterns(host string, patterns []string) bool {
	matched := false
	for _, p := range patterns {
		negated := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		ok, err := doublestar.Match(strings.ToLower(p), strings.ToLower(host))
		if err != nil || !ok {
			continue
		}
		if negated {
			return false
		}
		matched = true
	}
	return matched
}

// PasswordAuth returns a password auth method.
func PasswordAuth(password string) ssh.AuthMethod {
	return ssh.Password(password)
}

// KeyboardInteractiveAuth answers every keyboard-interactive question with
// the password.
func KeyboardInteractiveAuth(password string) ssh.AuthMethod {
	return ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = password
		}
		return answers, nil
	})
}
