// Package config loads the yuu-transfer profile file.
//
// The transfer engine never reads configuration itself; the CLI and the
// MCP server translate profiles into session options.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Object store providers.
const (
	ProviderAliyun = "aliyun"
	ProviderS3     = "s3"
)

// DefaultConfigPath returns $XDG_CONFIG_HOME/yuu-transfer/config.yaml or
// ~/.config/yuu-transfer/config.yaml.
func DefaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "yuu-transfer", "config.yaml")
}

// Config is the top-level configuration.
type Config struct {
	SFTP         []SFTPProfile        `yaml:"sftp"`
	ObjectStores []ObjectStoreProfile `yaml:"object_stores"`
	Transfer     TransferConfig       `yaml:"transfer"`
	Logging      LoggingConfig        `yaml:"logging"`
	Security     SecurityConfig       `yaml:"security"`
}

// SFTPProfile names an SFTP server and how to log in to it.
type SFTPProfile struct {
	Name            string        `yaml:"name"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	KeyPath         string        `yaml:"key_path"`
	PasswordEnv     string        `yaml:"password_env"`   // env var containing the password
	PassphraseEnv   string        `yaml:"passphrase_env"` // env var containing the key passphrase
	UseAgent        bool          `yaml:"use_agent"`
	KnownHosts      string        `yaml:"known_hosts"`
	InsecureHostKey bool          `yaml:"insecure_host_key"`
	Timeout         time.Duration `yaml:"timeout"`
}

// ObjectStoreProfile names a bucket.
type ObjectStoreProfile struct {
	Name               string `yaml:"name"`
	Provider           string `yaml:"provider"` // "aliyun" or "s3"
	Endpoint           string `yaml:"endpoint"`
	Region             string `yaml:"region"`
	Bucket             string `yaml:"bucket"`
	AccessKeyID        string `yaml:"access_key_id"`
	AccessKeySecretEnv string `yaml:"access_key_secret_env"` // env var containing the secret
	PathStyle          bool   `yaml:"path_style"`
	InternalEndpoint   bool   `yaml:"internal_endpoint"` // aliyun only
}

// TransferConfig tunes transfers and sets default exclusions.
type TransferConfig struct {
	SingleShotThreshold int64    `yaml:"single_shot_threshold"`
	PartSize            int64    `yaml:"part_size"`
	PageSize            int32    `yaml:"page_size"`
	PartConcurrency     int      `yaml:"part_concurrency"`
	ExcludeNames        []string `yaml:"exclude_names"`
	ExcludeExtensions   []string `yaml:"exclude_extensions"`
	ExcludePatterns     []string `yaml:"exclude_patterns"` // doublestar globs
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // "debug", "info", "warn", "error"
	Format   string `yaml:"format"`   // "json" or "text"
	Sanitize bool   `yaml:"sanitize"` // redact credentials from logs
}

// SecurityConfig controls where secrets come from.
type SecurityConfig struct {
	UseKeyring bool `yaml:"use_keyring"` // look up secrets in the OS keyring
	Prompt     bool `yaml:"prompt"`      // prompt on a terminal when nothing else has the secret
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Transfer: TransferConfig{
			SingleShotThreshold: 2 << 30,
			PartSize:            1 << 30,
			PageSize:            1000,
			PartConcurrency:     1,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Sanitize: true,
		},
		Security: SecurityConfig{
			UseKeyring: true,
			Prompt:     true,
		},
	}
}

func pickFs(fsys []afero.Fs) afero.Fs {
	if len(fsys) > 0 && fsys[0] != nil {
		return fsys[0]
	}
	return afero.NewOsFs()
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. An optional afero.Fs can be passed for testing.
func Load(path string, fsys ...afero.Fs) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(pickFs(fsys), path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks profiles and fills per-profile defaults.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i := range c.SFTP {
		p := &c.SFTP[i]
		if p.Name == "" {
			return fmt.Errorf("sftp profile %d: name is required", i)
		}
		if seen["sftp:"+p.Name] {
			return fmt.Errorf("sftp profile %q defined twice", p.Name)
		}
		seen["sftp:"+p.Name] = true
		if p.Host == "" || p.User == "" {
			return fmt.Errorf("sftp profile %q: host and user are required", p.Name)
		}
		if p.Port == 0 {
			p.Port = 22
		}
		if p.Port < 0 || p.Port > 65535 {
			return fmt.Errorf("sftp profile %q: port %d out of range", p.Name, p.Port)
		}
	}

	for i := range c.ObjectStores {
		p := &c.ObjectStores[i]
		if p.Name == "" {
			return fmt.Errorf("object store profile %d: name is required", i)
		}
		if seen["oss:"+p.Name] {
			return fmt.Errorf("object store profile %q defined twice", p.Name)
		}
		seen["oss:"+p.Name] = true
		if p.Provider == "" {
			p.Provider = ProviderAliyun
		}
		if p.Provider != ProviderAliyun && p.Provider != ProviderS3 {
			return fmt.Errorf("object store profile %q: unknown provider %q", p.Name, p.Provider)
		}
		if p.Bucket == "" {
			return fmt.Errorf("object store profile %q: bucket is required", p.Name)
		}
	}

	t := &c.Transfer
	if t.PartConcurrency <= 0 {
		t.PartConcurrency = 1
	}
	if t.PartSize < 0 || t.SingleShotThreshold < 0 {
		return fmt.Errorf("transfer sizes must not be negative")
	}
	for _, p := range t.ExcludePatterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

// SFTPProfile returns the SFTP profile called name.
func (c *Config) SFTPProfile(name string) (*SFTPProfile, error) {
	for i := range c.SFTP {
		if c.SFTP[i].Name == name {
			return &c.SFTP[i], nil
		}
	}
	return nil, fmt.Errorf("sftp profile %q not found", name)
}

// ObjectStoreProfile returns the object store profile called name.
func (c *Config) ObjectStoreProfile(name string) (*ObjectStoreProfile, error) {
	for i := range c.ObjectStores {
		if c.ObjectStores[i].Name == name {
			return &c.ObjectStores[i], nil
		}
	}
	return nil, fmt.Errorf("object store profile %q not found", name)
}

// AddSFTP adds a profile. Names must be unique.
func (c *Config) AddSFTP(p SFTPProfile) error {
	if _, err := c.SFTPProfile(p.Name); err == nil {
		return fmt.Errorf("sftp profile %q already exists", p.Name)
	}
	c.SFTP = append(c.SFTP, p)
	return nil
}

// AddObjectStore adds a profile. Names must be unique.
func (c *Config) AddObjectStore(p ObjectStoreProfile) error {
	if _, err := c.ObjectStoreProfile(p.Name); err == nil {
		return fmt.Errorf("object store profile %q already exists", p.Name)
	}
	c.ObjectStores = append(c.ObjectStores, p)
	return nil
}

// Save writes the configuration as YAML, creating the parent directory.
func Save(cfg *Config, path string, fsys ...afero.Fs) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	target := pickFs(fsys)
	if err := target.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return afero.WriteFile(target, path, data, 0o600)
}
