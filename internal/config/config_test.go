package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

const sampleConfig = `
sftp:
  - name: ingest
    host: sftp.example.com
    user: deploy
    key_path: ~/.ssh/id_ed25519
    password_env: INGEST_PASSWORD
    timeout: 45s
object_stores:
  - name: archive
    endpoint: oss-cn-hangzhou.aliyuncs.com
    region: cn-hangzhou
    bucket: yuu-archive
    access_key_id: LTAIexample
    access_key_secret_env: ARCHIVE_SECRET
  - name: backup
    provider: s3
    endpoint: http://127.0.0.1:9000
    bucket: backup
    path_style: true
transfer:
  part_size: 104857600
  part_concurrency: 4
  exclude_names: [Thumbs.db]
  exclude_patterns: ["**/tmp/**"]
logging:
  level: debug
  format: text
`

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Transfer.SingleShotThreshold != 2<<30 {
		t.Errorf("SingleShotThreshold = %d, want %d", cfg.Transfer.SingleShotThreshold, int64(2<<30))
	}
	if cfg.Transfer.PartSize != 1<<30 {
		t.Errorf("PartSize = %d, want %d", cfg.Transfer.PartSize, int64(1<<30))
	}
	if cfg.Transfer.PageSize != 1000 {
		t.Errorf("PageSize = %d, want 1000", cfg.Transfer.PageSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if !cfg.Logging.Sanitize {
		t.Error("Logging.Sanitize = false, want true")
	}
	if !cfg.Security.UseKeyring {
		t.Error("Security.UseKeyring = false, want true")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	want := filepath.Join("/xdg", "yuu-transfer", "config.yaml")
	if got := DefaultConfigPath(); got != want {
		t.Errorf("DefaultConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Transfer.PageSize != 1000 {
		t.Errorf("PageSize = %d, want default 1000", cfg.Transfer.PageSize)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml", afero.NewMemMapFs())
	if err != nil {
		t.Fatalf("Load(missing) error: %v", err)
	}
	if len(cfg.SFTP) != 0 || len(cfg.ObjectStores) != 0 {
		t.Errorf("Load(missing) returned profiles: %+v", cfg)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/c.yaml", []byte(":::invalid:::yaml{{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load("/c.yaml", fsys); err == nil {
		t.Fatal("Load(invalid) expected error, got nil")
	}
}

func TestLoadValidConfig(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/c.yaml", []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("/c.yaml", fsys)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	p, err := cfg.SFTPProfile("ingest")
	if err != nil {
		t.Fatalf("SFTPProfile(ingest) error: %v", err)
	}
	if p.Port != 22 {
		t.Errorf("Port = %d, want default 22", p.Port)
	}
	if p.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", p.Timeout)
	}
	if p.PasswordEnv != "INGEST_PASSWORD" {
		t.Errorf("PasswordEnv = %q, want %q", p.PasswordEnv, "INGEST_PASSWORD")
	}

	archive, err := cfg.ObjectStoreProfile("archive")
	if err != nil {
		t.Fatalf("ObjectStoreProfile(archive) error: %v", err)
	}
	if archive.Provider != ProviderAliyun {
		t.Errorf("Provider = %q, want default %q", archive.Provider, ProviderAliyun)
	}
	backup, _ := cfg.ObjectStoreProfile("backup")
	if backup == nil || !backup.PathStyle || backup.Provider != ProviderS3 {
		t.Errorf("backup profile = %+v", backup)
	}

	if cfg.Transfer.PartConcurrency != 4 {
		t.Errorf("PartConcurrency = %d, want 4", cfg.Transfer.PartConcurrency)
	}
	if cfg.Transfer.SingleShotThreshold != 2<<30 {
		t.Errorf("SingleShotThreshold = %d, want default kept", cfg.Transfer.SingleShotThreshold)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}

	if _, err := cfg.SFTPProfile("nope"); err == nil {
		t.Error("SFTPProfile(nope) expected error, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty", Config{}, ""},
		{"sftp missing name", Config{SFTP: []SFTPProfile{{Host: "h", User: "u"}}}, "name is required"},
		{"sftp missing host", Config{SFTP: []SFTPProfile{{Name: "a", User: "u"}}}, "host and user"},
		{"sftp bad port", Config{SFTP: []SFTPProfile{{Name: "a", Host: "h", User: "u", Port: 70000}}}, "out of range"},
		{"sftp duplicate", Config{SFTP: []SFTPProfile{
			{Name: "a", Host: "h", User: "u"},
			{Name: "a", Host: "h2", User: "u"},
		}}, "defined twice"},
		{"oss missing bucket", Config{ObjectStores: []ObjectStoreProfile{{Name: "b"}}}, "bucket is required"},
		{"oss bad provider", Config{ObjectStores: []ObjectStoreProfile{{Name: "b", Bucket: "x", Provider: "gcs"}}}, "unknown provider"},
		{"same name across kinds", Config{
			SFTP:         []SFTPProfile{{Name: "a", Host: "h", User: "u"}},
			ObjectStores: []ObjectStoreProfile{{Name: "a", Bucket: "x"}},
		}, ""},
		{"bad pattern", Config{Transfer: TransferConfig{ExcludePatterns: []string{"[a-"}}}, "invalid exclude pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestAddProfiles(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.AddSFTP(SFTPProfile{Name: "a", Host: "h", User: "u"}); err != nil {
		t.Fatalf("AddSFTP() error: %v", err)
	}
	if err := cfg.AddSFTP(SFTPProfile{Name: "a", Host: "other", User: "u"}); err == nil {
		t.Error("AddSFTP(duplicate) expected error, got nil")
	}
	if err := cfg.AddObjectStore(ObjectStoreProfile{Name: "a", Bucket: "b"}); err != nil {
		t.Fatalf("AddObjectStore() error: %v", err)
	}
	if err := cfg.AddObjectStore(ObjectStoreProfile{Name: "a", Bucket: "c"}); err == nil {
		t.Error("AddObjectStore(duplicate) expected error, got nil")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	cfg := DefaultConfig()
	_ = cfg.AddSFTP(SFTPProfile{Name: "ingest", Host: "h", User: "u", Port: 2222})

	path := "/home/u/.config/yuu-transfer/config.yaml"
	if err := Save(cfg, path, fsys); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	info, err := fsys.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := Load(path, fsys)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	p, err := got.SFTPProfile("ingest")
	if err != nil || p.Port != 2222 {
		t.Errorf("reloaded profile = %+v, %v", p, err)
	}
}

// writeConfigFile replaces path atomically so the watcher never sees a
// truncated file.
func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func TestNewWatcher(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	writeConfigFile(t, path, sampleConfig)

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer w.Close()

	if n := len(w.Config().SFTP); n != 1 {
		t.Errorf("len(SFTP) = %d, want 1", n)
	}
}

func TestNewWatcherInvalidConfig(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	writeConfigFile(t, path, "object_stores:\n  - name: x\n")

	if _, err := NewWatcher(path, nil); err == nil {
		t.Fatal("NewWatcher(invalid) expected error, got nil")
	}
}

func TestWatcherReloadsOnFileChange(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	writeConfigFile(t, path, "sftp: []\n")

	var mu sync.Mutex
	var changed *Config

	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		changed = cfg
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer w.Close()

	writeConfigFile(t, path, sampleConfig)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		c := changed
		mu.Unlock()
		if c != nil && len(c.ObjectStores) == 2 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if n := len(w.Config().ObjectStores); n != 2 {
		t.Errorf("len(ObjectStores) after reload = %d, want 2", n)
	}
	mu.Lock()
	if changed == nil {
		t.Error("onChange callback was never called")
	}
	mu.Unlock()
}

func TestWatcherKeepsConfigOnInvalidReload(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	writeConfigFile(t, path, sampleConfig)

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer w.Close()

	writeConfigFile(t, path, ":::invalid{{{")
	time.Sleep(300 * time.Millisecond)

	if n := len(w.Config().SFTP); n != 1 {
		t.Errorf("len(SFTP) after invalid reload = %d, want 1", n)
	}
}

func TestWatcherClose(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	writeConfigFile(t, path, "sftp: []\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestDiffProfiles(t *testing.T) {
	before := &Config{
		SFTP: []SFTPProfile{
			{Name: "ingest", Host: "a.example.com", User: "deploy", Port: 22},
			{Name: "legacy", Host: "old.example.com", User: "ops", Port: 22},
		},
		ObjectStores: []ObjectStoreProfile{{Name: "archive", Bucket: "b1"}},
	}
	after := &Config{
		SFTP: []SFTPProfile{
			{Name: "ingest", Host: "b.example.com", User: "deploy", Port: 22},
		},
		ObjectStores: []ObjectStoreProfile{
			{Name: "archive", Bucket: "b1"},
			{Name: "backup", Bucket: "b2", Provider: ProviderS3},
		},
	}

	got := DiffProfiles(before, after)
	if want := []string{"oss:backup"}; !slices.Equal(got.Added, want) {
		t.Errorf("Added = %v, want %v", got.Added, want)
	}
	if want := []string{"sftp:legacy"}; !slices.Equal(got.Removed, want) {
		t.Errorf("Removed = %v, want %v", got.Removed, want)
	}
	if want := []string{"sftp:ingest"}; !slices.Equal(got.Changed, want) {
		t.Errorf("Changed = %v, want %v", got.Changed, want)
	}
	if got.Empty() {
		t.Error("Empty() = true, want false")
	}

	if same := DiffProfiles(after, after); !same.Empty() {
		t.Errorf("DiffProfiles(x, x) = %+v, want empty", same)
	}
}

func TestWatcherCoalescesBurstOfWrites(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	writeConfigFile(t, path, "sftp: []\n")

	var mu sync.Mutex
	calls := 0
	w, err := NewWatcher(path, func(*Config) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer w.Close()

	for range 3 {
		writeConfigFile(t, path, sampleConfig)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(w.Config().ObjectStores) != 2 {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(3 * reloadDelay)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("onChange calls = %d, want 1", calls)
	}
}
