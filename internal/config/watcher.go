package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the bursts of events editors emit for one save.
const reloadDelay = 100 * time.Millisecond

// ProfileChanges lists profile names, prefixed "sftp:" or "oss:", that
// differ between two configurations.
type ProfileChanges struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether no profile differs.
func (c ProfileChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// DiffProfiles compares the SFTP and object store profiles of two
// configurations by name. Results are sorted.
func DiffProfiles(before, after *Config) ProfileChanges {
	var c ProfileChanges
	diffByName(&c, "sftp:", byName(before.SFTP, sftpName), byName(after.SFTP, sftpName))
	diffByName(&c, "oss:", byName(before.ObjectStores, storeName), byName(after.ObjectStores, storeName))
	slices.Sort(c.Added)
	slices.Sort(c.Removed)
	slices.Sort(c.Changed)
	return c
}

func sftpName(p SFTPProfile) string { return p.Name }
func storeName(p ObjectStoreProfile) string { return p.Name }

func byName[P comparable](profiles []P, name func(P) string) map[string]P {
	m := make(map[string]P, len(profiles))
	for _, p := range profiles {
		m[name(p)] = p
	}
	return m
}

func diffByName[P comparable](c *ProfileChanges, prefix string, before, after map[string]P) {
	for name, p := range after {
		old, ok := before[name]
		switch {
		case !ok:
			c.Added = append(c.Added, prefix+name)
		case old != p:
			c.Changed = append(c.Changed, prefix+name)
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			c.Removed = append(c.Removed, prefix+name)
		}
	}
}

// loadValid reads path and rejects configurations that fail Validate.
func loadValid(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Watcher keeps a validated configuration in step with its file so that
// "yuu-transfer serve" sees new profiles without a restart. An invalid
// edit is logged and the previous configuration stays active.
type Watcher struct {
	path     string
	onChange func(*Config)
	fsw      *fsnotify.Watcher

	mu      sync.RWMutex
	current *Config
	pending *time.Timer
	closed  bool

	done chan struct{}
}

// NewWatcher loads path and starts watching its directory. onChange, when
// set, receives every configuration accepted after the initial load.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	cfg, err := loadValid(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Saving through a rename replaces the inode, so the directory is the
	// stable thing to watch.
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		path:     path,
		onChange: onChange,
		fsw:      fsw,
		current:  cfg,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Config returns the active configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) loop() {
	name := filepath.Base(w.path)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.schedule()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(reloadDelay, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := loadValid(w.path)
	if err != nil {
		slog.Error("config reload rejected, keeping previous profiles",
			slog.String("path", w.path),
			slog.String("error", err.Error()),
		)
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	changes := DiffProfiles(w.current, cfg)
	w.current = cfg
	w.mu.Unlock()

	if changes.Empty() {
		slog.Info("config reloaded", slog.String("path", w.path))
	} else {
		slog.Info("config reloaded with profile changes",
			slog.String("path", w.path),
			slog.Any("added", changes.Added),
			slog.Any("removed", changes.Removed),
			slog.Any("changed", changes.Changed),
		)
	}

	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Close stops watching. A reload already scheduled is dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	close(w.done)
	return w.fsw.Close()
}
