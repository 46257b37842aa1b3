package mirror

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/wanjune/yuu-transfer/internal/pathutil"
)

// Filter excludes entries during a tree walk. The zero Filter excludes
// nothing beyond dot-prefixed names, which are always skipped.
type Filter struct {
	// Names are exact entry names to skip.
	Names []string
	// Extensions are skipped case-insensitively; a leading dot is optional.
	Extensions []string
	// Patterns are doublestar globs matched against the entry path
	// relative to the walk root, e.g. "**/tmp/**" or "logs/*.gz".
	Patterns []string
}

// Validate reports the first malformed glob pattern.
func (f Filter) Validate() error {
	for _, p := range f.Patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

type matcher struct {
	names    map[string]struct{}
	exts     map[string]struct{}
	patterns []string
}

func (f Filter) compile() matcher {
	m := matcher{patterns: f.Patterns}
	if len(f.Names) > 0 {
		m.names = make(map[string]struct{}, len(f.Names))
		for _, n := range f.Names {
			m.names[n] = struct{}{}
		}
	}
	if len(f.Extensions) > 0 {
		m.exts = make(map[string]struct{}, len(f.Extensions))
		for _, e := range f.Extensions {
			if e = strings.ToLower(strings.TrimPrefix(e, ".")); e != "" {
				m.exts[e] = struct{}{}
			}
		}
	}
	return m
}

// skip reports whether an entry named name, at rel below the walk root,
// is excluded.
func (m matcher) skip(name, rel string) bool {
	if pathutil.Hidden(name) {
		return true
	}
	if _, ok := m.names[name]; ok {
		return true
	}
	if len(m.exts) > 0 {
		if _, ok := m.exts[strings.ToLower(pathutil.Ext(name))]; ok {
			return true
		}
	}
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Skips reports whether f excludes name found at rel below the walk root.
func (f Filter) Skips(name, rel string) bool {
	return f.compile().skip(name, rel)
}
