package sync

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Excluder decides which entries are invisible to the mirror.
// Excluded names are neither copied nor deleted, and excluded
// directories are not descended into.
//
// Patterns use doublestar syntax:
//   - *.tmp, *.log          match the base name at any depth
//   - build/*, docs/**/*.md match the path relative to the roots
//   - .git/, node_modules/  a trailing slash matches directories only
type Excluder struct {
	patterns []excludePattern
}

type excludePattern struct {
	glob     string
	dirOnly  bool
	fullPath bool
}

// NewExcluder compiles exclude patterns; empty patterns are ignored
func NewExcluder(patterns []string) (*Excluder, error) {
	e := &Excluder{}

	for _, raw := range patterns {
		p := strings.TrimSpace(filepath.ToSlash(raw))
		if p == "" {
			continue
		}

		ep := excludePattern{}
		if strings.HasSuffix(p, "/") {
			ep.dirOnly = true
			p = strings.TrimRight(p, "/")
		}
		p = strings.TrimPrefix(p, "./")
		if strings.HasPrefix(p, "/") {
			p = strings.TrimLeft(p, "/")
			ep.fullPath = true
		}
		if strings.Contains(p, "/") {
			ep.fullPath = true
		}

		if p == "" || !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", raw)
		}
		ep.glob = p
		e.patterns = append(e.patterns, ep)
	}

	return e, nil
}

// Match reports whether the entry at relPath is excluded
func (e *Excluder) Match(relPath string, isDir bool) bool {
	if e == nil || len(e.patterns) == 0 {
		return false
	}

	slashPath := filepath.ToSlash(relPath)
	base := path.Base(slashPath)

	for _, p := range e.patterns {
		if p.dirOnly && !isDir {
			continue
		}

		subject := base
		if p.fullPath {
			subject = slashPath
		}

		if ok, _ := doublestar.Match(p.glob, subject); ok {
			return true
		}
	}

	return false
}

// Len returns the number of active patterns
func (e *Excluder) Len() int {
	if e == nil {
		return 0
	}
	return len(e.patterns)
}
