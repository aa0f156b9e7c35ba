package fscache

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry describes a single filesystem object inside a snapshot.
type Entry struct {
	IsDir bool
	Size  int64
}

// Snapshot is an immutable structural view of one cache scope, captured by
// a single directory walk. All lookups are memory-only. Paths are relative
// to the scope root and use forward slashes; "" refers to the root itself.
type Snapshot struct {
	scope      string
	capturedAt time.Time
	exists     bool
	entries    map[string]Entry
	children   map[string][]string
	fileTotal  int64
}

// Scope returns the absolute path this snapshot covers.
func (s *Snapshot) Scope() string { return s.scope }

// CapturedAt returns when the underlying walk ran.
func (s *Snapshot) CapturedAt() time.Time { return s.capturedAt }

// Exists reports whether the given relative path existed at capture time.
// Exists("") reports whether the scope root itself was readable; an
// unreadable or missing scope yields an absent snapshot rather than an
// error, since absence of structure is itself a valid rule signal.
func (s *Snapshot) Exists(rel string) bool {
	if !s.exists {
		return false
	}
	_, ok := s.entries[norm(rel)]
	return ok
}

// IsDir reports whether the given relative path is a directory.
func (s *Snapshot) IsDir(rel string) bool {
	e, ok := s.entries[norm(rel)]
	return ok && e.IsDir
}

// Size returns the size in bytes of the file at rel, or 0 if absent.
func (s *Snapshot) Size(rel string) int64 {
	e, ok := s.entries[norm(rel)]
	if !ok {
		return 0
	}
	return e.Size
}

// Children returns the sorted child names of the directory at rel.
// Nil for files and absent paths.
func (s *Snapshot) Children(rel string) []string {
	return s.children[norm(rel)]
}

// FileCount returns the number of regular files under rel, recursively.
func (s *Snapshot) FileCount(rel string) int {
	prefix := norm(rel)
	if prefix != "" {
		prefix += "/"
	}
	n := 0
	for p, e := range s.entries {
		if e.IsDir {
			continue
		}
		if prefix == "" || strings.HasPrefix(p, prefix) {
			if p != "" {
				n++
			}
		}
	}
	return n
}

// TotalFiles returns the number of regular files in the whole scope.
func (s *Snapshot) TotalFiles() int64 { return s.fileTotal }

// Glob returns the sorted relative paths matching pattern. The pattern is
// matched against both the slash-separated relative path and the base name,
// mirroring how exclusion patterns match in common scan tools.
func (s *Snapshot) Glob(pattern string) []string {
	var out []string
	for p := range s.entries {
		if p == "" {
			continue
		}
		if ok, err := path.Match(pattern, p); err == nil && ok {
			out = append(out, p)
			continue
		}
		if ok, err := path.Match(pattern, path.Base(p)); err == nil && ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// norm canonicalizes a relative lookup path: forward slashes, no leading
// "./", "" for the scope root.
func norm(rel string) string {
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == "." || rel == "/" {
		return ""
	}
	return strings.TrimPrefix(rel, "/")
}
