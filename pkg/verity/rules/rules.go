// Package rules provides the builtin structural rule kinds and the YAML
// manifest loader that turns a rule catalog into registry entries. The
// kinds here define the boundary contract for rule implementations; larger
// catalogs plug in through the same rule.Rule interface.
package rules

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/verity/pkg/verity/fscache"
	"github.com/jamesainslie/verity/pkg/verity/rule"
)

// Rule kinds understood by the manifest loader.
const (
	KindPathExists  = "path_exists"
	KindPathAbsent  = "path_absent"
	KindDirExists   = "dir_exists"
	KindMaxEntries  = "max_entries"
	KindMaxFiles    = "max_files"
	KindMaxSize     = "max_size"
	KindForbidGlob  = "forbid_glob"
	KindRequireGlob = "require_glob"
)

// structuralRule is one manifest-defined check bound to a scan root.
// Everything it needs at execution time comes from the cache snapshot, so
// executions are side-effect-free and safe to run concurrently.
type structuralRule struct {
	id      string
	group   int
	kind    string
	root    string
	path    string
	pattern string
	max     int
}

func (r *structuralRule) ID() string { return r.id }
func (r *structuralRule) Group() int { return r.group }

func (r *structuralRule) Execute(ctx context.Context, fs *fscache.Cache) (rule.Result, error) {
	if err := ctx.Err(); err != nil {
		return rule.Result{}, err
	}

	snap := fs.Get(r.root)

	switch r.kind {
	case KindPathExists:
		if snap.Exists(r.path) {
			return rule.Pass(), nil
		}
		return rule.Fail(fmt.Sprintf("%s: required path missing", r.path)), nil

	case KindPathAbsent:
		if !snap.Exists(r.path) {
			return rule.Pass(), nil
		}
		return rule.Fail(fmt.Sprintf("%s: forbidden path present", r.path)), nil

	case KindDirExists:
		if snap.Exists(r.path) && snap.IsDir(r.path) {
			return rule.Pass(), nil
		}
		if snap.Exists(r.path) {
			return rule.Fail(fmt.Sprintf("%s: exists but is not a directory", r.path)), nil
		}
		return rule.Fail(fmt.Sprintf("%s: required directory missing", r.path)), nil

	case KindMaxEntries:
		children := snap.Children(r.path)
		if len(children) <= r.max {
			return rule.Pass(), nil
		}
		return rule.Fail(fmt.Sprintf("%s: %d entries, limit %d", r.path, len(children), r.max)), nil

	case KindMaxFiles:
		count := snap.FileCount(r.path)
		if count <= r.max {
			return rule.Pass(), nil
		}
		return rule.Fail(fmt.Sprintf("%s: %d files, limit %d", r.path, count, r.max)), nil

	case KindMaxSize:
		if !snap.Exists(r.path) || snap.IsDir(r.path) {
			return rule.Fail(fmt.Sprintf("%s: not a regular file", r.path)), nil
		}
		if size := snap.Size(r.path); size > int64(r.max) {
			return rule.Fail(fmt.Sprintf("%s: %s, limit %s",
				r.path, humanize.Bytes(uint64(size)), humanize.Bytes(uint64(r.max)))), nil
		}
		return rule.Pass(), nil

	case KindForbidGlob:
		if matches := snap.Glob(r.pattern); len(matches) > 0 {
			return rule.Fail(fmt.Sprintf("%s: forbidden match %s", r.pattern, matches[0])), nil
		}
		return rule.Pass(), nil

	case KindRequireGlob:
		if matches := snap.Glob(r.pattern); len(matches) > 0 {
			return rule.Pass(), nil
		}
		return rule.Fail(fmt.Sprintf("%s: no match in tree", r.pattern)), nil

	default:
		return rule.Result{}, fmt.Errorf("unknown rule kind %q", r.kind)
	}
}
