// Package fscache provides a time-bounded cache of filesystem structure.
// One directory walk per scope per TTL window serves every structural
// lookup (existence, child lists, file counts) from memory until expiry.
package fscache

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/verity/pkg/verity/logging"
)

// DefaultTTL is the cache lifetime used when none is configured. It sits
// in the middle of the useful range: long enough that a whole validation
// run pays for one scan per scope, short enough to notice edits between
// runs in watch mode.
const DefaultTTL = 60 * time.Second

var logger = logging.Get("fscache")

// Stats reports cache observability counters.
type Stats struct {
	Hits     int64
	Misses   int64
	LastScan time.Duration
}

type cacheEntry struct {
	snap       *Snapshot
	capturedAt time.Time
}

// Cache serves snapshots of filesystem scopes, rescanning a scope only
// when its entry is older than the TTL. Safe for concurrent use: hits take
// a read lock only; the single write lock guards entry replacement.
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]*cacheEntry

	hits     atomic.Int64
	misses   atomic.Int64
	lastScan atomic.Int64

	// now is replaceable for TTL tests.
	now func() time.Time
}

// New creates a cache with the given TTL. Non-positive ttl falls back to
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// TTL returns the configured cache lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the snapshot for scope, scanning the filesystem only if no
// live entry exists. A live entry is served with zero I/O. The returned
// snapshot is immutable and safe to share across workers.
func (c *Cache) Get(scope string) *Snapshot {
	scope = cleanScope(scope)

	c.mu.RLock()
	if e, ok := c.entries[scope]; ok && c.now().Sub(e.capturedAt) <= c.ttl {
		c.mu.RUnlock()
		c.hits.Add(1)
		return e.snap
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another worker may have rescanned while we waited for the lock.
	if e, ok := c.entries[scope]; ok && c.now().Sub(e.capturedAt) <= c.ttl {
		c.hits.Add(1)
		return e.snap
	}

	c.misses.Add(1)
	start := time.Now()
	snap := c.scan(scope)
	c.lastScan.Store(int64(time.Since(start)))

	// Replace the entry atomically; a miss never partially updates.
	c.entries[scope] = &cacheEntry{snap: snap, capturedAt: c.now()}

	logger.Debug("scope scanned",
		"scope", scope,
		"entries", len(snap.entries),
		"files", snap.TotalFiles(),
		"elapsed", time.Since(start))

	return snap
}

// Invalidate drops the entries for the given scopes. With no arguments it
// clears the whole cache.
func (c *Cache) Invalidate(scopes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(scopes) == 0 {
		c.entries = make(map[string]*cacheEntry)
		return
	}
	for _, s := range scopes {
		delete(c.entries, cleanScope(s))
	}
}

// InvalidateContaining drops every cached scope that contains the given
// absolute path. Used by the watcher to expire scopes on file events.
func (c *Cache) InvalidateContaining(p string) {
	p = cleanScope(p)

	c.mu.Lock()
	defer c.mu.Unlock()

	for scope := range c.entries {
		if p == scope || strings.HasPrefix(p, scope+string(filepath.Separator)) {
			delete(c.entries, scope)
		}
	}
}

// Stats returns the hit/miss counters and the duration of the last scan.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		LastScan: time.Duration(c.lastScan.Load()),
	}
}

// scan walks one scope and builds its snapshot. An unreadable scope yields
// an absent snapshot; scan failures on individual children are skipped, so
// rules observe partial structure rather than errors.
func (c *Cache) scan(scope string) *Snapshot {
	snap := &Snapshot{
		scope:      scope,
		capturedAt: c.now(),
		entries:    make(map[string]Entry),
		children:   make(map[string][]string),
	}

	conf := fastwalk.Config{Follow: false}

	// fastwalk invokes the callback from multiple goroutines; entryMu
	// guards the snapshot maps until the snapshot is published.
	var entryMu sync.Mutex

	walkErr := fastwalk.Walk(&conf, scope, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == scope {
				return err
			}
			return nil
		}

		rel := ""
		if p != scope {
			rel = filepath.ToSlash(strings.TrimPrefix(p, scope+string(filepath.Separator)))
		}

		switch {
		case d.IsDir():
			entryMu.Lock()
			snap.addEntry(rel, Entry{IsDir: true})
			entryMu.Unlock()
		case d.Type().IsRegular():
			var size int64
			if info, infoErr := d.Info(); infoErr == nil {
				size = info.Size()
			}
			entryMu.Lock()
			snap.addEntry(rel, Entry{Size: size})
			snap.fileTotal++
			entryMu.Unlock()
		}
		// Symlinks and special files carry no structural signal.
		return nil
	})

	if walkErr != nil {
		logger.Debug("scope unreadable, treating as absent", "scope", scope, "error", walkErr)
		return &Snapshot{
			scope:      scope,
			capturedAt: c.now(),
			entries:    make(map[string]Entry),
			children:   make(map[string][]string),
		}
	}

	snap.exists = true
	snap.sortChildren()
	return snap
}

// addEntry records one walked path and registers it with its parent.
// Called only during scan, before the snapshot is published.
func (s *Snapshot) addEntry(rel string, e Entry) {
	s.entries[rel] = e
	if rel == "" {
		return
	}
	parent := ""
	name := rel
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		parent, name = rel[:i], rel[i+1:]
	}
	s.children[parent] = append(s.children[parent], name)
}

func (s *Snapshot) sortChildren() {
	for _, names := range s.children {
		sort.Strings(names)
	}
}

func cleanScope(scope string) string {
	abs, err := filepath.Abs(scope)
	if err != nil {
		return filepath.Clean(scope)
	}
	return abs
}
