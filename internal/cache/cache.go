// Package cache stores parsed API responses on disk, keyed by request hash
// and bounded in total size.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pders01/idgames/internal/debuglog"
	"github.com/pders01/idgames/internal/idgames"
	"github.com/pders01/idgames/internal/metrics"
)

const (
	// Extension is the suffix of every cached response file.
	Extension = ".igc"
	// VersionFile holds the format version the directory was written with.
	VersionFile = "idgames.version"
	// DefaultMaxSize bounds the cache when no size is configured.
	DefaultMaxSize int64 = 5 << 20
	// Version is the current cache file format version.
	Version = 1

	tempPattern = "*.igc.tmp"
	tempSuffix  = ".tmp"
)

type entry struct {
	path    string
	size    int64
	modTime time.Time
	seq     uint64
}

// older reports whether e should be pruned before o.
func (e *entry) older(o *entry) bool {
	if !e.modTime.Equal(o.modTime) {
		return e.modTime.Before(o.modTime)
	}
	return e.seq < o.seq
}

// Stats describes the cache contents.
type Stats struct {
	Dir     string
	Entries int
	Size    int64
	MaxSize int64
}

// Cache manages cached responses in a single directory. It is safe for
// concurrent use; lookups share the lock, writes and pruning hold it
// exclusively.
type Cache struct {
	dir     string
	maxSize int64
	version int

	mu      sync.RWMutex
	entries map[string]*entry
	size    int64
	seq     uint64

	now func() time.Time
}

// New opens the cache in dir, creating it if needed. A directory written
// with a different format version is wiped. maxSize <= 0 selects
// DefaultMaxSize and version <= 0 selects Version.
func New(dir string, maxSize int64, version int) (*Cache, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if version <= 0 {
		version = Version
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{
		dir:     dir,
		maxSize: maxSize,
		version: version,
		entries: make(map[string]*entry),
		now:     time.Now,
	}

	if !c.versionMatches() {
		debuglog.Infof("cache: version mismatch in %s, clearing", dir)
		if err := c.wipe(); err != nil {
			return nil, err
		}
		if err := c.writeVersion(); err != nil {
			return nil, err
		}
	}

	if err := c.scan(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.prune()
	c.mu.Unlock()

	return c, nil
}

type versionMarker struct {
	Version int `json:"version"`
}

func (c *Cache) versionMatches() bool {
	data, err := os.ReadFile(filepath.Join(c.dir, VersionFile))
	if err != nil {
		return false
	}
	var m versionMarker
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	return m.Version != 0 && m.Version == c.version
}

func (c *Cache) writeVersion() error {
	data, err := json.Marshal(versionMarker{Version: c.version})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(c.dir, VersionFile), data, 0o644); err != nil {
		return fmt.Errorf("write cache version: %w", err)
	}
	return nil
}

// wipe removes every cache file and the version marker.
func (c *Cache) wipe() error {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || !(strings.HasSuffix(name, Extension) || name == VersionFile) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// scan rebuilds the index from the directory. Leftover temp files from an
// interrupted write are removed.
func (c *Cache) scan() error {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}

	var found []*entry
	keys := make(map[*entry]string)
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() {
			continue
		}
		if strings.HasSuffix(name, tempSuffix) {
			os.Remove(filepath.Join(c.dir, name))
			continue
		}
		if !strings.HasSuffix(name, Extension) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		e := &entry{
			path:    filepath.Join(c.dir, name),
			size:    info.Size(),
			modTime: info.ModTime(),
		}
		found = append(found, e)
		keys[e] = strings.TrimSuffix(name, Extension)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].modTime.Before(found[j].modTime) })

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range found {
		c.seq++
		e.seq = c.seq
		c.entries[keys[e]] = e
		c.size += e.size
	}
	metrics.SetCacheSize(c.size)
	debuglog.Debugf("cache: indexed %d files (%d bytes) in %s", len(found), c.size, c.dir)
	return nil
}

// Get returns the cached response for req if one exists and is younger
// than maxAge. maxAge <= 0 never matches. Unreadable or corrupt files count
// as a miss and are left in place.
func (c *Cache) Get(req *idgames.Request, maxAge time.Duration) (*idgames.Response, bool) {
	key := req.Hash()

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		metrics.RecordCacheLookup(metrics.LookupMiss)
		return nil, false
	}
	if maxAge <= 0 || c.now().Sub(e.modTime) >= maxAge {
		metrics.RecordCacheLookup(metrics.LookupStale)
		return nil, false
	}

	data, err := os.ReadFile(e.path)
	if err != nil {
		debuglog.Warnf("cache: reading %s: %v", e.path, err)
		metrics.RecordCacheLookup(metrics.LookupCorrupt)
		return nil, false
	}

	resp := &idgames.Response{}
	if err := json.Unmarshal(data, resp); err != nil {
		debuglog.Warnf("cache: decoding %s: %v", e.path, err)
		metrics.RecordCacheLookup(metrics.LookupCorrupt)
		return nil, false
	}

	metrics.RecordCacheLookup(metrics.LookupHit)
	return resp, true
}

// Put stores resp under req's hash. The file is written to a temp file and
// renamed into place, so readers never see a partial entry.
func (c *Cache) Put(req *idgames.Request, resp *idgames.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	key := req.Hash()
	path := filepath.Join(c.dir, key+Extension)

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.CreateTemp(c.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := f.Name()

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("write cache file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	if old, ok := c.entries[key]; ok {
		c.size -= old.size
	}
	c.seq++
	c.entries[key] = &entry{
		path:    path,
		size:    int64(len(data)),
		modTime: c.now(),
		seq:     c.seq,
	}
	c.size += int64(len(data))

	c.prune()
	return nil
}

// prune deletes the oldest entries until the total fits. Must be called
// with the write lock held.
func (c *Cache) prune() {
	for c.size > c.maxSize && len(c.entries) > 0 {
		var oldestKey string
		var oldest *entry
		for k, e := range c.entries {
			if oldest == nil || e.older(oldest) {
				oldest, oldestKey = e, k
			}
		}

		if err := os.Remove(oldest.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			debuglog.Warnf("cache: removing %s: %v", oldest.path, err)
		}
		c.size -= oldest.size
		delete(c.entries, oldestKey)
		metrics.RecordCacheEviction()
	}
	metrics.SetCacheSize(c.size)
}

// Remove drops the entry for req, if any.
func (c *Cache) Remove(req *idgames.Request) error {
	key := req.Hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	c.size -= e.size
	delete(c.entries, key)
	metrics.SetCacheSize(c.size)
	return nil
}

// Clear removes every cached response and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return count, fmt.Errorf("remove cache file: %w", err)
		}
		c.size -= e.size
		delete(c.entries, key)
		count++
	}
	metrics.SetCacheSize(c.size)
	return count, nil
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Dir:     c.dir,
		Entries: len(c.entries),
		Size:    c.size,
		MaxSize: c.maxSize,
	}
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}
