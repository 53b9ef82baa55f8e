package view

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// CachePathNotFoundError is returned when the cache directory does not
// exist.
type CachePathNotFoundError struct {
	Path string
}

func (e *CachePathNotFoundError) Error() string {
	return fmt.Sprintf("view: cache path %q not found", e.Path)
}

func (e *CachePathNotFoundError) Unwrap() error { return fs.ErrNotExist }

// Cache stores rendered views as files under a directory and serves them
// again while they are younger than the TTL. A new Cache is disabled.
//
//	cache, err := view.NewCache(engine, "./cache/views")
//	cache.Enable(5 * time.Minute)
//	err = cache.Render(w, r.URL.Path, "home/index", data)
type Cache struct {
	engine *Engine
	dir    string

	mu      sync.RWMutex
	enabled bool
	ttl     time.Duration
}

// NewCache creates a disabled cache for engine writing under dir, which must
// exist.
func NewCache(engine *Engine, dir string) (*Cache, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &CachePathNotFoundError{Path: dir}
	}
	return &Cache{engine: engine, dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Enable turns caching on; entries stay valid for ttl.
func (c *Cache) Enable(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
	c.ttl = ttl
}

// Disable turns caching off. Existing files are kept but no longer served.
func (c *Cache) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

// IsEnabled returns true if caching is on.
func (c *Cache) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// IsValid returns true if caching is on and key has an entry younger than
// the TTL.
func (c *Cache) IsValid(key string) bool {
	c.mu.RLock()
	enabled, ttl := c.enabled, c.ttl
	c.mu.RUnlock()
	if !enabled {
		return false
	}
	info, err := os.Stat(c.file(key))
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < ttl
}

// Render writes the cached entry for key when it is valid. Otherwise it
// renders name with data, stores the output under key when caching is on,
// and writes it.
func (c *Cache) Render(w io.Writer, key, name string, data any) error {
	if c.IsValid(key) {
		out, err := os.ReadFile(c.file(key))
		if err == nil {
			setHTML(w)
			_, err = w.Write(out)
			return err
		}
	}

	var buf bytes.Buffer
	if err := c.engine.Render(&buf, name, data); err != nil {
		return err
	}
	if c.IsEnabled() {
		if err := c.store(key, buf.Bytes()); err != nil {
			return err
		}
	}
	setHTML(w)
	_, err := w.Write(buf.Bytes())
	return err
}

// Forget removes the entry for key.
func (c *Cache) Forget(key string) error {
	err := os.Remove(c.file(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("view: removing cache entry: %w", err)
	}
	return nil
}

func (c *Cache) file(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%016x.html", xxhash.Sum64String(key)))
}

// store writes through a temporary file so readers never see a partial entry.
func (c *Cache) store(key string, out []byte) error {
	tmp, err := os.CreateTemp(c.dir, "view-*.tmp")
	if err != nil {
		return fmt.Errorf("view: writing cache entry: %w", err)
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("view: writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("view: writing cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.file(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("view: writing cache entry: %w", err)
	}
	return nil
}
