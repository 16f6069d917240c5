// Package assets loads files referenced by a glTF document.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Faultbox/midgard-gltf/pkg/encoding"
)

// ErrNotFound is returned when no search root holds the file.
var ErrNotFound = errors.New("file not found")

// Manager resolves relative URIs against a list of search roots.
type Manager struct {
	roots []fs.FS
	names []string
	dirs  []string // OS directory per root, "" for non-directory roots
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a manager with no roots.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddDir adds a directory root.
// Roots are searched in reverse order (last added = highest priority).
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding search path %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding search path %s: not a directory", dir)
	}
	m.mu.Lock()
	m.roots = append(m.roots, os.DirFS(dir))
	m.names = append(m.names, dir)
	m.dirs = append(m.dirs, dir)
	m.mu.Unlock()
	return nil
}

// AddFS adds an arbitrary file system root.
func (m *Manager) AddFS(name string, root fs.FS) {
	m.mu.Lock()
	m.roots = append(m.roots, root)
	m.names = append(m.names, name)
	m.dirs = append(m.dirs, "")
	m.mu.Unlock()
}

// Load reads the file a relative URI refers to. Percent escapes are decoded.
func (m *Manager) Load(uri string) ([]byte, error) {
	rel, err := encoding.RelativePath(uri)
	if err != nil {
		return nil, err
	}
	if data, ok := m.cache.Get(rel); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !fs.ValidPath(rel) {
		return nil, fmt.Errorf("%w: %s escapes the document directory", ErrNotFound, uri)
	}
	for i := len(m.roots) - 1; i >= 0; i-- {
		data, err := fs.ReadFile(m.roots[i], rel)
		if err == nil {
			m.cache.Set(rel, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s from %s: %w", rel, m.names[i], err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
}

// Locate returns the OS path of the file a URI refers to in the first
// directory root that has it, or "" when no directory root does.
func (m *Manager) Locate(uri string) string {
	rel, err := encoding.RelativePath(uri)
	if err != nil || !fs.ValidPath(rel) {
		return ""
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.roots) - 1; i >= 0; i-- {
		if m.dirs[i] == "" {
			continue
		}
		if _, err := fs.Stat(m.roots[i], rel); err == nil {
			return filepath.Join(m.dirs[i], filepath.FromSlash(rel))
		}
	}
	return ""
}

// Close drops all roots and cached data.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roots = nil
	m.names = nil
	m.dirs = nil
	m.cache.Clear()
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Cache is a simple in-memory cache for loaded files.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
