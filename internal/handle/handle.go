// Package handle maintains the process-wide cache of open index handles.
package handle

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
	"github.com/antflydb/tinyfinder/internal/schema"
)

// schemaFileName is the side-car file recording declared field configs next
// to each index's segment directory, so RehydrateAll can reconstruct the
// fast/stored/indexed/analyzer metadata bleve's own mapping does not
// round-trip distinctly enough for our FieldConfig shape.
const schemaFileName = "tinyfinder_schema.json"

// Handle is the cached state for one open index: its bleve index, schema,
// a write-serializing mutex, and the declared field configs.
type Handle struct {
	Name   string
	Index  bleve.Index
	Schema schema.Schema

	// writeMu serializes add/delete + commit sequences for this index.
	// bleve indexes already support concurrent Index/Delete/Search calls,
	// but the handle still funnels writers through one mutex so that a
	// mutation's visibility is linearizable from the issuer's viewpoint.
	writeMu sync.Mutex
}

// Lock acquires the handle's writer lock. Callers must Unlock when their
// add/delete + commit sequence completes.
func (h *Handle) Lock()   { h.writeMu.Lock() }
func (h *Handle) Unlock() { h.writeMu.Unlock() }

// Cache is the process-wide name -> Handle map.
type Cache struct {
	baseDir string
	logger  *zap.Logger

	mu      sync.RWMutex
	handles map[string]*Handle
}

// New creates an empty cache rooted at baseDir. baseDir is created if absent.
func New(baseDir string, logger *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create index base dir: %w", err)
	}
	return &Cache{
		baseDir: baseDir,
		logger:  logger,
		handles: make(map[string]*Handle),
	}, nil
}

// path returns the on-disk directory for a named index.
func (c *Cache) path(name string) string {
	return filepath.Join(c.baseDir, name)
}

// Path exposes the on-disk directory for a named index, for callers (e.g.
// index stats) that need to walk it directly.
func (c *Cache) Path(name string) string {
	return c.path(name)
}

// Create builds a new schema, opens a fresh bleve index for it, persists the
// field declarations alongside it, and registers the resulting handle.
// Returns an error if name is already in use.
func (c *Cache) Create(name string, fields []schema.FieldConfig) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.handles[name]; exists {
		return nil, fmt.Errorf("index %q already exists", name)
	}

	im, err := schema.Build(fields)
	if err != nil {
		return nil, err
	}

	dir := c.path(name)
	idx, err := bleve.New(dir, im)
	if err != nil {
		return nil, fmt.Errorf("create index %q: %w", name, err)
	}

	if err := writeSchemaFile(dir, fields); err != nil {
		_ = idx.Close()
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("persist schema for index %q: %w", name, err)
	}

	h := &Handle{Name: name, Index: idx, Schema: schema.Schema{Fields: fields}}
	c.handles[name] = h
	return h, nil
}

// Get returns the cached handle for name, or false if no such index is open.
func (c *Cache) Get(name string) (*Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handles[name]
	return h, ok
}

// Names returns every currently open index name.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.handles))
	for n := range c.handles {
		names = append(names, n)
	}
	return names
}

// Delete closes and drops the handle for name, then removes its directory.
// The handle entry is removed before the directory is deleted, so an
// in-flight request that already holds a reference to the old handle can
// finish safely but no new lookup will find it.
func (c *Cache) Delete(name string) error {
	c.mu.Lock()
	h, ok := c.handles[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("index %q not found", name)
	}
	delete(c.handles, name)
	c.mu.Unlock()

	if err := h.Index.Close(); err != nil {
		c.logger.Warn("error closing index before delete", zap.String("index", name), zap.Error(err))
	}
	if err := os.RemoveAll(c.path(name)); err != nil {
		return fmt.Errorf("remove index directory %q: %w", name, err)
	}
	return nil
}

// RehydrateAll opens every subdirectory of the base path as an index,
// reconstructing its schema from the side-car schema file written at
// creation time. Failures are logged and the offending directory is skipped
// rather than aborting startup.
func (c *Cache) RehydrateAll() error {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return fmt.Errorf("scan index base dir: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := c.path(name)

		fields, err := readSchemaFile(dir)
		if err != nil {
			c.logger.Warn("skipping index with unreadable schema", zap.String("dir", name), zap.Error(err))
			continue
		}

		idx, err := bleve.Open(dir)
		if err != nil {
			c.logger.Warn("skipping unopenable index directory", zap.String("dir", name), zap.Error(err))
			continue
		}

		c.handles[name] = &Handle{Name: name, Index: idx, Schema: schema.Schema{Fields: fields}}
	}
	return nil
}

func writeSchemaFile(dir string, fields []schema.FieldConfig) error {
	data, err := jsonutil.MarshalIndent(fields, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(filepath.Join(dir, schemaFileName), bytes.NewReader(data))
}

func readSchemaFile(dir string) ([]schema.FieldConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, schemaFileName))
	if err != nil {
		return nil, err
	}
	var fields []schema.FieldConfig
	if err := jsonutil.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode schema file: %w", err)
	}
	return fields, nil
}
