package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Docs serves the JSON configuration documents (rules, column metadata,
// settings) with per-path caching keyed by file mtime. An absent file
// reads as an empty document; a malformed one logs a warning and reads as
// empty so a broken config never takes the pipeline down.
type Docs struct {
	mu      sync.Mutex
	entries map[string]docEntry
}

type docEntry struct {
	mtime time.Time
	data  []byte
}

var emptyDoc = []byte("{}")

// NewDocs creates an empty document cache.
func NewDocs() *Docs {
	return &Docs{entries: map[string]docEntry{}}
}

// Load returns the raw JSON document at path. The cached copy is reused
// while the file's mtime is unchanged.
func (d *Docs) Load(path string) []byte {
	info, err := os.Stat(path)
	if err != nil {
		return emptyDoc
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.entries[path]; ok && e.mtime.Equal(info.ModTime()) {
		return e.data
	}

	data, err := os.ReadFile(path)
	if err != nil {
		zap.L().Warn("config document unreadable",
			zap.String("component", "config"),
			zap.String("path", path),
			zap.Error(err))
		return emptyDoc
	}
	if !json.Valid(data) {
		zap.L().Warn("config document malformed, treating as empty",
			zap.String("component", "config"),
			zap.String("path", path))
		data = emptyDoc
	}

	d.entries[path] = docEntry{mtime: info.ModTime(), data: data}
	return data
}

// Save atomically replaces the document at path with the 4-space-indented
// JSON encoding of v and invalidates the cached copy.
func (d *Docs) Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return eris.Wrapf(err, "config: marshal document %s", path)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "config: create document dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".doc-*.json")
	if err != nil {
		return eris.Wrap(err, "config: create temp document")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "config: write temp document")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "config: close temp document")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "config: replace document %s", path)
	}

	d.mu.Lock()
	delete(d.entries, path)
	d.mu.Unlock()
	return nil
}
