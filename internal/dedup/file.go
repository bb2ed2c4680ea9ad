package dedup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// FileStore persists the mapping as an indented JSON document, written
// atomically (temp file + rename).
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Load reads the mapping document, returning a fresh empty mapping when
// the file does not exist yet.
func (s *FileStore) Load(_ context.Context) (*Mapping, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewMapping(s.now()), nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dedup: read store %s", s.path)
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "dedup: parse store %s", s.path)
	}
	m.ensure()
	if m.Version == "" {
		m.Version = schemaVersion
	}
	return &m, nil
}

// Save bumps the run counter and last-updated timestamp, then atomically
// replaces the store file.
func (s *FileStore) Save(_ context.Context, m *Mapping) error {
	m.Metadata.TotalRuns++
	m.Metadata.LastUpdated = s.now().UTC().Format(time.RFC3339)
	if m.Metadata.Version == "" {
		m.Metadata.Version = schemaVersion
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "dedup: marshal store")
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "dedup: create store dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".dedup-*.json")
	if err != nil {
		return eris.Wrap(err, "dedup: create temp store file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "dedup: write temp store file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "dedup: close temp store file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "dedup: replace store %s", s.path)
	}
	return nil
}
