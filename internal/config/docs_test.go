package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func TestDocsLoadAbsentAndMalformed(t *testing.T) {
	d := NewDocs()
	dir := t.TempDir()

	assert.Equal(t, []byte("{}"), d.Load(filepath.Join(dir, "missing.json")))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	assert.Equal(t, []byte("{}"), d.Load(bad))
}

func TestDocsLoadCachesByMtime(t *testing.T) {
	d := NewDocs()
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rules":{}}`), 0o644))

	first := d.Load(path)
	assert.JSONEq(t, `{"rules":{}}`, string(first))

	// Rewrite with a bumped mtime; the cache must refresh.
	require.NoError(t, os.WriteFile(path, []byte(`{"rules":{"r1":{}}}`), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	second := d.Load(path)
	assert.JSONEq(t, `{"rules":{"r1":{}}}`, string(second))
}

func TestDocsSaveAtomicAndInvalidates(t *testing.T) {
	d := NewDocs()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "settings.json")

	require.NoError(t, d.Save(path, map[string]any{"quality_scores": map[string]any{"email": 80}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// 4-space indent, trailing newline.
	assert.Contains(t, string(data), "    \"quality_scores\"")
	assert.Equal(t, byte('\n'), data[len(data)-1])

	loaded := d.Load(path)
	assert.JSONEq(t, string(data), string(loaded))

	// No leftover temp files.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
