package dedup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.now = fixedNow
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	m := NewMapping(fixedNow())
	key, _ := m.GetOrCreate(record("CRM", "42", "Acme, Inc.", "123 Main St", "212-555-0100"))
	m.Link(key, record("WEB", "99", "Acme Corporation", "123 Main St", "212-555-0100"))

	require.NoError(t, s.Save(ctx, m))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.HashToKey, loaded.HashToKey)
	assert.Equal(t, m.KeyToHashes, loaded.KeyToHashes)
	assert.Equal(t, m.KeyToIdentifiers, loaded.KeyToIdentifiers)
	assert.Equal(t, 1, loaded.Metadata.TotalRuns)
	assert.Equal(t, "2.0", loaded.Version)
}

func TestSQLiteStoreSaveIsMonotone(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	m := NewMapping(fixedNow())
	key, _ := m.GetOrCreate(record("CRM", "42", "Acme, Inc.", "123 Main St", "212-555-0100"))
	require.NoError(t, s.Save(ctx, m))

	// Saving an overlapping mapping must not duplicate rows or rebind the
	// existing hash, only add the new entries.
	next, err := s.Load(ctx)
	require.NoError(t, err)
	next.Link(key, record("WEB", "99", "Acme Corporation", "123 Main St", "212-555-0100"))
	require.NoError(t, s.Save(ctx, next))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.HashToKey, 2)
	assert.Len(t, loaded.KeyToHashes[key], 2)
	assert.Equal(t, []string{"CRM:42", "WEB:99"}, loaded.KeyToIdentifiers[key])
	assert.Equal(t, 2, loaded.Metadata.TotalRuns)
}

func TestSQLiteStoreLoadEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)

	m, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, m.HashToKey)
	assert.Equal(t, 0, m.Metadata.TotalRuns)
}
