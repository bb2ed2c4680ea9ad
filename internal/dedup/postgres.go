package dedup

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists the mapping in Postgres for deployments where
// several hosts share one dedup store. Inserts are ON CONFLICT DO NOTHING
// so concurrent writers stay monotone; serialization of whole jobs is
// still the caller's responsibility.
type PostgresStore struct {
	pool Pool
	now  func() time.Time
}

// NewPostgres creates a Postgres-backed store on an existing pool.
func NewPostgres(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS dedup_hashes (
	data_hash TEXT PRIMARY KEY,
	dedup_key TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS dedup_members (
	seq        BIGSERIAL,
	dedup_key  TEXT NOT NULL,
	data_hash  TEXT NOT NULL,
	PRIMARY KEY (dedup_key, data_hash)
);
CREATE TABLE IF NOT EXISTS dedup_identifiers (
	seq        BIGSERIAL,
	dedup_key  TEXT NOT NULL,
	identifier TEXT NOT NULL,
	PRIMARY KEY (dedup_key, identifier)
);
CREATE TABLE IF NOT EXISTS dedup_meta (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dedup_hashes_key ON dedup_hashes(dedup_key)`

// Migrate creates the store tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return eris.Wrap(err, "dedup: migrate postgres store")
}

// Load reads the full mapping into memory, preserving insertion order of
// member and identifier lists via their sequence columns.
func (s *PostgresStore) Load(ctx context.Context) (*Mapping, error) {
	m := NewMapping(s.now())

	rows, err := s.pool.Query(ctx, `SELECT data_hash, dedup_key FROM dedup_hashes`)
	if err != nil {
		return nil, eris.Wrap(err, "dedup: load hashes")
	}
	defer rows.Close()
	for rows.Next() {
		var hash, key string
		if err := rows.Scan(&hash, &key); err != nil {
			return nil, eris.Wrap(err, "dedup: scan hash row")
		}
		m.HashToKey[hash] = key
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "dedup: iterate hash rows")
	}

	memberRows, err := s.pool.Query(ctx, `SELECT dedup_key, data_hash FROM dedup_members ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "dedup: load members")
	}
	defer memberRows.Close()
	for memberRows.Next() {
		var key, hash string
		if err := memberRows.Scan(&key, &hash); err != nil {
			return nil, eris.Wrap(err, "dedup: scan member row")
		}
		m.KeyToHashes[key] = append(m.KeyToHashes[key], hash)
	}
	if err := memberRows.Err(); err != nil {
		return nil, eris.Wrap(err, "dedup: iterate member rows")
	}

	idRows, err := s.pool.Query(ctx, `SELECT dedup_key, identifier FROM dedup_identifiers ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "dedup: load identifiers")
	}
	defer idRows.Close()
	for idRows.Next() {
		var key, id string
		if err := idRows.Scan(&key, &id); err != nil {
			return nil, eris.Wrap(err, "dedup: scan identifier row")
		}
		m.KeyToIdentifiers[key] = append(m.KeyToIdentifiers[key], id)
	}
	if err := idRows.Err(); err != nil {
		return nil, eris.Wrap(err, "dedup: iterate identifier rows")
	}

	metaRows, err := s.pool.Query(ctx, `SELECT name, value FROM dedup_meta`)
	if err != nil {
		return nil, eris.Wrap(err, "dedup: load meta")
	}
	defer metaRows.Close()
	for metaRows.Next() {
		var name, value string
		if err := metaRows.Scan(&name, &value); err != nil {
			return nil, eris.Wrap(err, "dedup: scan meta row")
		}
		switch name {
		case "created_at":
			m.Metadata.CreatedAt = value
		case "last_updated":
			m.Metadata.LastUpdated = value
		case "total_runs":
			m.Metadata.TotalRuns = parseIntOr(value, 0)
		case "version":
			m.Metadata.Version = value
			m.Version = value
		}
	}
	if err := metaRows.Err(); err != nil {
		return nil, eris.Wrap(err, "dedup: iterate meta rows")
	}

	return m, nil
}

// Save upserts the mapping's indices with DO NOTHING conflict handling and
// bumps the run metadata.
func (s *PostgresStore) Save(ctx context.Context, m *Mapping) error {
	m.Metadata.TotalRuns++
	m.Metadata.LastUpdated = s.now().UTC().Format(time.RFC3339)

	for hash, key := range m.HashToKey {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO dedup_hashes (data_hash, dedup_key) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			hash, key,
		); err != nil {
			return eris.Wrap(err, "dedup: save hash")
		}
	}
	for key, hashes := range m.KeyToHashes {
		for _, hash := range hashes {
			if _, err := s.pool.Exec(ctx,
				`INSERT INTO dedup_members (dedup_key, data_hash) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				key, hash,
			); err != nil {
				return eris.Wrap(err, "dedup: save member")
			}
		}
	}
	for key, ids := range m.KeyToIdentifiers {
		for _, id := range ids {
			if _, err := s.pool.Exec(ctx,
				`INSERT INTO dedup_identifiers (dedup_key, identifier) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				key, id,
			); err != nil {
				return eris.Wrap(err, "dedup: save identifier")
			}
		}
	}

	meta := [][2]string{
		{"created_at", m.Metadata.CreatedAt},
		{"last_updated", m.Metadata.LastUpdated},
		{"total_runs", strconv.Itoa(m.Metadata.TotalRuns)},
		{"version", schemaVersion},
	}
	for _, kv := range meta {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO dedup_meta (name, value) VALUES ($1, $2)
			 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`,
			kv[0], kv[1],
		); err != nil {
			return eris.Wrap(err, "dedup: save meta")
		}
	}

	return nil
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
