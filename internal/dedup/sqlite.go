package dedup

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the mapping in an embedded SQLite database. Inserts
// are INSERT OR IGNORE so the store stays monotone, and each Save runs in
// a single transaction for atomicity.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (creating if needed) a SQLite dedup store and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "dedup: open sqlite store")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "dedup: exec %s", pragma)
		}
	}
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dedup_hashes (
	data_hash TEXT PRIMARY KEY,
	dedup_key TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS dedup_members (
	dedup_key TEXT NOT NULL,
	data_hash TEXT NOT NULL,
	PRIMARY KEY (dedup_key, data_hash)
);
CREATE TABLE IF NOT EXISTS dedup_identifiers (
	dedup_key  TEXT NOT NULL,
	identifier TEXT NOT NULL,
	PRIMARY KEY (dedup_key, identifier)
);
CREATE TABLE IF NOT EXISTS dedup_meta (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dedup_hashes_key ON dedup_hashes(dedup_key);
`

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(sqliteSchema)
	return eris.Wrap(err, "dedup: migrate sqlite store")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the full mapping into memory. Member and identifier lists
// come back in rowid (insertion) order.
func (s *SQLiteStore) Load(ctx context.Context) (*Mapping, error) {
	m := NewMapping(s.now())

	rows, err := s.db.QueryContext(ctx, `SELECT data_hash, dedup_key FROM dedup_hashes ORDER BY rowid`)
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

	memberRows, err := s.db.QueryContext(ctx, `SELECT dedup_key, data_hash FROM dedup_members ORDER BY rowid`)
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

	idRows, err := s.db.QueryContext(ctx, `SELECT dedup_key, identifier FROM dedup_identifiers ORDER BY rowid`)
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

	if err := s.loadMeta(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SQLiteStore) loadMeta(ctx context.Context, m *Mapping) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM dedup_meta`)
	if err != nil {
		return eris.Wrap(err, "dedup: load meta")
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return eris.Wrap(err, "dedup: scan meta row")
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
	return eris.Wrap(rows.Err(), "dedup: iterate meta rows")
}

// Save upserts the mapping's indices and bumps the run metadata inside a
// single transaction.
func (s *SQLiteStore) Save(ctx context.Context, m *Mapping) error {
	m.Metadata.TotalRuns++
	m.Metadata.LastUpdated = s.now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "dedup: begin save tx")
	}
	defer tx.Rollback()

	for hash, key := range m.HashToKey {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO dedup_hashes (data_hash, dedup_key) VALUES (?, ?)`,
			hash, key,
		); err != nil {
			return eris.Wrap(err, "dedup: save hash")
		}
	}
	for key, hashes := range m.KeyToHashes {
		for _, hash := range hashes {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO dedup_members (dedup_key, data_hash) VALUES (?, ?)`,
				key, hash,
			); err != nil {
				return eris.Wrap(err, "dedup: save member")
			}
		}
	}
	for key, ids := range m.KeyToIdentifiers {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO dedup_identifiers (dedup_key, identifier) VALUES (?, ?)`,
				key, id,
			); err != nil {
				return eris.Wrap(err, "dedup: save identifier")
			}
		}
	}

	meta := map[string]string{
		"created_at":   m.Metadata.CreatedAt,
		"last_updated": m.Metadata.LastUpdated,
		"total_runs":   strconv.Itoa(m.Metadata.TotalRuns),
		"version":      schemaVersion,
	}
	for name, value := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dedup_meta (name, value) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
			name, value,
		); err != nil {
			return eris.Wrap(err, "dedup: save meta")
		}
	}

	return eris.Wrap(tx.Commit(), "dedup: commit save tx")
}
