// Package quality scores the plausibility of email addresses and phone
// numbers on a 0-100 scale. The lookup sets behind the criteria live in a
// small SQLite table store and are seeded with defaults on first use.
package quality

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Metadata holds the lookup sets consulted by the scorers.
type Metadata struct {
	PersonalDomains    map[string]bool
	GenericPrefixes    map[string]bool
	DepartmentPrefixes map[string]bool
	TollFreeCodes      map[string]bool
}

// adminPrefixes is fixed: mailboxes that indicate a shared admin inbox.
var adminPrefixes = map[string]bool{
	"admin": true, "support": true, "help": true, "helpdesk": true, "service": true,
}

var (
	defaultPersonalDomains = []string{
		"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "aol.com",
		"icloud.com", "mail.com", "protonmail.com", "zoho.com", "yandex.com",
		"live.com", "msn.com", "comcast.net", "att.net", "verizon.net",
	}
	defaultGenericPrefixes = []string{
		"info", "contact", "sales", "support", "admin", "help", "service",
		"webmaster", "postmaster", "noreply", "no-reply", "hello", "enquiries",
	}
	defaultDepartmentPrefixes = []string{
		"hr", "finance", "marketing", "legal", "accounting", "billing",
		"operations", "engineering", "it", "tech", "development",
	}
	defaultTollFreeCodes = []string{"800", "888", "877", "866", "855", "844", "833"}
)

// Defaults returns in-code metadata without touching any store.
func Defaults() *Metadata {
	return &Metadata{
		PersonalDomains:    toSet(defaultPersonalDomains),
		GenericPrefixes:    toSet(defaultGenericPrefixes),
		DepartmentPrefixes: toSet(defaultDepartmentPrefixes),
		TollFreeCodes:      toSet(defaultTollFreeCodes),
	}
}

const metadataSchema = `
CREATE TABLE IF NOT EXISTS personal_domains (
	domain     TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS generic_prefixes (
	prefix     TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS department_prefixes (
	prefix     TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS toll_free_codes (
	code       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Load opens (creating if needed) the metadata database at dbPath, seeds
// the default sets when the store is empty, and returns the loaded sets.
// An empty dbPath returns Defaults without any I/O.
func Load(ctx context.Context, dbPath string) (*Metadata, error) {
	if dbPath == "" {
		return Defaults(), nil
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, eris.Wrap(err, "quality: open metadata db")
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		return nil, eris.Wrap(err, "quality: set busy timeout")
	}
	if _, err := db.ExecContext(ctx, metadataSchema); err != nil {
		return nil, eris.Wrap(err, "quality: create metadata schema")
	}

	if err := seedIfEmpty(ctx, db); err != nil {
		return nil, err
	}

	m := &Metadata{}
	for _, load := range []struct {
		query string
		dst   *map[string]bool
	}{
		{"SELECT domain FROM personal_domains", &m.PersonalDomains},
		{"SELECT prefix FROM generic_prefixes", &m.GenericPrefixes},
		{"SELECT prefix FROM department_prefixes", &m.DepartmentPrefixes},
		{"SELECT code FROM toll_free_codes", &m.TollFreeCodes},
	} {
		set, err := querySet(ctx, db, load.query)
		if err != nil {
			return nil, err
		}
		*load.dst = set
	}
	return m, nil
}

// seedIfEmpty populates the default sets when personal_domains has no rows.
func seedIfEmpty(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM personal_domains").Scan(&count); err != nil {
		return eris.Wrap(err, "quality: count personal domains")
	}
	if count > 0 {
		return nil
	}

	for _, seed := range []struct {
		insert string
		values []string
	}{
		{"INSERT OR IGNORE INTO personal_domains (domain) VALUES (?)", defaultPersonalDomains},
		{"INSERT OR IGNORE INTO generic_prefixes (prefix) VALUES (?)", defaultGenericPrefixes},
		{"INSERT OR IGNORE INTO department_prefixes (prefix) VALUES (?)", defaultDepartmentPrefixes},
		{"INSERT OR IGNORE INTO toll_free_codes (code) VALUES (?)", defaultTollFreeCodes},
	} {
		for _, v := range seed.values {
			if _, err := db.ExecContext(ctx, seed.insert, v); err != nil {
				return eris.Wrapf(err, "quality: seed %q", v)
			}
		}
	}
	return nil
}

func querySet(ctx context.Context, db *sql.DB, query string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "quality: %s", query)
	}
	defer rows.Close()

	set := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "quality: scan metadata row")
		}
		set[v] = true
	}
	return set, eris.Wrap(rows.Err(), "quality: iterate metadata rows")
}

func toSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}
