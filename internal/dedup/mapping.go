// Package dedup maintains the persistent mapping between record content
// hashes and stable dedup keys. Three backends implement the same Store
// interface: a JSON file (default wire format), SQLite, and Postgres for
// shared multi-job deployments. The mapping is monotone: hashes, members,
// and identifiers are only ever added, and a content hash is never rebound
// to a different key.
package dedup

import (
	"crypto/sha256"
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/matchkey/internal/normalize"
)

const schemaVersion = "2.0"

// Metadata tracks store lifecycle information.
type Metadata struct {
	CreatedAt   string `json:"created_at"`
	LastUpdated string `json:"last_updated"`
	TotalRuns   int    `json:"total_runs"`
	Version     string `json:"version"`
}

// Mapping is the in-memory dedup index. HashToKey is authoritative; the
// key-to-members and key-to-identifiers indices are its inverse image plus
// explicit links.
type Mapping struct {
	Version          string              `json:"version"`
	HashToKey        map[string]string   `json:"data_hash_to_key"`
	KeyToHashes      map[string][]string `json:"key_to_data_hashes"`
	KeyToIdentifiers map[string][]string `json:"key_to_identifiers"`
	Metadata         Metadata            `json:"metadata"`
}

// Store loads and persists a Mapping. Save must be atomic: a reader never
// observes a torn state.
type Store interface {
	Load(ctx context.Context) (*Mapping, error)
	Save(ctx context.Context, m *Mapping) error
}

// NewMapping returns an empty mapping with initialized indices.
func NewMapping(now time.Time) *Mapping {
	ts := now.UTC().Format(time.RFC3339)
	return &Mapping{
		Version:          schemaVersion,
		HashToKey:        map[string]string{},
		KeyToHashes:      map[string][]string{},
		KeyToIdentifiers: map[string][]string{},
		Metadata: Metadata{
			CreatedAt:   ts,
			LastUpdated: ts,
			TotalRuns:   0,
			Version:     schemaVersion,
		},
	}
}

// ensure initializes nil indices after decoding a partial document.
func (m *Mapping) ensure() {
	if m.HashToKey == nil {
		m.HashToKey = map[string]string{}
	}
	if m.KeyToHashes == nil {
		m.KeyToHashes = map[string][]string{}
	}
	if m.KeyToIdentifiers == nil {
		m.KeyToIdentifiers = map[string][]string{}
	}
}

// DataHash derives the content hash of a record: the first 16 hex chars of
// SHA-256 over SOURCE_TYPE|SOURCE_ID|company|address|phone with the
// identifying fields normalized.
func DataHash(record map[string]string) string {
	components := []string{
		strings.ToUpper(strings.TrimSpace(record["SOURCE_TYPE"])),
		strings.TrimSpace(record["SOURCE_ID"]),
		normalize.CompanyName(record["COMPANY_NAME"]),
		normalize.Address(record["ADDRESS_LINE_1"]),
		normalize.Phone(record["PHONE_NUMBER"]),
	}
	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

// Identifier returns the record's global identity "SOURCE_TYPE:SOURCE_ID".
func Identifier(record map[string]string) string {
	return record["SOURCE_TYPE"] + ":" + record["SOURCE_ID"]
}

// GetOrCreate returns the dedup key bound to the record's content hash,
// minting a fresh UUIDv4 and inserting into all three indices when the
// hash is unseen. The second return reports whether a key was minted.
func (m *Mapping) GetOrCreate(record map[string]string) (string, bool) {
	m.ensure()

	hash := DataHash(record)
	if key, ok := m.HashToKey[hash]; ok {
		return key, false
	}

	key := uuid.New().String()
	m.HashToKey[hash] = key
	m.KeyToHashes[key] = []string{hash}
	m.KeyToIdentifiers[key] = []string{Identifier(record)}
	return key, true
}

// Link attaches a record to an existing dedup key: the content hash joins
// the key's member list and the identifier joins the identifier list, both
// deduplicated. The hash-to-key binding is only written when absent; an
// existing binding is never changed.
func (m *Mapping) Link(key string, record map[string]string) {
	m.ensure()

	hash := DataHash(record)
	if _, bound := m.HashToKey[hash]; !bound {
		m.HashToKey[hash] = key
	}
	m.KeyToHashes[key] = appendUnique(m.KeyToHashes[key], hash)
	m.KeyToIdentifiers[key] = appendUnique(m.KeyToIdentifiers[key], Identifier(record))
}

// MatchedIdentifiers returns the identifiers linked to a dedup key, in
// insertion order.
func (m *Mapping) MatchedIdentifiers(key string) []string {
	m.ensure()
	return m.KeyToIdentifiers[key]
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
