// Package standardize maps arbitrary input headers onto the canonical
// schema, emits the canonical CSV, and computes file-level analytics.
package standardize

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Column describes one canonical column for header auto-mapping.
type Column struct {
	DisplayLabel     string   `json:"display_label"`
	Description      string   `json:"description"`
	Group            string   `json:"group"`
	AlternateColumns []string `json:"alternate_columns"`
}

// Metadata is the canonical column catalog. Order preserves the on-disk
// declaration order, which fixes the canonical column order of the output.
type Metadata struct {
	Columns map[string]Column
	Order   []string
}

// ParseMetadata reads a columns-metadata document `{canonicalName: column}`
// preserving declaration order. JSON maps are unordered once decoded, so
// the object is walked token by token.
func ParseMetadata(data []byte) (*Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, eris.Wrap(err, "standardize: read metadata document")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, eris.New("standardize: metadata document is not an object")
	}

	m := &Metadata{Columns: map[string]Column{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrap(err, "standardize: read column name")
		}
		name, _ := keyTok.(string)

		var col Column
		if err := dec.Decode(&col); err != nil {
			return nil, eris.Wrapf(err, "standardize: parse column %q", name)
		}
		m.Columns[name] = col
		m.Order = append(m.Order, name)
	}
	return m, nil
}

// InputColumns returns the canonical input-group columns in declaration
// order. These lead the standardized output even when unmapped.
func (m *Metadata) InputColumns() []string {
	var cols []string
	for _, name := range m.Order {
		if m.Columns[name].Group == "input" {
			cols = append(cols, name)
		}
	}
	return cols
}

// DefaultMetadata returns the built-in canonical catalog used when no
// columns-metadata document is configured.
func DefaultMetadata() *Metadata {
	order := []string{
		"SOURCE_TYPE", "SOURCE_ID", "COMPANY_NAME", "ADDRESS_LINE_1",
		"ADDRESS_LINE_2", "CITY", "STATE", "ZIP_CODE", "COUNTRY_CODE",
		"PHONE_NUMBER", "PHONE_EXTENSION", "EMAIL_ADDRESS",
	}
	cols := map[string]Column{
		"SOURCE_TYPE": {
			DisplayLabel: "Source Type", Description: "Originating system of the record", Group: "input",
			AlternateColumns: []string{"SOURCE", "RECORD_SOURCE", "SRC_TYPE"},
		},
		"SOURCE_ID": {
			DisplayLabel: "Source ID", Description: "Record identifier within the source system", Group: "input",
			AlternateColumns: []string{"ID", "RECORD_ID", "SRC_ID"},
		},
		"COMPANY_NAME": {
			DisplayLabel: "Company Name", Description: "Legal or trade name of the business", Group: "input",
			AlternateColumns: []string{"COMPANY", "BUSINESS_NAME", "ORGANIZATION", "NAME"},
		},
		"ADDRESS_LINE_1": {
			DisplayLabel: "Address Line 1", Description: "Primary street address", Group: "input",
			AlternateColumns: []string{"ADDRESS", "ADDRESS1", "STREET", "STREET_ADDRESS"},
		},
		"ADDRESS_LINE_2": {
			DisplayLabel: "Address Line 2", Description: "Secondary address (suite, floor)", Group: "input",
			AlternateColumns: []string{"ADDRESS2", "SUITE", "UNIT"},
		},
		"CITY": {
			DisplayLabel: "City", Description: "City or locality", Group: "input",
			AlternateColumns: []string{"TOWN", "LOCALITY"},
		},
		"STATE": {
			DisplayLabel: "State", Description: "State or province code", Group: "input",
			AlternateColumns: []string{"PROVINCE", "REGION", "ST"},
		},
		"ZIP_CODE": {
			DisplayLabel: "ZIP Code", Description: "Postal code", Group: "input",
			AlternateColumns: []string{"ZIP", "POSTAL_CODE", "POSTCODE"},
		},
		"COUNTRY_CODE": {
			DisplayLabel: "Country Code", Description: "ISO country code", Group: "input",
			AlternateColumns: []string{"COUNTRY"},
		},
		"PHONE_NUMBER": {
			DisplayLabel: "Phone Number", Description: "Primary phone number", Group: "input",
			AlternateColumns: []string{"PHONE", "TELEPHONE", "PHONE_NO", "TEL"},
		},
		"PHONE_EXTENSION": {
			DisplayLabel: "Phone Extension", Description: "Phone extension", Group: "input",
			AlternateColumns: []string{"EXT", "EXTENSION"},
		},
		"EMAIL_ADDRESS": {
			DisplayLabel: "Email Address", Description: "Primary contact email", Group: "input",
			AlternateColumns: []string{"EMAIL", "E_MAIL", "CONTACT_EMAIL"},
		},
	}
	return &Metadata{Columns: cols, Order: order}
}
