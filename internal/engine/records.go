// Package engine drives the matching pipeline: ingest, normalization,
// blocking, rule evaluation, dedup-key assignment, and enriched output.
package engine

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is an ordered set of records read from a delimited file. Headers
// preserve input column order; each row maps header name to cell value.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// ReadCSV loads a CSV file into a Table. A UTF-8 BOM is stripped, invalid
// byte sequences are replaced with U+FFFD, headers are trimmed, multi-line
// quoted fields are preserved, and rows whose cells are all empty after
// trimming are skipped.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: open input %s", path)
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(f, unicode.UTF8BOM.NewDecoder()))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	raw, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "engine: parse csv %s", path)
	}
	if len(raw) == 0 {
		return nil, eris.Errorf("engine: %s has no header row", path)
	}

	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = strings.ToValidUTF8(strings.TrimSpace(h), "�")
	}

	t := &Table{Headers: headers}
	for _, cells := range raw[1:] {
		row := make(map[string]string, len(headers))
		empty := true
		for i, h := range headers {
			var v string
			if i < len(cells) {
				v = strings.ToValidUTF8(cells[i], "�")
			}
			row[h] = v
			if strings.TrimSpace(v) != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ApplyMapping renames source headers to canonical field names in place.
// Unmapped columns pass through unchanged.
func (t *Table) ApplyMapping(mapping map[string]string) {
	if len(mapping) == 0 {
		return
	}
	for i, h := range t.Headers {
		if canonical, ok := mapping[h]; ok {
			t.Headers[i] = canonical
		}
	}
	for _, row := range t.Rows {
		for src, canonical := range mapping {
			if src == canonical {
				continue
			}
			if v, ok := row[src]; ok {
				row[canonical] = v
				delete(row, src)
			}
		}
	}
}

// WriteCSV writes rows under the given column order, filling missing cells
// with empty strings. The parent directory is created if needed.
func WriteCSV(path string, columns []string, rows []map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "engine: create output dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "engine: create output %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return eris.Wrap(err, "engine: write header")
	}
	cells := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			cells[i] = row[col]
		}
		if err := w.Write(cells); err != nil {
			return eris.Wrap(err, "engine: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "engine: flush output")
	}
	return eris.Wrapf(f.Close(), "engine: close output %s", path)
}
