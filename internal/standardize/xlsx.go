package standardize

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/matchkey/internal/engine"
)

// ReadFile loads a CSV or XLSX file into a Table based on its extension.
func ReadFile(path string) (*engine.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path)
	}
	return engine.ReadCSV(path)
}

// ReadXLSX reads the first sheet of an XLSX file into a Table with the
// same row discipline as CSV ingest: trimmed headers, all-empty rows
// skipped.
func ReadXLSX(path string) (*engine.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "standardize: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("standardize: %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("standardize: %s has no header row", path)
	}

	headers := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		headers[i] = strings.TrimSpace(cell.String())
	}

	t := &engine.Table{Headers: headers}
	for _, sheetRow := range sheet.Rows[1:] {
		row := make(map[string]string, len(headers))
		empty := true
		for i, h := range headers {
			var v string
			if i < len(sheetRow.Cells) {
				v = sheetRow.Cells[i].String()
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
