package standardize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/matchkey/internal/engine"
)

// Result reports the outcome of standardizing one file.
type Result struct {
	ProcessedFilename string            `json:"processed_filename"`
	AnalyticsFilename string            `json:"analytics_filename"`
	ColumnMapping     map[string]string `json:"column_mapping"`
	UnmappedColumns   []string          `json:"unmapped_columns"`
	TotalRows         int               `json:"total_rows"`
	TotalColumns      int               `json:"total_columns"`
	Analytics         *Analytics        `json:"analytics"`
}

// Processor standardizes input files against a canonical catalog. A nil
// Now defaults to time.Now.
type Processor struct {
	Meta *Metadata
	Now  func() time.Time
}

// ProcessFile reads a CSV or XLSX file, auto-maps its headers, writes the
// canonical CSV ("{id}_{stem}_processed.csv") and the analytics artifact
// ("{id}_{stem}_analytics.json") into outputDir, and returns the result.
// Canonical input-group columns lead the output even when unmapped; source
// columns that could not be mapped follow verbatim.
func (p *Processor) ProcessFile(inputPath, outputDir string) (*Result, error) {
	now := p.Now
	if now == nil {
		now = time.Now
	}

	table, err := ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	mapped := AutoMap(table.Headers, p.Meta)
	table.ApplyMapping(mapped.Mapping)

	columns := append([]string{}, p.Meta.InputColumns()...)
	seen := map[string]bool{}
	for _, col := range columns {
		seen[col] = true
	}
	for _, h := range table.Headers {
		if !seen[h] {
			seen[h] = true
			columns = append(columns, h)
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "standardize: create output dir %s", outputDir)
	}

	id := uuid.New().String()[:8]
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	processedName := id + "_" + stem + "_processed.csv"
	analyticsName := id + "_" + stem + "_analytics.json"

	if err := engine.WriteCSV(filepath.Join(outputDir, processedName), columns, table.Rows); err != nil {
		return nil, err
	}

	analytics := ComputeAnalytics(p.Meta, columns, table.Rows, now().UTC().Format(time.RFC3339))
	data, err := json.MarshalIndent(analytics, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "standardize: marshal analytics")
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(outputDir, analyticsName), data, 0o644); err != nil {
		return nil, eris.Wrap(err, "standardize: write analytics")
	}

	zap.L().Info("file standardized",
		zap.String("component", "standardize"),
		zap.String("input", inputPath),
		zap.String("processed", processedName),
		zap.Int("rows", len(table.Rows)),
		zap.Int("unmapped", len(mapped.Unmapped)))

	return &Result{
		ProcessedFilename: processedName,
		AnalyticsFilename: analyticsName,
		ColumnMapping:     mapped.Mapping,
		UnmappedColumns:   mapped.Unmapped,
		TotalRows:         len(table.Rows),
		TotalColumns:      len(columns),
		Analytics:         analytics,
	}, nil
}

// PreviewResult carries a bounded sample of a file.
type PreviewResult struct {
	Headers   []string            `json:"headers"`
	Preview   []map[string]string `json:"preview"`
	TotalRows int                 `json:"total_rows"`
}

// Preview returns a file's headers and up to maxRows rows.
func Preview(path string, maxRows int) (*PreviewResult, error) {
	table, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows := table.Rows
	if maxRows >= 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return &PreviewResult{
		Headers:   table.Headers,
		Preview:   rows,
		TotalRows: len(table.Rows),
	}, nil
}
