package standardize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/matchkey/internal/engine"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func writeCSVInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFile(t *testing.T) {
	input := writeCSVInput(t, "vendors.csv",
		"Company,Phone,Zip,Widgets Sold\nAcme,212-555-0100,10001,5\nGlobex,415-555-0199,94105,9\n")
	outDir := t.TempDir()

	p := &Processor{Meta: DefaultMetadata(), Now: fixedNow}
	result, err := p.ProcessFile(input, outDir)
	require.NoError(t, err)

	assert.Equal(t, "COMPANY_NAME", result.ColumnMapping["Company"])
	assert.Equal(t, "PHONE_NUMBER", result.ColumnMapping["Phone"])
	assert.Equal(t, "ZIP_CODE", result.ColumnMapping["Zip"])
	assert.Equal(t, []string{"Widgets Sold"}, result.UnmappedColumns)
	assert.Equal(t, 2, result.TotalRows)

	assert.True(t, strings.HasSuffix(result.ProcessedFilename, "_vendors_processed.csv"))
	assert.True(t, strings.HasSuffix(result.AnalyticsFilename, "_vendors_analytics.json"))

	table, err := engine.ReadCSV(filepath.Join(outDir, result.ProcessedFilename))
	require.NoError(t, err)

	// Canonical input-group columns lead, even when unmapped and empty;
	// unmapped source columns trail.
	meta := DefaultMetadata()
	expected := append(append([]string{}, meta.InputColumns()...), "Widgets Sold")
	assert.Equal(t, expected, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Acme", table.Rows[0]["COMPANY_NAME"])
	assert.Equal(t, "", table.Rows[0]["CITY"])
	assert.Equal(t, "5", table.Rows[0]["Widgets Sold"])

	data, err := os.ReadFile(filepath.Join(outDir, result.AnalyticsFilename))
	require.NoError(t, err)
	var artifact Analytics
	require.NoError(t, json.Unmarshal(data, &artifact))
	assert.Equal(t, 2, artifact.Summary.TotalRows)
	assert.Equal(t, "2026-03-15T12:00:00Z", artifact.Summary.ProcessedAt)
	assert.Equal(t, 100.0, artifact.FieldAnalytics["phone"].ValidityPct)
}

func createXLSXInput(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestProcessFileXLSX(t *testing.T) {
	input := createXLSXInput(t, [][]string{
		{"COMPANY_NAME", "EMAIL"},
		{"Acme", "ops@acme.com"},
		{"", ""},
		{"Globex", "info@globex.com"},
	})
	outDir := t.TempDir()

	p := &Processor{Meta: DefaultMetadata(), Now: fixedNow}
	result, err := p.ProcessFile(input, outDir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, "EMAIL_ADDRESS", result.ColumnMapping["EMAIL"])
}

func TestPreview(t *testing.T) {
	input := writeCSVInput(t, "sample.csv", "A,B\n1,2\n3,4\n5,6\n")

	result, err := Preview(input, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, result.Headers)
	assert.Equal(t, 3, result.TotalRows)
	require.Len(t, result.Preview, 2)
	assert.Equal(t, "3", result.Preview[1]["A"])
}

func TestReadFileDispatch(t *testing.T) {
	csvPath := writeCSVInput(t, "a.csv", "X\n1\n")
	table, err := ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, table.Headers)

	xlsxPath := createXLSXInput(t, [][]string{{"Y"}, {"2"}})
	table, err = ReadFile(xlsxPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "2", table.Rows[0]["Y"])
}
