package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/matchkey/internal/block"
	"github.com/sells-group/matchkey/internal/dedup"
	"github.com/sells-group/matchkey/internal/rules"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

// companyPhoneZipRules requires company >= 85, exact phone, and exact zip.
func companyPhoneZipRules() []rules.Rule {
	return []rules.Rule{{
		ID:          "company_phone_zip",
		Enabled:     true,
		Priority:    1,
		MatchReason: "COMPANY_PHONE_ZIP",
		Conditions: []rules.Condition{
			{Field: "COMPANY_NAME", Percentage: 85, Include: true},
			{Field: "PHONE_NUMBER", Percentage: 100, Include: true},
			{Field: "ZIP_CODE", Percentage: 100, Include: true},
		},
	}}
}

const crossSourceInput = `SOURCE_TYPE,SOURCE_ID,COMPANY_NAME,ADDRESS_LINE_1,ZIP_CODE,PHONE_NUMBER,EMAIL_ADDRESS
A,1,"Acme, Inc.",100 Main St,10001,(212) 555-0100,ops@acme.com
B,9,ACME INCORPORATED,100 Main Street,10001,212-555-0100,ops@acme.com
`

func newTestPipeline(t *testing.T, ruleSet []rules.Rule) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	p := &Pipeline{
		Store: dedup.NewFileStore(filepath.Join(dir, "dedup.json")),
		Rules: ruleSet,
		Now:   fixedClock,
	}
	return p, dir
}

func runOn(t *testing.T, p *Pipeline, dir, input string, run int) (*RunStats, *Table) {
	t.Helper()
	inPath := writeInput(t, input)
	outPath := filepath.Join(dir, "out", "run.csv")
	if run > 0 {
		outPath = filepath.Join(dir, "out", "rerun.csv")
	}

	stats, err := p.Run(context.Background(), inPath, outPath, Options{})
	require.NoError(t, err)

	table, err := ReadCSV(outPath)
	require.NoError(t, err)
	return stats, table
}

func TestRunMatchesAcrossSources(t *testing.T) {
	p, dir := newTestPipeline(t, companyPhoneZipRules())

	stats, table := runOn(t, p, dir, crossSourceInput, 0)
	assert.Equal(t, 2, stats.TotalRecords)
	assert.Equal(t, 1, stats.NewDedupKeys)
	assert.Equal(t, 1, stats.MatchedExisting)
	assert.Equal(t, 0, stats.Errors)

	require.Len(t, table.Rows, 2)
	first, second := table.Rows[0], table.Rows[1]
	assert.NotEmpty(t, first[ColDedupKey])
	assert.Equal(t, first[ColDedupKey], second[ColDedupKey])
	assert.Equal(t, "NEW", first[ColMatchReason])
	assert.Equal(t, "COMPANY_PHONE_ZIP", second[ColMatchReason])
	// NEW rows carry no matched identifiers; only the matched row lists
	// the identifiers attached to its key.
	assert.Equal(t, "", first[ColMatchedRecordIDs])
	assert.Equal(t, "A:1|B:9", second[ColMatchedRecordIDs])
	assert.Equal(t, "100.00", second["company_name_score"])
	assert.Equal(t, "100.00", second["phone_number_score"])
	assert.Equal(t, "2026-03-15T12:00:00Z", second[ColMatchTimestamp])
	assert.Equal(t, "100", second[ColEmailQuality])
}

func TestRunIsIdempotent(t *testing.T) {
	p, dir := newTestPipeline(t, companyPhoneZipRules())

	_, firstTable := runOn(t, p, dir, crossSourceInput, 0)

	// Same input against the store produced by the first run: no new keys,
	// every row resolves to its existing key.
	stats, rerunTable := runOn(t, p, dir, crossSourceInput, 1)
	assert.Equal(t, 0, stats.NewDedupKeys)
	assert.Equal(t, 2, stats.MatchedExisting)

	for i := range firstTable.Rows {
		assert.Equal(t, firstTable.Rows[i][ColDedupKey], rerunTable.Rows[i][ColDedupKey])
	}
}

func TestRunDeterministicReplay(t *testing.T) {
	p, dir := newTestPipeline(t, companyPhoneZipRules())
	runOn(t, p, dir, crossSourceInput, 0)

	// Two replays against the same populated store must be byte-identical:
	// all keys come from the store and the clock is fixed.
	inPath := writeInput(t, crossSourceInput)
	outA := filepath.Join(dir, "a.csv")
	outB := filepath.Join(dir, "b.csv")
	_, err := p.Run(context.Background(), inPath, outA, Options{})
	require.NoError(t, err)
	_, err = p.Run(context.Background(), inPath, outB, Options{})
	require.NoError(t, err)

	a, err := os.ReadFile(outA)
	require.NoError(t, err)
	b, err := os.ReadFile(outB)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunNoRulesMintsUniqueKeys(t *testing.T) {
	p, dir := newTestPipeline(t, nil)

	stats, table := runOn(t, p, dir, crossSourceInput, 0)
	assert.Equal(t, 2, stats.NewDedupKeys)
	assert.Equal(t, 0, stats.MatchedExisting)
	assert.NotEqual(t, table.Rows[0][ColDedupKey], table.Rows[1][ColDedupKey])
	assert.Equal(t, "NEW", table.Rows[0][ColMatchReason])
	assert.Equal(t, "NEW", table.Rows[1][ColMatchReason])
}

func TestRunBlockingPreventsCrossBlockMatch(t *testing.T) {
	// Permissive rule that would match anything, but the two companies share
	// no blocking key so it is never evaluated.
	permissive := []rules.Rule{{
		ID: "any", Enabled: true, Priority: 1, MatchReason: "ANY",
		Conditions: []rules.Condition{
			{Field: "COMPANY_NAME", Percentage: 0, Include: true},
		},
	}}
	p, dir := newTestPipeline(t, permissive)

	input := `SOURCE_TYPE,SOURCE_ID,COMPANY_NAME,ADDRESS_LINE_1,ZIP_CODE,PHONE_NUMBER
A,1,Acme,100 Main St,10001,212-555-0100
A,2,Globex,9 Side St,94105,415-555-0199
`
	stats, table := runOn(t, p, dir, input, 0)
	assert.Equal(t, 2, stats.NewDedupKeys)
	assert.Equal(t, 0, stats.MatchedExisting)
	assert.NotEqual(t, table.Rows[0][ColDedupKey], table.Rows[1][ColDedupKey])
}

func TestRunPhoneBlockingKeylessRowsStaySeparate(t *testing.T) {
	// Identical companies without phones would match under the permissive
	// rule if keyless rows shared one block; each must stay a singleton.
	permissive := []rules.Rule{{
		ID: "any", Enabled: true, Priority: 1, MatchReason: "ANY",
		Conditions: []rules.Condition{
			{Field: "COMPANY_NAME", Percentage: 0, Include: true},
		},
	}}
	p, dir := newTestPipeline(t, permissive)

	input := `SOURCE_TYPE,SOURCE_ID,COMPANY_NAME,ADDRESS_LINE_1,ZIP_CODE,PHONE_NUMBER
A,1,Acme,100 Main St,10001,
A,2,Acme,100 Main St,10001,
`
	inPath := writeInput(t, input)
	outPath := filepath.Join(dir, "phone.csv")
	stats, err := p.Run(context.Background(), inPath, outPath, Options{Blocking: block.ModePhone})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.NewDedupKeys)
	assert.Equal(t, 0, stats.MatchedExisting)

	table, err := ReadCSV(outPath)
	require.NoError(t, err)
	assert.NotEqual(t, table.Rows[0][ColDedupKey], table.Rows[1][ColDedupKey])
}

func TestRunOutputColumnWhitelist(t *testing.T) {
	p, dir := newTestPipeline(t, companyPhoneZipRules())

	inPath := writeInput(t, crossSourceInput)
	outPath := filepath.Join(dir, "slim.csv")
	_, err := p.Run(context.Background(), inPath, outPath, Options{
		OutputColumns: []string{"COMPANY_NAME", ColDedupKey},
	})
	require.NoError(t, err)

	table, err := ReadCSV(outPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"COMPANY_NAME", ColDedupKey}, table.Headers)
}

func TestRunAppliesFieldMapping(t *testing.T) {
	p, dir := newTestPipeline(t, companyPhoneZipRules())

	input := `src,id,Company,Addr,Zip,Phone
A,1,"Acme, Inc.",100 Main St,10001,212-555-0100
B,9,ACME INCORPORATED,100 Main Street,10001,(212) 555-0100
`
	inPath := writeInput(t, input)
	outPath := filepath.Join(dir, "mapped.csv")
	stats, err := p.Run(context.Background(), inPath, outPath, Options{
		FieldMapping: map[string]string{
			"src":     "SOURCE_TYPE",
			"id":      "SOURCE_ID",
			"Company": "COMPANY_NAME",
			"Addr":    "ADDRESS_LINE_1",
			"Zip":     "ZIP_CODE",
			"Phone":   "PHONE_NUMBER",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NewDedupKeys)
	assert.Equal(t, 1, stats.MatchedExisting)
}
