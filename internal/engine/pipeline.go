package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/matchkey/internal/block"
	"github.com/sells-group/matchkey/internal/dedup"
	"github.com/sells-group/matchkey/internal/normalize"
	"github.com/sells-group/matchkey/internal/quality"
	"github.com/sells-group/matchkey/internal/rules"
)

// Enrichment columns appended to every matching run's output.
const (
	ColDedupKey         = "DEDUP_KEY"
	ColMatchReason      = "MATCH_REASON"
	ColMatchedRecordIDs = "MATCHED_RECORD_IDS"
	ColMatchTimestamp   = "MATCH_TIMESTAMP"
	ColError            = "ERROR"
	ColEmailQuality     = "email_quality_score"
	ColPhoneQuality     = "phone_quality_score"
)

// RunStats summarizes one matching run.
type RunStats struct {
	TotalRecords    int    `json:"total_records"`
	MatchedExisting int    `json:"matched_existing"`
	NewDedupKeys    int    `json:"new_dedup_keys"`
	Errors          int    `json:"errors"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
}

// Options tune a single run.
type Options struct {
	// FieldMapping renames source headers to canonical fields before
	// processing. Unmapped columns pass through.
	FieldMapping map[string]string
	// OutputColumns, when non-empty, is the exact output column whitelist.
	// Otherwise the output is the input column union plus enrichment columns.
	OutputColumns []string
	// Blocking selects the candidate-grouping strategy (default composite).
	Blocking block.Mode
}

// Pipeline wires the matching run's collaborators. Zero-value Now defaults
// to time.Now; tests inject a fixed clock for deterministic timestamps.
type Pipeline struct {
	Store   dedup.Store
	Rules   []rules.Rule
	Quality *quality.Metadata
	Now     func() time.Time
}

// rowState carries the precomputed per-row derivations.
type rowState struct {
	blockKey string
	email    quality.EmailScore
	phone    quality.PhoneScore
}

// Run executes the matching pipeline on one CSV file: every row is
// normalized, blocked, compared against the already-processed rows in its
// block under the rule set, and assigned a stable dedup key from the store.
// Processing order equals input row order, so the output is a deterministic
// function of the input, the rules, and the prior store contents.
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string, opts Options) (*RunStats, error) {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	stats := &RunStats{StartTime: now().UTC().Format(time.RFC3339)}

	table, err := ReadCSV(inputPath)
	if err != nil {
		return nil, err
	}
	table.ApplyMapping(opts.FieldMapping)
	stats.TotalRecords = len(table.Rows)

	mapping, err := p.Store.Load(ctx)
	if err != nil {
		return nil, err
	}

	meta := p.Quality
	if meta == nil {
		meta = quality.Defaults()
	}

	states := make([]rowState, len(table.Rows))
	for i, row := range table.Rows {
		companyNorm := normalize.CompanyName(row["COMPANY_NAME"])
		addrNorm := normalize.Address(row["ADDRESS_LINE_1"])
		phoneNorm := normalize.Phone(row["PHONE_NUMBER"])
		key := block.Key(opts.Blocking, companyNorm, addrNorm, row["ZIP_CODE"], phoneNorm)
		if key == "" {
			// No blockable component (e.g. phone mode without a phone).
			// The row forms its own singleton block rather than sharing
			// one catch-all block with every other keyless row.
			key = "row:" + strconv.Itoa(i)
		}
		states[i] = rowState{
			blockKey: key,
			email:    meta.ScoreEmail(row["EMAIL_ADDRESS"]),
			phone:    meta.ScorePhone(row["PHONE_NUMBER"], row["PHONE_EXTENSION"]),
		}
	}

	columns := newColumnUnion(table.Headers)
	columns.add(ColDedupKey, ColMatchReason, ColMatchedRecordIDs)

	// Candidates for a row are the already-processed rows sharing its
	// blocking key. Restricting to processed rows makes intra-run key reuse
	// sound: a candidate's DEDUP_KEY is always final by the time it is read.
	processed := map[string][]map[string]string{}

	timestamp := now().UTC().Format(time.RFC3339)
	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "engine: run canceled")
		}
		st := states[i]

		if err := p.processRow(row, st, processed[st.blockKey], mapping, stats, columns); err != nil {
			stats.Errors++
			row[ColMatchReason] = "ERROR"
			row[ColError] = err.Error()
			zap.L().Warn("row failed",
				zap.String("component", "engine"),
				zap.Int("row", i),
				zap.Error(err))
		} else {
			processed[st.blockKey] = append(processed[st.blockKey], row)
		}

		row[ColMatchTimestamp] = timestamp
		row[ColEmailQuality] = strconv.Itoa(st.email.Total)
		row[ColPhoneQuality] = strconv.Itoa(st.phone.Total)
	}
	columns.add(ColMatchTimestamp, ColError, ColEmailQuality, ColPhoneQuality)

	if err := p.Store.Save(ctx, mapping); err != nil {
		return nil, err
	}

	out := opts.OutputColumns
	if len(out) == 0 {
		out = columns.list
	}
	if err := WriteCSV(outputPath, out, table.Rows); err != nil {
		return nil, err
	}

	stats.EndTime = now().UTC().Format(time.RFC3339)
	zap.L().Info("matching run complete",
		zap.String("component", "engine"),
		zap.Int("total", stats.TotalRecords),
		zap.Int("matched_existing", stats.MatchedExisting),
		zap.Int("new_dedup_keys", stats.NewDedupKeys),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

// processRow matches one row against its candidates and enriches it with
// the assigned dedup key. A panic in scoring is recovered into a row error
// so a malformed row never aborts the run.
func (p *Pipeline) processRow(row map[string]string, st rowState, candidates []map[string]string, mapping *dedup.Mapping, stats *RunStats, columns *columnUnion) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.New(fmt.Sprint("engine: row panic: ", r))
		}
	}()

	idx, reason, scores := rules.FindBestMatch(row, candidates, p.Rules)
	if idx >= 0 {
		key := candidates[idx][ColDedupKey]
		if key == "" {
			key, _ = mapping.GetOrCreate(candidates[idx])
		}
		mapping.Link(key, row)
		stats.MatchedExisting++
		row[ColDedupKey] = key
		row[ColMatchReason] = reason
		row[ColMatchedRecordIDs] = strings.Join(mapping.MatchedIdentifiers(key), "|")
	} else {
		key, isNew := mapping.GetOrCreate(row)
		if isNew {
			stats.NewDedupKeys++
		} else {
			// The content hash was already in the store from a prior run.
			stats.MatchedExisting++
		}
		row[ColDedupKey] = key
		row[ColMatchReason] = "NEW"
		// Only matched rows list the identifiers they joined.
		row[ColMatchedRecordIDs] = ""
	}

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row[name] = strconv.FormatFloat(scores[name], 'f', 2, 64)
		columns.add(name)
	}
	return nil
}

// columnUnion tracks the output column set in first-appearance order.
type columnUnion struct {
	list []string
	seen map[string]bool
}

func newColumnUnion(headers []string) *columnUnion {
	u := &columnUnion{seen: make(map[string]bool, len(headers))}
	u.add(headers...)
	return u
}

func (u *columnUnion) add(names ...string) {
	for _, name := range names {
		if !u.seen[name] {
			u.seen[name] = true
			u.list = append(u.list, name)
		}
	}
}
