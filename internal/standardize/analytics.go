package standardize

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/sells-group/matchkey/internal/normalize"
)

var (
	emailValidRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	digitsRe     = regexp.MustCompile(`\D`)
)

// Summary heads the analytics artifact.
type Summary struct {
	TotalRows    int    `json:"total_rows"`
	TotalColumns int    `json:"total_columns"`
	ProcessedAt  string `json:"processed_at"`
}

// Completeness reports fill rates for one column.
type Completeness struct {
	Filled       int     `json:"filled"`
	Empty        int     `json:"empty"`
	Percentage   float64 `json:"percentage"`
	DisplayLabel string  `json:"display_label"`
	Description  string  `json:"description"`
}

// ValueCount is one entry of a top-values distribution.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FieldStats reports validity and uniqueness for one analyzed field.
type FieldStats struct {
	Total         int          `json:"total"`
	Valid         int          `json:"valid"`
	Invalid       int          `json:"invalid"`
	ValidityPct   float64      `json:"validity_percentage"`
	Unique        int          `json:"unique"`
	TopValues     []ValueCount `json:"top_values,omitempty"`
	AverageLength float64      `json:"average_length,omitempty"`
}

// Distribution summarizes a categorical column.
type Distribution struct {
	UniqueCount int          `json:"unique_count"`
	TopValues   []ValueCount `json:"top_values"`
	TotalFilled int          `json:"total_filled"`
}

// Duplicates reports exact full-row duplicates and per-combination
// potential duplicates.
type Duplicates struct {
	ExactDuplicates     int            `json:"exact_duplicates"`
	PotentialDuplicates map[string]int `json:"potential_duplicates"`
}

// DataQuality is the aggregate grade for a file.
type DataQuality struct {
	Overall          float64 `json:"overall"`
	Completeness     float64 `json:"completeness"`
	DuplicatePenalty float64 `json:"duplicate_penalty"`
	Grade            string  `json:"grade"`
}

// Analytics is the per-file analytics artifact written next to the
// standardized CSV.
type Analytics struct {
	Summary            Summary                 `json:"summary"`
	ColumnCompleteness map[string]Completeness `json:"column_completeness"`
	FieldAnalytics     map[string]FieldStats   `json:"field_analytics"`
	Duplicates         Duplicates              `json:"duplicates"`
	ValueDistributions map[string]Distribution `json:"value_distributions"`
	DataQuality        DataQuality             `json:"data_quality"`
}

// potentialDuplicateCombos are the field combinations checked for likely
// duplicates; a row with an entirely empty combination is skipped.
var potentialDuplicateCombos = []struct {
	name   string
	fields []string
}{
	{"company_phone", []string{"COMPANY_NAME", "PHONE_NUMBER"}},
	{"company_address_zip", []string{"COMPANY_NAME", "ADDRESS_LINE_1", "ZIP_CODE"}},
	{"email", []string{"EMAIL_ADDRESS"}},
	{"phone", []string{"PHONE_NUMBER"}},
}

// distributionColumns are the categorical columns summarized in
// value_distributions.
var distributionColumns = []string{
	"SOURCE_TYPE", "STATE", "COUNTRY_CODE", "PHONE_TYPE", "ADDRESS_LOCATION_TYPE",
}

// ComputeAnalytics builds the analytics artifact over standardized rows.
// Columns is the output column order; meta supplies display labels.
func ComputeAnalytics(meta *Metadata, columns []string, rows []map[string]string, processedAt string) *Analytics {
	a := &Analytics{
		Summary: Summary{
			TotalRows:    len(rows),
			TotalColumns: len(columns),
			ProcessedAt:  processedAt,
		},
		ColumnCompleteness: map[string]Completeness{},
		FieldAnalytics:     map[string]FieldStats{},
		ValueDistributions: map[string]Distribution{},
		Duplicates:         Duplicates{PotentialDuplicates: map[string]int{}},
	}

	var completenessSum float64
	for _, col := range columns {
		filled := 0
		for _, row := range rows {
			if strings.TrimSpace(row[col]) != "" {
				filled++
			}
		}
		c := Completeness{
			Filled:       filled,
			Empty:        len(rows) - filled,
			Percentage:   pct(filled, len(rows)),
			DisplayLabel: meta.Columns[col].DisplayLabel,
			Description:  meta.Columns[col].Description,
		}
		a.ColumnCompleteness[col] = c
		completenessSum += c.Percentage
	}

	a.FieldAnalytics["email"] = fieldStats(rows, "EMAIL_ADDRESS", validEmail, normalize.Email, 0, true)
	a.FieldAnalytics["phone"] = fieldStats(rows, "PHONE_NUMBER", validPhone, normalize.Phone, 0, true)
	a.FieldAnalytics["zip"] = fieldStats(rows, "ZIP_CODE", validZip, zip5, 0, true)

	state := fieldStats(rows, "STATE", func(string) bool { return true }, upperTrim, 10, false)
	a.FieldAnalytics["state"] = state

	company := fieldStats(rows, "COMPANY_NAME", func(string) bool { return true }, lowerTrim, 0, false)
	company.AverageLength = averageLength(rows, "COMPANY_NAME")
	a.FieldAnalytics["company"] = company

	a.Duplicates.ExactDuplicates = countDuplicates(rows, columns)
	for _, combo := range potentialDuplicateCombos {
		a.Duplicates.PotentialDuplicates[combo.name] = countDuplicates(rows, combo.fields)
	}

	for _, col := range distributionColumns {
		a.ValueDistributions[col] = distribution(rows, col)
	}

	a.DataQuality = grade(
		avg(completenessSum, len(columns)),
		a.FieldAnalytics["email"].ValidityPct,
		a.FieldAnalytics["phone"].ValidityPct,
		a.FieldAnalytics["zip"].ValidityPct,
		a.Duplicates.ExactDuplicates,
		len(rows),
	)
	return a
}

// fieldStats counts validity and uniqueness for one column. canon
// canonicalizes values before uniqueness counting; topN > 0 adds a
// top-values distribution. With countEmpty, empty cells count toward Total
// as invalid so a sparse column reports low validity; uniqueness is always
// over the non-empty values.
func fieldStats(rows []map[string]string, col string, valid func(string) bool, canon func(string) string, topN int, countEmpty bool) FieldStats {
	var s FieldStats
	uniq := map[string]bool{}
	counts := map[string]int{}

	for _, row := range rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			if countEmpty {
				s.Total++
				s.Invalid++
			}
			continue
		}
		s.Total++
		if valid(v) {
			s.Valid++
		} else {
			s.Invalid++
		}
		key := canon(v)
		uniq[key] = true
		if topN > 0 {
			counts[key]++
		}
	}
	s.Unique = len(uniq)
	s.ValidityPct = pct(s.Valid, s.Total)
	if topN > 0 {
		s.TopValues = topValues(counts, topN)
	}
	return s
}

// countDuplicates counts surplus occurrences of the lowercased pipe-joined
// composition of fields: a value appearing n times contributes n-1.
func countDuplicates(rows []map[string]string, fields []string) int {
	counts := map[string]int{}
	for _, row := range rows {
		parts := make([]string, len(fields))
		empty := true
		for i, f := range fields {
			parts[i] = strings.ToLower(strings.TrimSpace(row[f]))
			if parts[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		counts[strings.Join(parts, "|")]++
	}
	total := 0
	for _, n := range counts {
		if n > 1 {
			total += n - 1
		}
	}
	return total
}

func distribution(rows []map[string]string, col string) Distribution {
	counts := map[string]int{}
	filled := 0
	for _, row := range rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		filled++
		counts[v]++
	}
	return Distribution{
		UniqueCount: len(counts),
		TopValues:   topValues(counts, 10),
		TotalFilled: filled,
	}
}

// topValues returns the n most frequent values, count-descending with
// value order as tiebreak so the output is deterministic.
func topValues(counts map[string]int, n int) []ValueCount {
	list := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		list = append(list, ValueCount{Value: v, Count: c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Value < list[j].Value
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

func grade(completeness, emailPct, phonePct, zipPct float64, exactDups, totalRows int) DataQuality {
	penalty := 100.0
	if totalRows > 0 {
		penalty = math.Max(0, 100-float64(exactDups)/float64(totalRows)*100)
	}
	overall := round2((completeness + emailPct + phonePct + zipPct + penalty) / 5)

	q := DataQuality{
		Overall:          overall,
		Completeness:     round2(completeness),
		DuplicatePenalty: round2(penalty),
	}
	switch {
	case overall >= 90:
		q.Grade = "A"
	case overall >= 80:
		q.Grade = "B"
	case overall >= 70:
		q.Grade = "C"
	case overall >= 60:
		q.Grade = "D"
	default:
		q.Grade = "F"
	}
	return q
}

func validEmail(v string) bool {
	return emailValidRe.MatchString(strings.TrimSpace(v))
}

// validPhone accepts any value carrying at least 10 digits.
func validPhone(v string) bool {
	return len(digitsRe.ReplaceAllString(v, "")) >= 10
}

// validZip accepts 5-digit and 9-digit (ZIP+4) codes.
func validZip(v string) bool {
	digits := digitsRe.ReplaceAllString(v, "")
	return len(digits) == 5 || len(digits) == 9
}

// zip5 canonicalizes a ZIP to its 5-character prefix, so a ZIP+4 and its
// base code count as one unique value.
func zip5(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 5 {
		return s[:5]
	}
	return s
}

func averageLength(rows []map[string]string, col string) float64 {
	total, n := 0, 0
	for _, row := range rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		total += len(v)
		n++
	}
	if n == 0 {
		return 0
	}
	return round2(float64(total) / float64(n))
}

func upperTrim(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
func lowerTrim(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func avg(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
