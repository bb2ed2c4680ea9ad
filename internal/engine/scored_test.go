package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickBestScoredExactMatch(t *testing.T) {
	record := map[string]string{
		"COMPANY_NAME":   "Acme, Inc.",
		"ADDRESS_LINE_1": "100 Main Street",
		"PHONE_NUMBER":   "(212) 555-0100",
	}
	candidates := []map[string]string{
		{"COMPANY_NAME": "Globex", "ADDRESS_LINE_1": "9 Side St", "PHONE_NUMBER": "415-555-0199"},
		{"COMPANY_NAME": "ACME Incorporated", "ADDRESS_LINE_1": "100 Main St", "PHONE_NUMBER": "212-555-0100"},
	}

	best := PickBestScored(record, candidates)
	require.NotNil(t, best)
	assert.Equal(t, 1, best.Index)
	assert.Equal(t, 100, best.Score)
	assert.True(t, best.PhoneExact)
}

func TestPickBestScoredRejectsBelowThreshold(t *testing.T) {
	record := map[string]string{"COMPANY_NAME": "Acme", "ADDRESS_LINE_1": "100 Main St"}
	candidates := []map[string]string{
		{"COMPANY_NAME": "Globex Widgets", "ADDRESS_LINE_1": "9 Side St"},
	}
	assert.Nil(t, PickBestScored(record, candidates))
}

func TestPickBestScoredPhoneExactLowersBar(t *testing.T) {
	// Name and address diverge enough that the blended score lands between
	// the two thresholds; the exact phone keeps the candidate acceptable.
	record := map[string]string{
		"COMPANY_NAME":   "Acme Widget Holdings",
		"ADDRESS_LINE_1": "100 Main Street",
		"PHONE_NUMBER":   "212-555-0100",
	}
	candidate := map[string]string{
		"COMPANY_NAME":   "Acme Widget",
		"ADDRESS_LINE_1": "100 Main Street Suite 4",
		"PHONE_NUMBER":   "(212) 555-0100",
	}

	best := PickBestScored(record, []map[string]string{candidate})
	require.NotNil(t, best)
	assert.True(t, best.PhoneExact)
	assert.GreaterOrEqual(t, best.Score, minPhoneExactScore)

	// Without the phone the same pair falls short of the default threshold.
	record["PHONE_NUMBER"] = ""
	candidate["PHONE_NUMBER"] = ""
	assert.Nil(t, PickBestScored(record, []map[string]string{candidate}))
}
