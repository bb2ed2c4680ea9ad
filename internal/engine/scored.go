package engine

import (
	"github.com/sells-group/matchkey/internal/normalize"
	"github.com/sells-group/matchkey/internal/similarity"
)

// Acceptance thresholds for blended-score ranking. An exact phone match is
// strong enough evidence to lower the bar.
const (
	minBlendedScore    = 82
	minPhoneExactScore = 75
)

// ScoredMatch is the outcome of ranking one candidate.
type ScoredMatch struct {
	Index      int  `json:"index"`
	Score      int  `json:"score"`
	PhoneExact bool `json:"phone_exact"`
}

// PickBestScored ranks candidates against a record by blended name/address/
// phone similarity and returns the best one clearing the acceptance
// threshold, or nil when none does. Ties keep the earlier candidate.
func PickBestScored(record map[string]string, candidates []map[string]string) *ScoredMatch {
	name := normalize.CompanyName(record["COMPANY_NAME"])
	addr := normalize.Address(record["ADDRESS_LINE_1"])
	phone := normalize.Phone(record["PHONE_NUMBER"])

	var best *ScoredMatch
	for i, cand := range candidates {
		candPhone := normalize.Phone(cand["PHONE_NUMBER"])
		score := similarity.BlendedScore(
			name, addr, phone,
			normalize.CompanyName(cand["COMPANY_NAME"]),
			normalize.Address(cand["ADDRESS_LINE_1"]),
			candPhone,
		)
		phoneExact := phone != "" && phone == candPhone

		threshold := minBlendedScore
		if phoneExact {
			threshold = minPhoneExactScore
		}
		if score < threshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &ScoredMatch{Index: i, Score: score, PhoneExact: phoneExact}
		}
	}
	return best
}
