package rules

import (
	"strings"

	"github.com/sells-group/matchkey/internal/similarity"
)

// Scores maps "<field>_score" (lower-cased field name) to the comparator
// score computed while evaluating a rule.
type Scores map[string]float64

// evaluateCondition applies a single condition to a record pair.
// Blank conditions hold iff both sides are empty; otherwise an empty side
// holds iff blanks are allowed; otherwise the field comparator's score is
// tested against the threshold (>= for include, < for exclude).
func evaluateCondition(r1, r2 map[string]string, c Condition) bool {
	v1 := strings.TrimSpace(r1[c.Field])
	v2 := strings.TrimSpace(r2[c.Field])

	if c.Blank {
		return v1 == "" && v2 == ""
	}
	if v1 == "" || v2 == "" {
		return c.BlankAllowed
	}

	score := similarity.ForField(c.Field)(v1, v2)
	if c.Include {
		return score >= c.Percentage
	}
	return score < c.Percentage
}

// EvaluateRule checks every condition of a rule against a record pair.
// Per-field scores are recorded for each condition whose values are both
// non-empty, including the condition that fails; scores accumulated up to
// the failure point are returned for observability.
func EvaluateRule(r1, r2 map[string]string, rule Rule) (bool, Scores) {
	if !rule.Enabled || len(rule.Conditions) == 0 {
		return false, Scores{}
	}

	scores := Scores{}
	for _, cond := range rule.Conditions {
		v1 := strings.TrimSpace(r1[cond.Field])
		v2 := strings.TrimSpace(r2[cond.Field])
		if v1 != "" && v2 != "" {
			scores[strings.ToLower(cond.Field)+"_score"] = similarity.ForField(cond.Field)(v1, v2)
		}

		if !evaluateCondition(r1, r2, cond) {
			return false, scores
		}
	}
	return true, scores
}

// FindBestMatch returns the index of the first candidate matched by the
// highest-priority rule, along with that rule's reason and the per-field
// scores. Rules must already be priority-sorted (Parse guarantees this);
// candidates are tried in insertion order. No match returns -1.
func FindBestMatch(record map[string]string, candidates []map[string]string, ruleSet []Rule) (int, string, Scores) {
	for _, rule := range ruleSet {
		if !rule.Enabled {
			continue
		}
		for i, cand := range candidates {
			if ok, scores := EvaluateRule(record, cand, rule); ok {
				return i, rule.Reason(), scores
			}
		}
	}
	return -1, "", Scores{}
}
