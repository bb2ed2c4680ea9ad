// Package similarity provides fuzzy string comparison primitives and
// field-typed comparators for record matching. Scores are in [0,100].
//
// The base methods follow the Indel/token-sort family: Ratio is the
// normalized indel similarity (Levenshtein with substitution cost 2),
// and the token variants pre-arrange tokens before applying Ratio.
package similarity

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// indelParams configures Levenshtein with substitution cost 2, which makes
// the distance equal to the insert/delete (indel) edit distance.
var indelParams = levenshtein.NewParams().SubCost(2)

// Ratio returns the normalized indel similarity of a and b:
// 100 * (1 - dist/(len(a)+len(b))). Either side empty yields 0.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	dist := levenshtein.Distance(a, b, indelParams)
	total := len(ra) + len(rb)
	return 100 * (1 - float64(dist)/float64(total))
}

// TokenSortRatio sorts the whitespace-delimited tokens of each input and
// compares the rejoined strings with Ratio.
func TokenSortRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return Ratio(sortTokens(a), sortTokens(b))
}

// TokenSetRatio compares the inputs as token sets: the sorted intersection
// is scored against each side's intersection+remainder, and the remainders
// against each other; the best of the three ratios wins. Duplicated shared
// tokens therefore do not depress the score.
func TokenSetRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	setA := tokenSet(a)
	setB := tokenSet(b)

	var inter, diffA, diffB []string
	for _, tok := range setA {
		if contains(setB, tok) {
			inter = append(inter, tok)
		} else {
			diffA = append(diffA, tok)
		}
	}
	for _, tok := range setB {
		if !contains(setA, tok) {
			diffB = append(diffB, tok)
		}
	}

	sorted0 := strings.Join(inter, " ")
	sorted1 := strings.TrimSpace(sorted0 + " " + strings.Join(diffA, " "))
	sorted2 := strings.TrimSpace(sorted0 + " " + strings.Join(diffB, " "))

	best := Ratio(sorted1, sorted2)
	if sorted0 != "" {
		if r := Ratio(sorted0, sorted1); r > best {
			best = r
		}
		if r := Ratio(sorted0, sorted2); r > best {
			best = r
		}
	}
	return best
}

// PartialRatio returns the best Ratio between the shorter input and any
// equal-length substring window of the longer input.
func PartialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == len(longer) {
		return Ratio(string(shorter), string(longer))
	}

	var best float64
	for i := 0; i+len(shorter) <= len(longer); i++ {
		r := Ratio(string(shorter), string(longer[i:i+len(shorter)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortTokens(s string) string {
	toks := strings.Fields(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

// tokenSet returns the sorted unique tokens of s.
func tokenSet(s string) []string {
	seen := map[string]bool{}
	var toks []string
	for _, tok := range strings.Fields(s) {
		if !seen[tok] {
			seen[tok] = true
			toks = append(toks, tok)
		}
	}
	sort.Strings(toks)
	return toks
}

func contains(sorted []string, tok string) bool {
	i := sort.SearchStrings(sorted, tok)
	return i < len(sorted) && sorted[i] == tok
}
