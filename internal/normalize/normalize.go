// Package normalize canonicalizes raw field strings for matching.
// Every function is pure and idempotent: the same raw value always
// yields the same normalized value, and normalizing twice is a no-op.
package normalize

import (
	"regexp"
	"strings"
)

// legalForms lists legal-entity suffixes stripped from company names,
// matched as whole tokens after punctuation removal.
var legalForms = map[string]bool{
	"inc": true, "incorporated": true,
	"corp": true, "corporation": true,
	"llc": true, "ltd": true, "limited": true,
	"co": true, "company": true,
	"plc": true, "lp": true, "llp": true, "pllc": true,
	"pc": true, "pa": true, "na": true,
}

// articles are stripped from company names alongside legal forms.
var articles = map[string]bool{
	"the": true, "a": true, "an": true,
}

// addressAbbrevs maps spelled-out address words to their standard
// abbreviations. Replacements are whole-word only.
var addressAbbrevs = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"road":      "rd",
	"boulevard": "blvd",
	"drive":     "dr",
	"lane":      "ln",
	"court":     "ct",
	"place":     "pl",
	"suite":     "ste",
	"apartment": "apt",
	"building":  "bldg",
	"floor":     "fl",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
}

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)
	spaceRe    = regexp.MustCompile(`\s+`)
	nonDigitRe = regexp.MustCompile(`\D`)
)

// Text lower-cases, replaces non-alphanumeric runes with spaces, collapses
// whitespace, and trims. Empty input yields empty output.
func Text(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CompanyName normalizes a company name for comparison: Text normalization
// followed by whole-token removal of legal forms (inc, llc, corp, ...) and
// articles (the, a, an).
func CompanyName(s string) string {
	s = Text(s)
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, tok := range fields {
		if legalForms[tok] || articles[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// Address normalizes a street address: Text normalization followed by
// whole-word substitution of standard abbreviations (street→st, north→n, ...).
func Address(s string) string {
	s = Text(s)
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	for i, tok := range fields {
		if abbr, ok := addressAbbrevs[tok]; ok {
			fields[i] = abbr
		}
	}
	return strings.Join(fields, " ")
}

// Phone extracts the digits from a phone number. An 11-digit number with a
// leading US country code '1' is reduced to 10 digits. Any other length is
// returned as-is; downstream quality checks reject non-10-digit results but
// the digits are still stored.
func Phone(s string) string {
	digits := nonDigitRe.ReplaceAllString(s, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// Email lower-cases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
