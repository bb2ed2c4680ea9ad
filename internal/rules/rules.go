// Package rules implements the declarative match-rule model: a rule is a
// conjunction of per-field similarity conditions evaluated over a record
// pair. Rules are evaluated in ascending priority, with on-disk
// declaration order as the tiebreak.
package rules

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
)

// Condition is a per-field similarity threshold with blank-handling
// modifiers. Include defaults to true when omitted.
type Condition struct {
	Field        string  `json:"field"`
	Percentage   float64 `json:"percentage"`
	Include      bool    `json:"include"`
	Blank        bool    `json:"blank"`
	BlankAllowed bool    `json:"blank_allowed"`
}

// UnmarshalJSON applies the include=true default for omitted include flags.
func (c *Condition) UnmarshalJSON(data []byte) error {
	type alias struct {
		Field        string  `json:"field"`
		Percentage   float64 `json:"percentage"`
		Include      *bool   `json:"include"`
		Blank        bool    `json:"blank"`
		BlankAllowed bool    `json:"blank_allowed"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	c.Field = a.Field
	c.Percentage = a.Percentage
	c.Blank = a.Blank
	c.BlankAllowed = a.BlankAllowed
	c.Include = a.Include == nil || *a.Include
	return nil
}

// Rule matches a record pair iff every condition holds. Enabled defaults
// to true when omitted.
type Rule struct {
	ID          string      `json:"-"`
	Enabled     bool        `json:"enabled"`
	Priority    int         `json:"priority"`
	MatchReason string      `json:"match_reason"`
	Conditions  []Condition `json:"conditions"`
}

// UnmarshalJSON applies the enabled=true default for omitted enabled flags.
func (r *Rule) UnmarshalJSON(data []byte) error {
	type alias struct {
		Enabled     *bool       `json:"enabled"`
		Priority    int         `json:"priority"`
		MatchReason string      `json:"match_reason"`
		Conditions  []Condition `json:"conditions"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	r.Enabled = a.Enabled == nil || *a.Enabled
	r.Priority = a.Priority
	r.MatchReason = a.MatchReason
	r.Conditions = a.Conditions
	return nil
}

// Reason returns the rule's match reason, falling back to its ID.
func (r Rule) Reason() string {
	if r.MatchReason != "" {
		return r.MatchReason
	}
	return r.ID
}

// Parse reads a rules document `{"rules": {id: rule, ...}}` preserving the
// declaration order of the rule object, then stable-sorts by ascending
// priority so declaration order breaks priority ties. JSON maps are
// unordered once decoded, so the rule object is walked token by token.
func Parse(data []byte) ([]Rule, error) {
	var doc struct {
		Rules json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "rules: parse document")
	}
	if len(doc.Rules) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(doc.Rules))
	tok, err := dec.Token()
	if err != nil {
		return nil, eris.Wrap(err, "rules: read rules object")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, eris.New("rules: rules value is not an object")
	}

	var parsed []Rule
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrap(err, "rules: read rule id")
		}
		id, _ := keyTok.(string)

		var r Rule
		if err := dec.Decode(&r); err != nil {
			return nil, eris.Wrapf(err, "rules: parse rule %q", id)
		}
		r.ID = id
		parsed = append(parsed, r)
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].Priority < parsed[j].Priority
	})
	return parsed, nil
}
