package quality

import (
	"regexp"
	"strings"
)

var emailFormatRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// EmailScore is the per-criterion breakdown of an email quality score.
// Each criterion is worth 20 points; a format failure zeroes everything.
type EmailScore struct {
	ValidFormat   int `json:"valid_format"`
	NonPersonal   int `json:"non_personal"`
	NonGeneric    int `json:"non_generic"`
	NonAdmin      int `json:"non_admin"`
	NonDepartment int `json:"non_department"`
	Total         int `json:"total"`
}

// Breakdown returns the criterion scores keyed by name, excluding the total.
func (s EmailScore) Breakdown() map[string]int {
	return map[string]int{
		"valid_format":   s.ValidFormat,
		"non_personal":   s.NonPersonal,
		"non_generic":    s.NonGeneric,
		"non_admin":      s.NonAdmin,
		"non_department": s.NonDepartment,
	}
}

// ScoreEmail rates an email address 0-100 across five 20-point criteria:
// format validity, non-personal domain, non-generic mailbox, non-admin
// mailbox, non-department mailbox.
func (m *Metadata) ScoreEmail(email string) EmailScore {
	var s EmailScore

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return s
	}

	if !emailFormatRe.MatchString(email) {
		return s
	}
	s.ValidFormat = 20

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]

	if !m.PersonalDomains[domain] {
		s.NonPersonal = 20
	}
	if !m.GenericPrefixes[local] {
		s.NonGeneric = 20
	}
	if !adminPrefixes[local] {
		s.NonAdmin = 20
	}
	if !m.DepartmentPrefixes[local] {
		s.NonDepartment = 20
	}

	s.Total = s.ValidFormat + s.NonPersonal + s.NonGeneric + s.NonAdmin + s.NonDepartment
	return s
}
