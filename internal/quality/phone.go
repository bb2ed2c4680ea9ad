package quality

import (
	"strings"

	"github.com/sells-group/matchkey/internal/normalize"
)

// PhoneScore is the per-criterion breakdown of a phone quality score.
// Criteria weights sum to 100; a non-10-digit number zeroes everything.
type PhoneScore struct {
	Has10Digits     int `json:"has_10_digits"`
	NotAllSame      int `json:"not_all_same"`
	ValidAreaCode   int `json:"valid_area_code"`
	ValidExchange   int `json:"valid_exchange"`
	ValidLineNumber int `json:"valid_line_number"`
	NotTollFree     int `json:"not_toll_free"`
	NotMainLine     int `json:"not_main_line"`
	HasExtension    int `json:"has_extension"`
	HighQuality     int `json:"high_quality"`
	Total           int `json:"total"`
}

// Breakdown returns the criterion scores keyed by name, excluding the total.
func (s PhoneScore) Breakdown() map[string]int {
	return map[string]int{
		"has_10_digits":     s.Has10Digits,
		"not_all_same":      s.NotAllSame,
		"valid_area_code":   s.ValidAreaCode,
		"valid_exchange":    s.ValidExchange,
		"valid_line_number": s.ValidLineNumber,
		"not_toll_free":     s.NotTollFree,
		"not_main_line":     s.NotMainLine,
		"has_extension":     s.HasExtension,
		"high_quality":      s.HighQuality,
	}
}

// ScorePhone rates a phone number 0-100. The number is reduced to digits
// with a leading US '1' stripped; anything other than 10 digits scores 0.
// An extension earns full extension credit; a non-main line without one
// earns partial credit.
func (m *Metadata) ScorePhone(phone, extension string) PhoneScore {
	var s PhoneScore

	digits := normalize.Phone(phone)
	if len(digits) != 10 {
		return s
	}
	s.Has10Digits = 11

	if !allSame(digits) {
		s.NotAllSame = 11
	}

	areaCode := digits[:3]
	exchange := digits[3:6]
	lineNumber := digits[6:]

	if areaCode[0] != '0' && areaCode[0] != '1' {
		s.ValidAreaCode = 11
	}
	if exchange[0] != '0' && exchange[0] != '1' {
		s.ValidExchange = 11
	}
	if lineNumber != "0000" {
		s.ValidLineNumber = 11
	}
	if !m.TollFreeCodes[areaCode] {
		s.NotTollFree = 12
	}

	mainLine := strings.HasSuffix(lineNumber, "000")
	if !mainLine {
		s.NotMainLine = 11
	}

	if strings.TrimSpace(extension) != "" {
		s.HasExtension = 11
	} else if !mainLine {
		s.HasExtension = 5
	}

	if !strings.Contains(digits, "0123456789") &&
		!strings.Contains(digits, "9876543210") &&
		!hasRepeatedRun(digits, 4) {
		s.HighQuality = 11
	}

	s.Total = s.Has10Digits + s.NotAllSame + s.ValidAreaCode + s.ValidExchange +
		s.ValidLineNumber + s.NotTollFree + s.NotMainLine + s.HasExtension + s.HighQuality
	return s
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// hasRepeatedRun reports whether s contains n identical digits in a row.
func hasRepeatedRun(s string, n int) bool {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
