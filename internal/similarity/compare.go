package similarity

import (
	"math"
	"strings"

	"github.com/sells-group/matchkey/internal/normalize"
)

// Comparator scores a pair of raw field values in [0,100].
type Comparator func(a, b string) float64

// CompanyNames compares two company names after name normalization.
func CompanyNames(a, b string) float64 {
	return TokenSortRatio(normalize.CompanyName(a), normalize.CompanyName(b))
}

// Addresses compares two street addresses after address normalization.
func Addresses(a, b string) float64 {
	return TokenSortRatio(normalize.Address(a), normalize.Address(b))
}

// Phones compares two phone numbers: 100 on exact normalized equality, else 0.
func Phones(a, b string) float64 {
	pa, pb := normalize.Phone(a), normalize.Phone(b)
	if pa == "" || pb == "" {
		return 0
	}
	if pa == pb {
		return 100
	}
	return 0
}

// Emails compares two email addresses: 100 on exact normalized equality, else 0.
func Emails(a, b string) float64 {
	ea, eb := normalize.Email(a), normalize.Email(b)
	if ea == "" || eb == "" {
		return 0
	}
	if ea == eb {
		return 100
	}
	return 0
}

// Generic compares two values of unknown type with token-sort ratio.
func Generic(a, b string) float64 {
	return TokenSortRatio(strings.TrimSpace(a), strings.TrimSpace(b))
}

// fieldDispatch maps field-name substrings to comparators, scanned in
// declared order. First hit wins.
var fieldDispatch = []struct {
	substr string
	cmp    Comparator
}{
	{"COMPANY", CompanyNames},
	{"NAME", CompanyNames},
	{"ADDRESS", Addresses},
	{"PHONE", Phones},
	{"EMAIL", Emails},
}

// ForField returns the comparator for a canonical field name, dispatching
// on substrings of the uppercased name. Unknown fields get Generic.
func ForField(field string) Comparator {
	upper := strings.ToUpper(field)
	for _, entry := range fieldDispatch {
		if strings.Contains(upper, entry.substr) {
			return entry.cmp
		}
	}
	return Generic
}

// BlendedScore combines pre-normalized name, address, and phone similarity
// into a single 0-100 score: 55% name, 35% address, 10% exact-phone boost.
func BlendedScore(name, addr, phone, candName, candAddr, candPhone string) int {
	nameSim := TokenSortRatio(name, candName)
	addrSim := TokenSortRatio(addr, candAddr)

	var phoneSim float64
	if phone != "" && candPhone != "" && phone == candPhone {
		phoneSim = 100
	}

	return int(math.Round(0.55*nameSim + 0.35*addrSim + 0.10*phoneSim))
}
