// Package block computes blocking keys that partition records into
// candidate groups, so only within-group pairs are ever compared.
package block

import (
	"fmt"
	"strings"
)

// Mode selects the blocking strategy.
type Mode string

const (
	// ModeComposite keys on company prefix + ZIP prefix + phone suffix.
	// This is the default: it concentrates true duplicates into small
	// comparison windows while tolerating name, ZIP, and phone variation.
	ModeComposite Mode = "composite"
	// ModePhone keys on the exact normalized phone number.
	ModePhone Mode = "phone"
	// ModeName keys on the prefix-6 spaceless normalized company name,
	// falling back to the address key when the name is empty.
	ModeName Mode = "name"
)

// ParseMode validates a blocking mode string, defaulting to composite.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeComposite:
		return ModeComposite, nil
	case ModePhone:
		return ModePhone, nil
	case ModeName:
		return ModeName, nil
	}
	return "", fmt.Errorf("unknown blocking mode %q", s)
}

// CompositeKey builds the "{c}_{z}_{p}" key from the normalized company
// name, raw ZIP code, and normalized phone. Components may be empty; the
// key is still constructed.
func CompositeKey(companyNorm, zip, phoneNorm string) string {
	c := prefix(companyNorm, 3)
	z := prefix(strings.TrimSpace(zip), 5)
	p := suffix(phoneNorm, 4)
	return strings.ToLower(c + "_" + z + "_" + p)
}

// NameKey returns the first 6 characters of the spaceless normalized
// company name, or empty when the name is empty.
func NameKey(companyNorm string) string {
	return prefix(strings.ReplaceAll(companyNorm, " ", ""), 6)
}

// AddrKey returns the first 6 characters of the spaceless normalized
// address, or empty when the address is empty.
func AddrKey(addrNorm string) string {
	return prefix(strings.ReplaceAll(addrNorm, " ", ""), 6)
}

// Key computes the blocking key for a record's normalized fields under the
// given mode. An empty key means the mode's components are all absent;
// callers place such records in singleton blocks.
func Key(mode Mode, companyNorm, addrNorm, zip, phoneNorm string) string {
	switch mode {
	case ModePhone:
		return phoneNorm
	case ModeName:
		if k := NameKey(companyNorm); k != "" {
			return k
		}
		return AddrKey(addrNorm)
	default:
		return CompositeKey(companyNorm, zip, phoneNorm)
	}
}

func prefix(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func suffix(s string, n int) string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
