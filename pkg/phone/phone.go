// Package phone canonicalizes mobile numbers scraped out of chat text.
// The rules target Moldova (+373) but the country code is configurable.
package phone

import (
	"strings"

	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// DefaultCountryCode is the Moldovan dialing code.
const DefaultCountryCode = "373"

// mobileDigits are the valid leading digits of a Moldovan mobile
// subscriber number.
var mobileDigits = map[byte]bool{'6': true, '7': true}

// Normalizer converts free-form phone strings into +<cc><subscriber> form.
type Normalizer struct {
	countryCode string
}

// NewNormalizer returns a Normalizer for the given country code. An empty
// code falls back to DefaultCountryCode.
func NewNormalizer(countryCode string) *Normalizer {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return &Normalizer{countryCode: countryCode}
}

// Normalize strips separators and applies the shape rules:
// 8 digits starting with a mobile digit is a bare subscriber number,
// 9 digits starting with 0 is the national trunk form,
// 11 digits starting with the country code is the international form,
// 10 digits matching the country code minus its first digit is a number
// whose leading digit was truncated upstream.
// Returns the canonical number and whether the input was recognized.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	digits := normalizers.DigitsOnly(raw)
	cc := n.countryCode

	switch len(digits) {
	case 8:
		if mobileDigits[digits[0]] {
			return "+" + cc + digits, true
		}
	case 9:
		if digits[0] == '0' && mobileDigits[digits[1]] {
			return "+" + cc + digits[1:], true
		}
	case len(cc) + 8:
		if strings.HasPrefix(digits, cc) && mobileDigits[digits[len(cc)]] {
			return "+" + digits, true
		}
	case len(cc) + 7:
		if strings.HasPrefix(digits, cc[1:]) && mobileDigits[digits[len(cc)-1]] {
			return "+" + cc[:1] + digits, true
		}
	}

	return "", false
}
