package locker

import (
	"strings"
)

// cyprusPrefixes are the leading digits of Cypriot mobile and landline numbers.
var cyprusPrefixes = map[string]bool{
	"22": true, "23": true, "24": true, "25": true, "26": true,
	"96": true, "97": true, "98": true, "99": true,
}

// NormalizePhone converts a customer phone number to international format.
// Numbers without a country code default to Greece (+30), except short
// numbers with a Cypriot prefix which get +357.
//
// The caller must reject empty input: NormalizePhone("") returns "+30".
func NormalizePhone(raw string) string {
	if strings.HasPrefix(raw, "+") {
		return raw
	}
	if strings.HasPrefix(raw, "00") {
		return "+" + raw[2:]
	}

	digits := digitsOnly(raw)
	if len(raw) >= 2 && cyprusPrefixes[raw[:2]] && len(digits) < 9 {
		return "+357" + digits
	}
	return "+30" + digits
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
