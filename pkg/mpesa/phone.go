package mpesa

import "strings"

const countryCode = "254"

// NormalizePhone converts a Kenyan number to the 2547XXXXXXXX form Daraja
// expects: "+" and spaces are stripped, a leading 0 becomes the country code
// and anything not already prefixed gets it prepended.
func NormalizePhone(phone string) string {
	p := strings.ReplaceAll(phone, "+", "")
	p = strings.ReplaceAll(p, " ", "")
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "0"):
		return countryCode + p[1:]
	case strings.HasPrefix(p, countryCode):
		return p
	default:
		return countryCode + p
	}
}
