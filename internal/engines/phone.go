package engines

import "strings"

// NormalizePhone canonicalizes a Kazakh phone number for account lookup.
//
// Input arrives in whatever shape the client produced ("+7 747 123-45-67",
// "87471234567", "7471234567"); the canonical stored form is 11 digits
// starting with 8.
func NormalizePhone(raw string) string {
	replacer := strings.NewReplacer(" ", "", "+", "", "-", "", "(", "", ")", "")
	clean := replacer.Replace(raw)

	switch {
	case len(clean) == 11 && strings.HasPrefix(clean, "7"):
		return "8" + clean[1:]
	case len(clean) == 10:
		return "8" + clean
	default:
		return clean
	}
}
