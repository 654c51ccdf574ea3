package utils

import (
	"strings"
	"unicode"
)

// SanitizeTitle keeps letters, digits, spaces and -_. so the title can be
// used as a file name, and caps the result at maxLen runes.
// Example: "My Video: Part 1/2" -> "My Video Part 12"
func SanitizeTitle(title string, maxLen int) string {
	var b strings.Builder
	n := 0
	for _, r := range title {
		if maxLen > 0 && n >= maxLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			n++
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "video"
	}
	return out
}
