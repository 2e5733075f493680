package validators

import "strings"

// SanitizeString trims surrounding whitespace and truncates to maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 {
		if runes := []rune(trimmed); len(runes) > maxLen {
			return strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return trimmed
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
