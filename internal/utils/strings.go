package utils

import "strings"

// SafeTruncate truncates s to at most maxLen runes, appending "..." when cut.
func SafeTruncate(s string, maxLen int) string {
	if maxLen <= 0 || s == "" {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return string(runes[:1])
	}
	return string(runes[:maxLen-3]) + "..."
}

// SanitizeOutput removes ANSI escape sequences and control characters.
func SanitizeOutput(s string) string {
	var result strings.Builder
	inEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			inEscape = true
			i++ // skip '['
			continue
		}
		if inEscape {
			if (s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= 'a' && s[i] <= 'z') {
				inEscape = false
			}
			continue
		}
		if s[i] >= 32 || s[i] == '\n' || s[i] == '\t' {
			result.WriteByte(s[i])
		}
	}
	return result.String()
}

// OneLine collapses all whitespace runs (newlines included) into single spaces
// and truncates the result to maxLen runes. Used for report previews.
func OneLine(s string, maxLen int) string {
	collapsed := strings.Join(strings.Fields(SanitizeOutput(s)), " ")
	return SafeTruncate(collapsed, maxLen)
}
