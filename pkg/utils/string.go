package utils

// Truncate cuts s to at most maxLen runes and appends an ellipsis when
// anything was dropped.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
