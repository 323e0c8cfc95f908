package utils

const (
	// DateDisplayLength is the length of the calendar-date part of an
	// ISO-8601 timestamp.
	DateDisplayLength = 10
	// HashDisplayLength is how much of an identifier hash is shown inline.
	HashDisplayLength = 7
	ellipsis          = "..."
)

// DatePrefix returns the first 10 characters of an ISO-8601 date-time,
// i.e. the calendar date. Shorter strings are returned unchanged.
func DatePrefix(iso string) string {
	return runePrefix(iso, DateDisplayLength)
}

// TruncateHash shortens an identifier hash for display. The ellipsis is
// always appended; the full value belongs in a tooltip.
func TruncateHash(hash string) string {
	return runePrefix(hash, HashDisplayLength) + ellipsis
}

func runePrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

