package validation

import (
	"path/filepath"
	"strings"
	"unicode"
)

const maxFileNameLength = 128

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1 // Drop the rune
	}, s)
}

// SanitizeFileName reduces a browser-supplied file name to a printable base
// name suitable for logs and notifications.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	name = strings.TrimSpace(StripUnprintable(strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(name)))
	if r := []rune(name); len(r) > maxFileNameLength {
		name = string(r[:maxFileNameLength])
	}
	return name
}
