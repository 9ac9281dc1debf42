package utils

import (
	"regexp"
	"strings"
)

var invalidPathChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename removes characters that are invalid in file paths.
func SanitizeFilename(name string) string {
	sanitized := invalidPathChars.ReplaceAllString(name, "")
	// Trailing spaces or periods break on some filesystems
	sanitized = strings.TrimRight(sanitized, " .")
	return sanitized
}
