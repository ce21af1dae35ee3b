// Package strings holds the small text helpers shared by the wire
// codecs and the CLI.
package strings

import "strings"

// IsBlank reports whether value is empty after trimming whitespace.
func IsBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// TrimSpace trims surrounding whitespace.
func TrimSpace(value string) string {
	return strings.TrimSpace(value)
}

// NormalizeNewlines replaces CRLF and CR with LF.
func NormalizeNewlines(value string) string {
	if value == "" {
		return value
	}
	value = strings.ReplaceAll(value, "\r\n", "\n")
	return strings.ReplaceAll(value, "\r", "\n")
}

// SplitLines splits a newline-delimited body the way a line reader
// would: line endings are normalized and a single trailing newline does
// not produce an extra empty line. An empty body has no lines.
func SplitLines(body string) []string {
	body = NormalizeNewlines(body)
	if body == "" {
		return nil
	}
	body = strings.TrimSuffix(body, "\n")
	return strings.Split(body, "\n")
}

// EnsureTrailingSlash appends '/' unless value already ends with one.
func EnsureTrailingSlash(value string) string {
	if strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}

// Mask replaces every character of a secret with '*'. Empty stays empty.
func Mask(value string) string {
	return strings.Repeat("*", len([]rune(value)))
}
