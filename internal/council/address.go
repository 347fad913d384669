package council

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PostcodeFromAddress returns the last comma-separated part of a one-line
// address.
func PostcodeFromAddress(address string) string {
	parts := strings.Split(address, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}

// NewlineAddress drops the trailing postcode part of a one-line address and
// puts each remaining part on its own line.
func NewlineAddress(address string) string {
	parts := strings.Split(address, ",")
	lines := make([]string, 0, len(parts))
	for _, p := range parts[:len(parts)-1] {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	return strings.Join(lines, "\n")
}

// CleanText normalizes to NFC and collapses runs of whitespace on each line.
func CleanText(s string) string {
	s = norm.NFC.String(s)
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
