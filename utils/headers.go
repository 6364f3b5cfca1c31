// grbwatch/utils/headers.go
package utils

import "strings"

// NormalizeHeader strips bracketed units ("[deg]"), "90%" markers and
// parenthetical notes from a table header and collapses whitespace, so
// "BAT Err 90% [arcmin]" becomes "BAT Err".
func NormalizeHeader(label string) string {
	if i := strings.Index(label, "["); i >= 0 {
		label = label[:i]
	}
	label = strings.ReplaceAll(label, "90%", "")
	if i := strings.Index(label, "("); i >= 0 {
		label = label[:i]
	}
	return CollapseSpace(label)
}

// CollapseSpace trims s and replaces every run of whitespace with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
