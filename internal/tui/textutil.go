package tui

import "strings"

// TruncateEnd cuts s to at most limit runes, ending in an ellipsis when
// anything was dropped.
func TruncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

// TruncateMiddle cuts s to at most limit runes, keeping both ends. Archive
// paths carry the directory up front and the file name at the end.
func TruncateMiddle(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	keep := limit - 1
	left := keep / 2
	right := keep - left
	return string(r[:left]) + "…" + string(r[len(r)-right:])
}

// OneLine collapses all whitespace runs, newlines included, to single spaces.
// Review texts from the API are free-form and often span several lines.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
