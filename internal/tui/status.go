package tui

import (
	"fmt"
	"strings"
)

// StatusKind selects the style of the status bar.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// Short status messages shared by the TUI and the CLI.
const (
	MsgLoading      = "Loading…"
	MsgRefreshing   = "Refreshing…"
	MsgFixingTitles = "Looking up vote titles…"
	MsgNoResults    = "No results"
	MsgEmptyDir     = "Empty directory"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgLoaded(n int, fromCache bool) string {
	base := MsgResultsCount(n)
	if fromCache {
		base += " • cached"
	}
	return base
}

func MsgOpened(url string) string {
	return "Opened " + strings.TrimSpace(url)
}

func MsgTitlesFixed(n int) string {
	if n == 1 {
		return "Found 1 vote title"
	}
	return fmt.Sprintf("Found %d vote titles", n)
}

func MsgSearchEngine(name string, docs int) string {
	if docs >= 0 {
		return fmt.Sprintf("Search: %s • idx: %d docs", name, docs)
	}
	return "Search: " + name
}
