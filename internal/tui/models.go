package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/idgames/internal/idgames"
	"github.com/pders01/idgames/internal/search"
)

type View int

const (
	ViewList View = iota
	ViewDetails
	ViewSearch
)

func (v View) String() string {
	switch v {
	case ViewList:
		return "list"
	case ViewDetails:
		return "details"
	case ViewSearch:
		return "search"
	default:
		return "unknown"
	}
}

// page is one step of the navigation history: the request that produced
// it, what it returned, and where the cursor was.
type page struct {
	title   string
	req     *idgames.Request
	entries []idgames.Entry
	file    *idgames.FileEntry
	cursor  int
}

type entryItem struct {
	entry idgames.Entry
}

func (i entryItem) Title() string {
	switch e := i.entry.(type) {
	case *idgames.DirectoryEntry:
		return DirItemStyle.Render("▸ " + e.DisplayName() + "/")
	case *idgames.FileEntry:
		return e.DisplayTitle()
	case *idgames.VoteEntry:
		return RatingStyle.Render(stars(e.Rating)) + " " + e.DisplayTitle()
	default:
		return ""
	}
}

func (i entryItem) Description() string {
	var desc string
	switch e := i.entry.(type) {
	case *idgames.DirectoryEntry:
		desc = e.Name
	case *idgames.FileEntry:
		parts := []string{e.DisplayAuthor()}
		if d := e.LocaleDate(); d != "" {
			parts = append(parts, d)
		}
		if e.VoteCount > 0 {
			parts = append(parts, fmt.Sprintf("%s (%d)", stars(e.Rating), e.VoteCount))
		}
		if e.FileSize > 0 {
			parts = append(parts, e.FileSizeString())
		}
		desc = strings.Join(parts, " • ")
	case *idgames.VoteEntry:
		desc = TruncateEnd(OneLine(e.ReviewText), 80)
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render(desc)
}

func (i entryItem) FilterValue() string {
	switch e := i.entry.(type) {
	case *idgames.DirectoryEntry:
		return e.DisplayName()
	case *idgames.FileEntry:
		return e.DisplayTitle() + " " + e.Author
	case *idgames.VoteEntry:
		return e.DisplayTitle()
	default:
		return ""
	}
}

type searchResultItem struct {
	result *search.Result
}

func (i searchResultItem) Title() string {
	return i.result.File.DisplayTitle()
}

func (i searchResultItem) Description() string {
	f := i.result.File
	desc := f.Author
	if f.FilePath != "" {
		desc += " • " + TruncateMiddle(f.FilePath+f.FileName, 50)
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render(desc)
}

func (i searchResultItem) FilterValue() string { return i.result.File.DisplayTitle() }

// stars renders a 0-5 rating as five stars.
func stars(rating float64) string {
	n := int(rating + 0.5)
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

type responseMsg struct {
	taskID    string
	req       *idgames.Request
	resp      *idgames.Response
	fromCache bool
}

type fileRenderedMsg struct {
	fileID  int
	content string
}

type votesFixedMsg struct {
	reqHash string
	votes   []*idgames.VoteEntry
	fixed   int
}

type searchResultsMsg struct {
	query   string
	results []*search.Result
}

type openedMsg struct {
	url string
	err error
}

type errorMsg struct {
	err error
}
