package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pders01/idgames/internal/cache"
	"github.com/pders01/idgames/internal/idgames"
	"github.com/pders01/idgames/internal/search"
	"github.com/pders01/idgames/internal/tui"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(tui.PrimaryColor).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(tui.SecondaryColor)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(tui.MutedColor)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func printJSON(w io.Writer, resp *idgames.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func rating(r float64, votes int) string {
	if votes == 0 && r == 0 {
		return "-"
	}
	return strconv.FormatFloat(r, 'f', 2, 64)
}

// printEntries prints a listing. Votes get their own columns; directories
// and files share one table.
func printEntries(w io.Writer, entries []idgames.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, tui.MsgNoResults)
		return
	}

	if _, ok := entries[0].(*idgames.VoteEntry); ok {
		t := newTable("File", "Title", "Rating", "Review")
		for _, e := range entries {
			v, ok := e.(*idgames.VoteEntry)
			if !ok {
				continue
			}
			t.Row(strconv.Itoa(v.FileID), v.DisplayTitle(), strconv.FormatFloat(v.Rating, 'f', 1, 64), tui.TruncateEnd(tui.OneLine(v.ReviewText), 40))
		}
		fmt.Fprintln(w, t.Render())
		return
	}

	t := newTable("ID", "Name", "Author", "Date", "Rating", "Size")
	for _, e := range entries {
		switch e := e.(type) {
		case *idgames.DirectoryEntry:
			t.Row(strconv.Itoa(e.ID), e.DisplayName()+"/", "", "", "", "")
		case *idgames.FileEntry:
			t.Row(strconv.Itoa(e.ID), e.DisplayTitle(), e.DisplayAuthor(), e.LocaleDate(), rating(e.Rating, e.VoteCount), e.FileSizeString())
		}
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, tui.MsgResultsCount(len(entries)))
}

func printFile(w io.Writer, f *idgames.FileEntry, mirror string) {
	fields := []struct{ label, value string }{
		{"Title", f.DisplayTitle()},
		{"Author", f.DisplayAuthor()},
		{"Email", f.Email},
		{"File", f.FileName},
		{"Path", f.FilePath},
		{"Size", f.FileSizeString()},
		{"Date", f.LocaleDate()},
		{"Rating", fmt.Sprintf("%s (%d votes)", rating(f.Rating, f.VoteCount), f.VoteCount)},
		{"Base", f.Base},
		{"Build time", f.BuildTime},
		{"Editors", f.EditorsUsed},
		{"Bugs", f.Bugs},
		{"Credits", f.Credits},
		{"Page", f.URL},
	}
	if mirror != "" {
		fields = append(fields, struct{ label, value string }{"Download", f.DownloadURL(mirror)})
	}

	for _, fld := range fields {
		if fld.value == "" {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-11s", fld.label+":")), fld.value)
	}

	if f.Description != "" {
		fmt.Fprintf(w, "\n%s\n", f.Description)
	}
	if len(f.Reviews) > 0 {
		fmt.Fprintf(w, "\n%s\n", labelStyle.Render(fmt.Sprintf("Reviews (%d)", len(f.Reviews))))
		for _, r := range f.Reviews {
			fmt.Fprintf(w, "  %s %s: %s\n", tui.TruncateEnd(r.Username, 20), strconv.FormatFloat(r.Rating, 'f', 0, 64), tui.OneLine(r.Text))
		}
	}
}

func printSearchResults(w io.Writer, results []*search.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, tui.MsgNoResults)
		return
	}
	t := newTable("ID", "Title", "Author", "Path", "Score")
	for _, r := range results {
		title := r.File.Title
		if title == "" {
			title = r.File.FileName
		}
		t.Row(strconv.Itoa(r.File.ID), title, r.File.Author, r.File.FilePath, strconv.FormatFloat(r.Score, 'f', 2, 64))
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, tui.MsgResultsCount(len(results)))
}

func printCacheStats(w io.Writer, s cache.Stats) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Directory:"), s.Dir)
	fmt.Fprintf(w, "%s %d\n", labelStyle.Render("Entries:  "), s.Entries)
	fmt.Fprintf(w, "%s %s of %s\n", labelStyle.Render("Size:     "), byteSize(s.Size), byteSize(s.MaxSize))
}

func byteSize(n int64) string {
	f := &idgames.FileEntry{FileSize: int(n)}
	return f.FileSizeString()
}

