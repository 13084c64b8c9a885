package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/idgames/internal/idgames"
)

const searchResultLimit = 20

// navigate moves to p and starts its request. The previous in-flight task
// is cancelled; with push the current page is kept for going back.
func (a *App) navigate(p page, push bool) tea.Cmd {
	if push && a.current.req != nil {
		a.current.cursor = a.entryList.Index()
		a.history = append(a.history, a.current)
	}
	a.current = p
	if p.req.Action == idgames.ActionGetFile {
		a.view = ViewDetails
		a.viewport.SetContent("")
	} else {
		a.view = ViewList
		a.entryList.ResetFilter()
		a.setEntries(nil, 0)
	}
	return a.load(p.req)
}

// back restores the previous page without refetching it.
func (a *App) back() tea.Cmd {
	if len(a.history) == 0 {
		return nil
	}
	a.cancelInFlight()
	a.loading = false

	prev := a.history[len(a.history)-1]
	a.history = a.history[:len(a.history)-1]
	a.current = prev

	if prev.req.Action == idgames.ActionGetFile {
		a.view = ViewDetails
		if prev.file != nil {
			return a.renderFile(prev.file)
		}
		return a.load(prev.req)
	}
	a.view = ViewList
	if prev.entries == nil {
		return a.load(prev.req)
	}
	return a.setEntries(prev.entries, prev.cursor)
}

// reload refetches the current page, bypassing the cache.
func (a *App) reload() tea.Cmd {
	if a.current.req == nil {
		return nil
	}
	req := *a.current.req
	req.MaxAge = 0
	a.setStatus(MsgRefreshing, StatusInfo)
	return a.load(&req)
}

func (a *App) cancelInFlight() {
	if a.task != nil {
		a.task.Cancel()
		a.task = nil
	}
	if a.fixCancel != nil {
		a.fixCancel()
		a.fixCancel = nil
	}
}

func (a *App) load(req *idgames.Request) tea.Cmd {
	a.cancelInFlight()

	task := a.client.Submit(req)
	a.task = task
	a.loading = true
	a.err = nil

	return func() tea.Msg {
		resp := task.Wait()
		return responseMsg{
			taskID:    task.ID(),
			req:       task.Request(),
			resp:      resp,
			fromCache: task.FromCache(),
		}
	}
}

// fixVoteTitles looks up missing vote titles on copies of votes, so the
// entries on screen are never written concurrently.
func (a *App) fixVoteTitles(req *idgames.Request, votes []*idgames.VoteEntry) tea.Cmd {
	var missing []*idgames.VoteEntry
	for _, v := range votes {
		if v.Title == "" {
			cp := *v
			missing = append(missing, &cp)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.fixCancel = cancel
	hash := req.Hash()
	a.setStatus(MsgFixingTitles, StatusInfo)

	return func() tea.Msg {
		defer cancel()
		n := a.client.FixVoteTitles(ctx, missing, a.titles)
		return votesFixedMsg{reqHash: hash, votes: missing, fixed: n}
	}
}

func (a *App) renderFile(f *idgames.FileEntry) tea.Cmd {
	return func() tea.Msg {
		r, err := a.getRenderer()
		if err != nil {
			return fileRenderedMsg{fileID: f.ID, content: "Error initializing renderer: " + err.Error()}
		}
		rendered, err := r.Render(fileMarkdown(f, a.config.API.MirrorURL))
		if err != nil {
			return fileRenderedMsg{fileID: f.ID, content: fmt.Sprintf("Failed to render file: %s\n\nPress Escape to go back.", err)}
		}
		return fileRenderedMsg{fileID: f.ID, content: rendered}
	}
}

// fileMarkdown lays out a file's details and reviews as markdown.
func fileMarkdown(f *idgames.FileEntry, mirror string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", f.DisplayTitle())
	fmt.Fprintf(&b, "*by %s*", f.DisplayAuthor())
	if d := f.LocaleDate(); d != "" {
		fmt.Fprintf(&b, " • %s", d)
	}
	b.WriteString("\n\n")

	b.WriteString("| | |\n|---|---|\n")
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "| %s | %s |\n", k, strings.ReplaceAll(v, "|", "\\|"))
		}
	}
	row("File", f.FileName)
	row("Path", f.FilePath)
	if f.FileSize > 0 {
		row("Size", f.FileSizeString())
	}
	if f.VoteCount > 0 {
		row("Rating", fmt.Sprintf("%s %.2f (%d votes)", stars(f.Rating), f.Rating, f.VoteCount))
	}
	row("Email", f.Email)
	row("Base", f.Base)
	row("Build time", f.BuildTime)
	row("Editors", f.EditorsUsed)
	row("Bugs", f.Bugs)
	row("Credits", f.Credits)
	if mirror != "" {
		row("Download", f.DownloadURL(mirror))
	}
	b.WriteString("\n")

	if f.Description != "" {
		fmt.Fprintf(&b, "## Description\n\n%s\n\n", f.Description)
	}

	if len(f.Reviews) > 0 {
		fmt.Fprintf(&b, "## Reviews (%d)\n\n", len(f.Reviews))
		for _, r := range f.Reviews {
			fmt.Fprintf(&b, "**%s** %s\n\n", r.Username, stars(r.Rating))
			if text := strings.TrimSpace(r.Text); text != "" {
				fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(text, "\n", "\n> "))
			}
		}
	}

	if f.TextFileContents != "" {
		fmt.Fprintf(&b, "## Text file\n\n```\n%s\n```\n", f.TextFileContents)
	}
	return b.String()
}

func (a *App) performSearch(query string) tea.Cmd {
	if a.searcher == nil {
		return nil
	}
	query = strings.TrimSpace(query)
	return func() tea.Msg {
		results, err := a.searcher.Search(query, searchResultLimit)
		if err != nil {
			return errorMsg{err: wrapErr("search", err)}
		}
		return searchResultsMsg{query: query, results: results}
	}
}

func (a *App) openFile(f *idgames.FileEntry) tea.Cmd {
	return func() tea.Msg {
		url, err := a.launcher.OpenFile(f)
		return openedMsg{url: url, err: err}
	}
}
