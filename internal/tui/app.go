// Package tui is a terminal browser for the idgames archive.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/idgames/internal/client"
	"github.com/pders01/idgames/internal/config"
	"github.com/pders01/idgames/internal/idgames"
	"github.com/pders01/idgames/internal/media"
	"github.com/pders01/idgames/internal/search"
)

type App struct {
	config     *config.Config
	client     *client.Client
	searcher   search.Searcher
	titles     client.TitleLookup
	launcher   *media.Launcher
	keyHandler *KeyHandler

	entryList   list.Model
	searchList  list.Model
	searchInput textinput.Model
	viewport    viewport.Model
	help        help.Model

	view     View
	current  page
	history  []page
	category idgames.Category

	// task is the in-flight request; a response from any other task is
	// stale and dropped.
	task      *client.Task
	fixCancel context.CancelFunc

	status     string
	statusKind StatusKind
	err        error
	loading    bool
	showHelp   bool

	width           int
	height          int
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

// NewApp builds the browser. searcher and titles may be nil; without a
// searcher the live search list stays empty.
func NewApp(cl *client.Client, searcher search.Searcher, titles client.TitleLookup) *App {
	cfg := cl.Config()
	ApplyColors(cfg.UI.Colors)

	entryList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	entryList.Title = "› /"
	entryList.SetShowStatusBar(false)
	entryList.SetFilteringEnabled(true)
	entryList.SetShowHelp(true)
	// "/" opens the archive search, so the list filter moves to "f".
	entryList.KeyMap.Filter = key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter"))

	searchList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	searchList.Title = "› offline results"
	searchList.SetShowStatusBar(false)
	searchList.SetShowHelp(false)
	searchList.SetFilteringEnabled(false)

	si := textinput.New()
	si.Placeholder = "Search the archive..."
	si.CharLimit = 128

	category, err := idgames.ParseCategory(cfg.Search.DefaultCategory)
	if err != nil {
		category = idgames.CategoryTitle
	}

	app := &App{
		config:      cfg,
		client:      cl,
		searcher:    searcher,
		titles:      titles,
		launcher:    media.NewLauncher(cfg),
		entryList:   entryList,
		searchList:  searchList,
		searchInput: si,
		viewport:    viewport.New(0, 0),
		help:        help.New(),
		view:        ViewList,
		category:    category,
	}
	app.keyHandler = NewKeyHandler(app, cfg)
	return app
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 120 {
		wordWrapWidth = 120
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}
	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.navigate(page{title: "/", req: a.client.ContentsRequest("")}, false),
		tea.EnterAltScreen,
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.entryList.SetSize(msg.Width, msg.Height-3)
		searchListHeight := msg.Height - 10
		if searchListHeight < 5 {
			searchListHeight = 5
		}
		a.searchList.SetSize(msg.Width, searchListHeight)
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 3
		a.help.Width = msg.Width

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case responseMsg:
		return a, a.handleResponse(msg)

	case fileRenderedMsg:
		if a.view == ViewDetails && a.current.file != nil && a.current.file.ID == msg.fileID {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
		}

	case votesFixedMsg:
		a.applyVoteTitles(msg)

	case searchResultsMsg:
		if a.view == ViewSearch && strings.TrimSpace(a.searchInput.Value()) == msg.query {
			items := make([]list.Item, len(msg.results))
			for i, r := range msg.results {
				items[i] = searchResultItem{result: r}
			}
			cmds = append(cmds, a.searchList.SetItems(items))
		}

	case openedMsg:
		if msg.err != nil {
			a.setError(wrapErr("open", msg.err))
		} else {
			a.setStatus(MsgOpened(msg.url), StatusSuccess)
		}

	case errorMsg:
		a.setError(msg.err)
	}

	switch a.view {
	case ViewList:
		newList, cmd := a.entryList.Update(msg)
		a.entryList = newList
		cmds = append(cmds, cmd)
	case ViewDetails:
		switch msg.(type) {
		case tea.WindowSizeMsg, tea.MouseMsg:
			newViewport, cmd := a.viewport.Update(msg)
			a.viewport = newViewport
			cmds = append(cmds, cmd)
		}
	case ViewSearch:
		newSearchInput, cmd := a.searchInput.Update(msg)
		a.searchInput = newSearchInput
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// handleResponse applies the response of the in-flight task. Responses of
// superseded tasks are ignored.
func (a *App) handleResponse(msg responseMsg) tea.Cmd {
	if a.task == nil || msg.taskID != a.task.ID() {
		return nil
	}
	a.task = nil
	a.loading = false

	if msg.resp.Cancelled() {
		return nil
	}
	if err := responseErr(msg.resp); err != nil {
		a.setError(err)
		if a.view == ViewList {
			a.current.entries = nil
			return a.entryList.SetItems(nil)
		}
		return nil
	}

	if msg.req.Action == idgames.ActionGetFile {
		files := msg.resp.Files()
		if len(files) == 0 {
			a.setError(wrapErr("details", errNoFile))
			return nil
		}
		a.current.file = files[0]
		a.setStatus(a.current.file.DisplayTitle(), StatusInfo)
		return a.renderFile(a.current.file)
	}

	a.current.entries = msg.resp.Entries
	switch {
	case len(msg.resp.Entries) == 0 && msg.req.Action == idgames.ActionGetContents:
		a.setStatus(MsgEmptyDir, StatusInfo)
	case len(msg.resp.Entries) == 0:
		a.setStatus(MsgNoResults, StatusInfo)
	default:
		a.setStatus(MsgLoaded(len(msg.resp.Entries), msg.fromCache), StatusInfo)
	}
	if msg.resp.WarningMessage != "" {
		a.setStatus(msg.resp.WarningMessage, StatusWarn)
	}

	cmds := []tea.Cmd{a.setEntries(a.current.entries, a.current.cursor)}
	if msg.req.Action == idgames.ActionGetLatestVotes {
		cmds = append(cmds, a.fixVoteTitles(a.current.req, msg.resp.Votes()))
	}
	return tea.Batch(cmds...)
}

func (a *App) setEntries(entries []idgames.Entry, cursor int) tea.Cmd {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{entry: e}
	}
	a.entryList.Title = "› " + a.current.title
	cmd := a.entryList.SetItems(items)
	if cursor >= 0 && cursor < len(items) {
		a.entryList.Select(cursor)
	}
	return cmd
}

// applyVoteTitles swaps in the vote copies whose titles were looked up,
// if the votes page is still the one on screen.
func (a *App) applyVoteTitles(msg votesFixedMsg) {
	if a.current.req == nil || a.current.req.Hash() != msg.reqHash || msg.fixed == 0 {
		return
	}
	byID := make(map[int]*idgames.VoteEntry, len(msg.votes))
	for _, v := range msg.votes {
		byID[v.ID] = v
	}
	for i, e := range a.current.entries {
		if v, ok := e.(*idgames.VoteEntry); ok {
			if fixed, ok := byID[v.ID]; ok {
				a.current.entries[i] = fixed
			}
		}
	}
	a.setEntries(a.current.entries, a.entryList.Index())
	a.setStatus(MsgTitlesFixed(msg.fixed), StatusSuccess)
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
	a.err = nil
}

func (a *App) setError(err error) {
	a.err = err
	a.status = ""
}

func (a *App) View() string {
	var content string
	height := a.height - 3
	if height < 0 {
		height = 0
	}

	switch a.view {
	case ViewList:
		if a.loading && len(a.entryList.Items()) == 0 {
			content = renderCentered(a.width, height, GetCompactBanner(MsgLoading))
		} else {
			content = a.entryList.View()
		}
	case ViewDetails:
		if a.current.file == nil {
			text := MsgLoading
			if !a.loading {
				text = "No details available"
			}
			content = renderCentered(a.width, height, renderMuted(text))
		} else {
			content = a.viewport.View()
		}
	case ViewSearch:
		inputWidth := a.width - 8
		if inputWidth < 10 {
			inputWidth = 10
		}
		a.searchInput.Width = inputWidth

		helpText := "Enter: search " + a.category.String() + " online • Tab: category • ↓: offline results • Esc: back"
		if !a.searchInput.Focused() {
			helpText = "↑↓: navigate • Enter: details • Tab: search box • Esc: back"
		}

		content = lipgloss.NewStyle().
			Width(a.width).
			Height(height).
			MaxHeight(height).
			Render(lipgloss.JoinVertical(
				lipgloss.Top,
				renderHeader("› search", "by "+a.category.String(), a.width),
				"",
				renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), inputWidth),
				renderHelp(helpText),
				"",
				a.searchList.View(),
			))
	}

	if a.showHelp {
		content = lipgloss.JoinVertical(lipgloss.Top, content, a.help.View(a.keyHandler))
	}

	separatorWidth := a.width - 2
	if separatorWidth < 0 {
		separatorWidth = 0
	}
	separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))
	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.statusBar())
}

func (a *App) statusBar() string {
	var left string
	switch {
	case a.err != nil:
		left = renderStatus(a.err.Error(), StatusError)
	case a.loading:
		left = renderStatus(MsgLoading, StatusInfo)
	case a.status != "":
		left = renderStatus(a.status, a.statusKind)
	}

	commands := strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")
	if left != "" {
		commands = left + "  " + renderMuted(commands)
	} else {
		commands = renderMuted(commands)
	}
	return StatusBarStyle.Width(a.width).Render(commands)
}

// Close cancels whatever is still running.
func (a *App) Close() {
	if a.task != nil {
		a.task.Cancel()
	}
	if a.fixCancel != nil {
		a.fixCancel()
	}
}
