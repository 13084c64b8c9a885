package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/idgames/internal/config"
	"github.com/pders01/idgames/internal/idgames"
	"github.com/pders01/idgames/internal/search"
)

type KeyHandler struct {
	app  *App
	keys keyMap
}

type keyMap struct {
	Quit     key.Binding
	Search   key.Binding
	Refresh  key.Binding
	Download key.Binding
	Back     key.Binding
	Help     key.Binding
	Browse   key.Binding
	Latest   key.Binding
	Votes    key.Binding
	Select   key.Binding
}

func newKeyMap(k config.KeyBindings) keyMap {
	bind := func(configured, fallback, desc string) key.Binding {
		if configured == "" {
			configured = fallback
		}
		return key.NewBinding(key.WithKeys(configured), key.WithHelp(configured, desc))
	}

	back := bind(k.Back, "esc", "back")
	back.SetKeys(back.Keys()[0], "backspace")

	return keyMap{
		Quit:     bind(k.Quit, "q", "quit"),
		Search:   bind(k.Search, "/", "search"),
		Refresh:  bind(k.Refresh, "r", "refresh"),
		Download: bind(k.Download, "o", "download"),
		Back:     back,
		Help:     bind(k.Help, "?", "help"),
		Browse:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "browse")),
		Latest:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "new files")),
		Votes:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "new votes")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	}
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{app: app, keys: newKeyMap(cfg.Keys)}
}

// ShortHelp implements help.KeyMap.
func (kh *KeyHandler) ShortHelp() []key.Binding {
	return []key.Binding{kh.keys.Select, kh.keys.Back, kh.keys.Search, kh.keys.Help, kh.keys.Quit}
}

// FullHelp implements help.KeyMap.
func (kh *KeyHandler) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{kh.keys.Select, kh.keys.Back, kh.keys.Refresh, kh.keys.Download},
		{kh.keys.Browse, kh.keys.Latest, kh.keys.Votes},
		{kh.keys.Search, kh.keys.Help, kh.keys.Quit},
	}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		kh.app.Close()
		return kh.app, tea.Quit
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	// Let the list's own filter input have the keys while it is open.
	if kh.app.view == ViewList && kh.app.entryList.FilterState() == list.Filtering {
		return kh.delegateToCharm(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg); handled {
		return model, cmd
	}
	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewSearch && kh.app.searchInput.Focused()
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	switch msg.String() {
	case "esc":
		return kh.leaveSearch()
	case "enter":
		query := sanitizeSearchInput(a.searchInput.Value())
		if len(query) < 2 {
			return a, nil
		}
		a.searchInput.Blur()
		req := a.client.SearchRequest(query, a.category)
		return a, a.navigate(page{title: "search: " + query + " (" + a.category.String() + ")", req: req}, true)
	case "tab":
		a.category = (a.category + 1) % (idgames.CategoryTextfile + 1)
		return a, nil
	case "down":
		if len(a.searchList.Items()) > 0 {
			a.searchInput.Blur()
			a.searchList.Select(0)
		}
		return a, nil
	}

	prev := a.searchInput.Value()
	newInput, cmd := a.searchInput.Update(msg)
	a.searchInput = newInput
	if value := a.searchInput.Value(); value != prev && len(sanitizeSearchInput(value)) > 1 {
		return a, tea.Batch(cmd, a.performSearch(sanitizeSearchInput(value)))
	}
	return a, cmd
}

func (kh *KeyHandler) handleCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	k := kh.keys

	switch {
	case key.Matches(msg, k.Quit):
		a.Close()
		return a, tea.Quit, true
	case key.Matches(msg, k.Help):
		a.showHelp = !a.showHelp
		a.help.ShowAll = a.showHelp
		return a, nil, true
	case key.Matches(msg, k.Back):
		if a.view == ViewSearch {
			m, cmd := kh.leaveSearch()
			return m, cmd, true
		}
		return a, a.back(), true
	}

	switch a.view {
	case ViewList:
		return kh.handleListKeys(msg)
	case ViewDetails:
		return kh.handleDetailsKeys(msg)
	case ViewSearch:
		return kh.handleSearchListKeys(msg)
	}
	return a, nil, false
}

func (kh *KeyHandler) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	k := kh.keys

	switch {
	case key.Matches(msg, k.Select):
		return a, kh.openSelected(), true
	case key.Matches(msg, k.Refresh):
		return a, a.reload(), true
	case key.Matches(msg, k.Search):
		return kh.enterSearchMode()
	case key.Matches(msg, k.Browse):
		return a, a.navigate(page{title: "/", req: a.client.ContentsRequest("")}, true), true
	case key.Matches(msg, k.Latest):
		return a, a.navigate(page{title: "new files", req: a.client.LatestFilesRequest()}, true), true
	case key.Matches(msg, k.Votes):
		return a, a.navigate(page{title: "new votes", req: a.client.LatestVotesRequest()}, true), true
	case key.Matches(msg, k.Download):
		if item, ok := a.entryList.SelectedItem().(entryItem); ok {
			if f, ok := item.entry.(*idgames.FileEntry); ok {
				return a, a.openFile(f), true
			}
		}
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleDetailsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	k := kh.keys

	switch {
	case key.Matches(msg, k.Download):
		if a.current.file != nil {
			return a, a.openFile(a.current.file), true
		}
		return a, nil, true
	case key.Matches(msg, k.Refresh):
		a.current.file = nil
		return a, a.reload(), true
	case key.Matches(msg, k.Search):
		return kh.enterSearchMode()
	}
	return a, nil, false
}

func (kh *KeyHandler) handleSearchListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app

	switch msg.String() {
	case "tab":
		a.searchInput.Focus()
		return a, textinput.Blink, true
	case "up":
		if a.searchList.Index() == 0 {
			a.searchInput.Focus()
			return a, nil, true
		}
	case "enter":
		if item, ok := a.searchList.SelectedItem().(searchResultItem); ok {
			id := item.result.File.ID
			return a, a.navigate(page{title: item.result.File.DisplayTitle(), req: a.client.FileRequest(id)}, true), true
		}
		return a, nil, true
	}
	return a, nil, false
}

// openSelected descends into the selected directory or opens the details
// of the selected file or voted file.
func (kh *KeyHandler) openSelected() tea.Cmd {
	a := kh.app
	item, ok := a.entryList.SelectedItem().(entryItem)
	if !ok {
		return nil
	}

	switch e := item.entry.(type) {
	case *idgames.DirectoryEntry:
		return a.navigate(page{title: e.Name, req: a.client.ContentsRequest(e.Name)}, true)
	case *idgames.FileEntry:
		return a.navigate(page{title: e.DisplayTitle(), req: a.client.FileRequest(e.ID)}, true)
	case *idgames.VoteEntry:
		return a.navigate(page{title: e.DisplayTitle(), req: a.client.FileRequest(e.FileID)}, true)
	}
	return nil
}

func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd, bool) {
	a := kh.app
	a.view = ViewSearch
	a.searchInput.SetValue("")
	a.searchList.SetItems(nil)
	a.searchInput.Focus()

	name, docs := "scan", -1
	if a.searcher == nil {
		name = "online only"
	} else if ds, ok := a.searcher.(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			name, docs = "bleve", n
		}
	}
	a.setStatus(MsgSearchEngine(name, docs), StatusInfo)
	return a, textinput.Blink, true
}

// leaveSearch returns from the search screen to the page that was showing.
func (kh *KeyHandler) leaveSearch() (tea.Model, tea.Cmd) {
	a := kh.app
	a.searchInput.Blur()
	if a.current.req != nil && a.current.req.Action == idgames.ActionGetFile {
		a.view = ViewDetails
	} else {
		a.view = ViewList
	}
	return a, nil
}

func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	var cmd tea.Cmd
	switch a.view {
	case ViewList:
		a.entryList, cmd = a.entryList.Update(msg)
	case ViewDetails:
		a.viewport, cmd = a.viewport.Update(msg)
	case ViewSearch:
		a.searchList, cmd = a.searchList.Update(msg)
	}
	return a, cmd
}

// GetHelpForCurrentView returns the custom commands shown in the status bar.
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	k := kh.keys
	h := func(b key.Binding) string { return b.Help().Key + ": " + b.Help().Desc }

	switch kh.app.view {
	case ViewList:
		return []string{h(k.Browse), h(k.Latest), h(k.Votes), h(k.Search), h(k.Refresh), h(k.Help)}
	case ViewDetails:
		return []string{h(k.Download), h(k.Refresh), h(k.Back)}
	case ViewSearch:
		return []string{"enter: search", "tab: " + kh.app.category.String(), h(k.Back)}
	default:
		return []string{}
	}
}

// sanitizeSearchInput trims the query and drops control characters.
func sanitizeSearchInput(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if r >= 32 && r != 127 {
			out = append(out, r)
		}
	}
	return strings.TrimSpace(string(out))
}
