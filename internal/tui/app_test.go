package tui

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/idgames/internal/client"
	"github.com/pders01/idgames/internal/config"
	"github.com/pders01/idgames/internal/idgames"
	"github.com/pders01/idgames/internal/search"
	"github.com/pders01/idgames/internal/storage"
)

const header = `<?xml version="1.0" encoding="UTF-8"?><idgames-response version="3">`

// archiveAPI serves a tiny archive. Listing "slow/" blocks until the
// request is abandoned.
type archiveAPI struct {
	release chan struct{}
}

func (f *archiveAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/xml")

	switch q.Get("action") {
	case "getcontents":
		switch q.Get("name") {
		case "":
			fmt.Fprint(w, header+`<content>
<dir><id>1</id><name>levels/</name></dir>
<file><id>42</id><title>Scythe</title><author>Erik Alm</author><filename>scythe.zip</filename></file>
</content></idgames-response>`)
		case "levels/":
			fmt.Fprint(w, header+`<content><file><id>7</id><title>Level Seven</title></file></content></idgames-response>`)
		case "slow/":
			select {
			case <-r.Context().Done():
			case <-f.release:
			}
		default:
			fmt.Fprint(w, header+`<content></content></idgames-response>`)
		}
	case "get":
		id, _ := strconv.Atoi(q.Get("id"))
		fmt.Fprintf(w, header+`<content><id>%d</id><title>File %d</title><author>Someone</author>
<filename>f%d.zip</filename><dir>levels/doom2/</dir>
<reviews><review><text>Great</text><vote>5</vote><username>doomguy</username></review></reviews>
</content></idgames-response>`, id, id, id)
	case "latestfiles":
		fmt.Fprint(w, header+`<content><file><id>50</id><title>Fresh</title></file></content></idgames-response>`)
	case "latestvotes":
		fmt.Fprint(w, header+`<content><vote><id>1</id><file>10</file><rating>4</rating><reviewtext>nice</reviewtext></vote></content></idgames-response>`)
	case "search":
		fmt.Fprintf(w, header+`<content><file><id>99</id><title>Hit for %s</title></file></content></idgames-response>`, q.Get("query"))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestApp(t *testing.T, searcher search.Searcher) *App {
	t.Helper()
	api := &archiveAPI{release: make(chan struct{})}
	server := httptest.NewServer(api)
	t.Cleanup(func() {
		close(api.release)
		server.Close()
	})

	cfg := config.TestConfig()
	cfg.API.BaseURL = server.URL + "/api.php"
	cfg.API.MirrorURL = "https://mirror.test/idgames/"

	a := NewApp(client.New(cfg), searcher, nil)
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	// A blinking cursor would make every keystroke wait on its timer.
	a.searchInput.Cursor.SetMode(cursor.CursorStatic)
	t.Cleanup(a.Close)
	return a
}

// drain runs cmd and feeds the app's own messages back into Update until
// nothing is left. Framework messages such as cursor blinks are dropped.
func drain(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for n := 0; len(queue) > 0; n++ {
		require.Less(t, n, 100, "too many messages")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}

		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case responseMsg, fileRenderedMsg, votesFixedMsg, searchResultsMsg, openedMsg, errorMsg:
			_, next := a.Update(msg)
			queue = append(queue, next)
		}
	}
}

func press(t *testing.T, a *App, k tea.KeyMsg) {
	t.Helper()
	_, cmd := a.Update(k)
	drain(t, a, cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func openRoot(t *testing.T, a *App) {
	t.Helper()
	drain(t, a, a.navigate(page{title: "/", req: a.client.ContentsRequest("")}, false))
}

func TestApp_BrowseIntoDirectoryAndBack(t *testing.T) {
	a := newTestApp(t, nil)
	openRoot(t, a)

	require.Len(t, a.entryList.Items(), 2)
	assert.Equal(t, ViewList, a.view)
	assert.False(t, a.loading)
	assert.Nil(t, a.task)

	press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, a.history, 1)
	assert.Equal(t, "levels/", a.current.req.DirectoryName)
	require.Len(t, a.entryList.Items(), 1)
	assert.Equal(t, "Level Seven", a.entryList.Items()[0].(entryItem).entry.(*idgames.FileEntry).Title)

	press(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, a.history)
	assert.Equal(t, "/", a.current.title)
	assert.Len(t, a.entryList.Items(), 2, "previous page restored without refetching")
	assert.Nil(t, a.task)
}

func TestApp_OpenFileDetails(t *testing.T) {
	a := newTestApp(t, nil)
	openRoot(t, a)

	a.entryList.Select(1)
	press(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ViewDetails, a.view)
	require.NotNil(t, a.current.file)
	assert.Equal(t, 42, a.current.file.ID)
	assert.Equal(t, "File 42", a.current.file.Title)
	assert.Contains(t, a.viewport.View(), "File 42")

	press(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, a.view)
	assert.Equal(t, 1, a.entryList.Index(), "cursor restored")
}

func TestApp_NavigationCancelsInFlightTask(t *testing.T) {
	a := newTestApp(t, nil)
	openRoot(t, a)

	slowCmd := a.navigate(page{title: "slow/", req: a.client.ContentsRequest("slow/")}, true)
	slow := a.task
	require.NotNil(t, slow)
	assert.True(t, a.loading)

	_, latestCmd := a.Update(runes("2"))
	select {
	case <-slow.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("superseded task did not stop")
	}
	assert.Equal(t, client.StateCancelled, slow.State(), "superseded task is cancelled")
	assert.NotEqual(t, slow.ID(), a.task.ID())

	// The cancelled task's response arrives late and is dropped.
	drain(t, a, slowCmd)
	assert.NotNil(t, a.task, "stale response must not clear the current task")
	assert.Nil(t, a.err)

	drain(t, a, latestCmd)
	assert.Equal(t, "new files", a.current.title)
	require.Len(t, a.entryList.Items(), 1)
	assert.Len(t, a.history, 2)
}

func TestApp_StaleResponseIgnored(t *testing.T) {
	a := newTestApp(t, nil)
	openRoot(t, a)

	stale := responseMsg{
		taskID: "not-the-current-task",
		req:    idgames.NewContentsRequest("elsewhere/"),
		resp:   &idgames.Response{Entries: []idgames.Entry{&idgames.DirectoryEntry{ID: 3, Name: "elsewhere/x/"}}},
	}
	a.Update(stale)
	assert.Len(t, a.entryList.Items(), 2)
}

func TestApp_ErrorResponseShowsMessage(t *testing.T) {
	a := newTestApp(t, nil)
	cfg := *a.config
	cfg.API.BaseURL += "?action=nope"
	a.client = client.New(&cfg)

	openRoot(t, a)
	require.Error(t, a.err)
	assert.Contains(t, a.err.Error(), "400")
	assert.Empty(t, a.entryList.Items())
	assert.Contains(t, a.View(), "400")
}

type fixedTitles map[int]string

func (f fixedTitles) LookupTitle(id int) (string, bool) {
	title, ok := f[id]
	return title, ok
}

func TestApp_LatestVotesFixesTitles(t *testing.T) {
	a := newTestApp(t, nil)
	openRoot(t, a)

	press(t, a, runes("3"))

	require.Len(t, a.entryList.Items(), 1)
	vote := a.entryList.Items()[0].(entryItem).entry.(*idgames.VoteEntry)
	assert.Equal(t, "File 10", vote.Title)
	assert.Equal(t, MsgTitlesFixed(1), a.status)
}

func TestApp_LatestVotesUsesLookup(t *testing.T) {
	a := newTestApp(t, nil)
	a.titles = fixedTitles{10: "Known Title"}
	openRoot(t, a)

	press(t, a, runes("3"))

	vote := a.entryList.Items()[0].(entryItem).entry.(*idgames.VoteEntry)
	assert.Equal(t, "Known Title", vote.Title)
}

func TestApp_VoteTitlesForOldPageDropped(t *testing.T) {
	a := newTestApp(t, nil)
	openRoot(t, a)

	a.Update(votesFixedMsg{
		reqHash: idgames.NewLatestVotesRequest(5).Hash(),
		votes:   []*idgames.VoteEntry{{ID: 1, FileID: 10, Title: "x"}},
		fixed:   1,
	})
	assert.Len(t, a.entryList.Items(), 2)
	assert.NotEqual(t, MsgTitlesFixed(1), a.status)
}

type fakeSearcher struct {
	queries []string
}

func (s *fakeSearcher) Search(query string, limit int) ([]*search.Result, error) {
	s.queries = append(s.queries, query)
	return []*search.Result{{File: &storage.FileRecord{ID: 42, Title: "Scythe", FilePath: "levels/doom2/", FileName: "scythe.zip"}}}, nil
}

func TestApp_SearchOfflineThenDetails(t *testing.T) {
	s := &fakeSearcher{}
	a := newTestApp(t, s)
	openRoot(t, a)

	press(t, a, runes("/"))
	require.Equal(t, ViewSearch, a.view)
	assert.True(t, a.searchInput.Focused())

	press(t, a, runes("s"))
	assert.Empty(t, s.queries, "single characters are not searched")
	press(t, a, runes("c"))
	assert.Equal(t, []string{"sc"}, s.queries)
	require.Len(t, a.searchList.Items(), 1)

	press(t, a, tea.KeyMsg{Type: tea.KeyDown})
	assert.False(t, a.searchInput.Focused())

	press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewDetails, a.view)
	require.NotNil(t, a.current.file)
	assert.Equal(t, 42, a.current.file.ID)
}

func TestApp_SearchOnline(t *testing.T) {
	a := newTestApp(t, nil)
	openRoot(t, a)

	press(t, a, runes("/"))
	press(t, a, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, idgames.CategoryAuthor, a.category)

	press(t, a, runes("doom"))
	press(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ViewList, a.view)
	assert.Equal(t, idgames.ActionSearch, a.current.req.Action)
	assert.Equal(t, idgames.CategoryAuthor, a.current.req.Category)
	require.Len(t, a.entryList.Items(), 1)
	assert.Equal(t, "Hit for doom", a.entryList.Items()[0].(entryItem).entry.(*idgames.FileEntry).Title)
}

func TestApp_LeaveSearch(t *testing.T) {
	a := newTestApp(t, nil)
	openRoot(t, a)

	press(t, a, runes("/"))
	press(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, a.view)
	assert.Len(t, a.entryList.Items(), 2)
}

func TestApp_RefreshBypassesCache(t *testing.T) {
	a := newTestApp(t, nil)
	openRoot(t, a)

	_, cmd := a.Update(runes("r"))
	require.NotNil(t, a.task)
	assert.Equal(t, int64(0), int64(a.task.Request().MaxAge))
	drain(t, a, cmd)
	assert.Len(t, a.entryList.Items(), 2)
}

func TestApp_ViewRendersStatusBar(t *testing.T) {
	a := newTestApp(t, nil)
	openRoot(t, a)

	out := a.View()
	assert.Contains(t, out, "1: browse")
	assert.Contains(t, out, "Scythe")
	assert.True(t, strings.Contains(out, MsgLoaded(2, false)))
}
