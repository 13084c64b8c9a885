package idgames

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_URL(t *testing.T) {
	const base = "https://api.test/api.php"

	tests := []struct {
		name string
		req  *Request
		want string
	}{
		{
			name: "root contents",
			req:  NewContentsRequest(""),
			want: base + "?action=getcontents&id=0",
		},
		{
			name: "named directory",
			req:  NewContentsRequest("levels/doom2/"),
			want: base + "?action=getcontents&name=levels%2Fdoom2%2F",
		},
		{
			name: "latest files",
			req:  NewLatestFilesRequest(15),
			want: base + "?action=latestfiles&limit=15",
		},
		{
			name: "latest votes",
			req:  NewLatestVotesRequest(30),
			want: base + "?action=latestvotes&limit=30",
		},
		{
			name: "single file",
			req:  NewFileRequest(42),
			want: base + "?action=get&id=42",
		},
		{
			name: "search escapes query",
			req:  NewSearchRequest("doom & hell", CategoryTitle),
			want: base + "?action=search&query=doom+%26+hell&type=title",
		},
		{
			name: "search with unknown category",
			req:  NewSearchRequest("x", Category(99)),
			want: base + "?action=search&query=x&type=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.BaseURL = base
			assert.Equal(t, tt.want, tt.req.URL())
		})
	}
}

func TestRequest_URLDefaultsAndUnknownAction(t *testing.T) {
	req := NewFileRequest(1)
	assert.True(t, strings.HasPrefix(req.URL(), DefaultBaseURL+"?"))

	req = &Request{Action: Action(77), BaseURL: "https://api.test/"}
	assert.Equal(t, "https://api.test/", req.URL())
}

func TestRequest_URLBaseWithQuery(t *testing.T) {
	req := NewFileRequest(3)
	req.BaseURL = "https://api.test/api.php?out=xml"
	assert.Equal(t, "https://api.test/api.php?out=xml&action=get&id=3", req.URL())
}

func TestRequest_Hash(t *testing.T) {
	a := NewFileRequest(10)
	b := NewFileRequest(10)
	c := NewFileRequest(11)

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.True(t, strings.HasPrefix(a.Hash(), "request_"))
	assert.Len(t, a.Hash(), len("request_")+64)

	// MaxAge does not take part in the URL.
	b.MaxAge = 0
	assert.Equal(t, a.Hash(), b.Hash())

	d := NewSearchRequest("scythe", CategoryTitle)
	e := NewSearchRequest("scythe", CategoryAuthor)
	assert.NotEqual(t, d.Hash(), e.Hash())
}

func TestRequest_Defaults(t *testing.T) {
	req := NewContentsRequest("")
	assert.Equal(t, ActionGetContents, req.Action)
	assert.Equal(t, -1, req.FileID)
	assert.Equal(t, DefaultLimit, req.Limit)
	assert.Equal(t, DefaultMaxAge, req.MaxAge)
	assert.False(t, req.SingleFile())
	assert.True(t, NewFileRequest(5).SingleFile())
}

func TestCategory(t *testing.T) {
	for c := CategoryFilename; c <= CategoryTextfile; c++ {
		parsed, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	parsed, err := ParseCategory(" Author ")
	require.NoError(t, err)
	assert.Equal(t, CategoryAuthor, parsed)

	_, err = ParseCategory("nope")
	assert.Error(t, err)

	assert.Equal(t, "", Category(-1).String())
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "getcontents", ActionGetContents.String())
	assert.Equal(t, "latestfiles", ActionGetLatestFiles.String())
	assert.Equal(t, "latestvotes", ActionGetLatestVotes.String())
	assert.Equal(t, "get", ActionGetFile.String())
	assert.Equal(t, "search", ActionSearch.String())
	assert.Equal(t, "", Action(9).String())
}
