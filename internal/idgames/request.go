package idgames

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pders01/idgames/internal/debuglog"
)

// DefaultBaseURL is the public idgames API endpoint.
const DefaultBaseURL = "https://www.doomworld.com/idgames/api/api.php"

const (
	DefaultLimit  = 30
	DefaultMaxAge = 12 * time.Hour
)

// Action is the API call a Request performs.
type Action int

const (
	ActionGetContents Action = iota
	ActionGetLatestFiles
	ActionGetLatestVotes
	ActionGetFile
	ActionSearch
)

func (a Action) String() string {
	switch a {
	case ActionGetContents:
		return "getcontents"
	case ActionGetLatestFiles:
		return "latestfiles"
	case ActionGetLatestVotes:
		return "latestvotes"
	case ActionGetFile:
		return "get"
	case ActionSearch:
		return "search"
	default:
		return ""
	}
}

// Category selects the field a search matches against.
type Category int

const (
	CategoryFilename Category = iota
	CategoryTitle
	CategoryAuthor
	CategoryEmail
	CategoryDescription
	CategoryCredits
	CategoryEditors
	CategoryTextfile
)

var categoryNames = [...]string{
	CategoryFilename:    "filename",
	CategoryTitle:       "title",
	CategoryAuthor:      "author",
	CategoryEmail:       "email",
	CategoryDescription: "description",
	CategoryCredits:     "credits",
	CategoryEditors:     "editors",
	CategoryTextfile:    "textfile",
}

// String returns the API name of the category, or "" if c is out of range.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return ""
	}
	return categoryNames[c]
}

// ParseCategory maps an API category name back to its Category.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown search category %q", s)
}

// Request describes one API call. A Request must not be modified while a
// task is executing it.
type Request struct {
	Action        Action
	DirectoryName string
	FileID        int
	Query         string
	Category      Category
	Limit         int
	MaxAge        time.Duration

	// BaseURL overrides DefaultBaseURL when set.
	BaseURL string
}

func newRequest(action Action) *Request {
	return &Request{
		Action: action,
		FileID: -1,
		Limit:  DefaultLimit,
		MaxAge: DefaultMaxAge,
	}
}

// NewContentsRequest lists a directory. An empty name lists the root.
func NewContentsRequest(dir string) *Request {
	r := newRequest(ActionGetContents)
	r.DirectoryName = dir
	return r
}

func NewLatestFilesRequest(limit int) *Request {
	r := newRequest(ActionGetLatestFiles)
	r.Limit = limit
	return r
}

func NewLatestVotesRequest(limit int) *Request {
	r := newRequest(ActionGetLatestVotes)
	r.Limit = limit
	return r
}

func NewFileRequest(id int) *Request {
	r := newRequest(ActionGetFile)
	r.FileID = id
	return r
}

func NewSearchRequest(query string, category Category) *Request {
	r := newRequest(ActionSearch)
	r.Query = query
	r.Category = category
	return r
}

// SingleFile reports whether the response document describes exactly one
// file rather than a list.
func (r *Request) SingleFile() bool {
	return r.Action == ActionGetFile
}

// URL builds the request URL. Parameters are always emitted in the same
// order, so equal requests produce byte-identical URLs.
func (r *Request) URL() string {
	base := r.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	var params [][2]string
	switch r.Action {
	case ActionGetContents:
		if r.DirectoryName == "" {
			params = append(params, [2]string{"action", "getcontents"}, [2]string{"id", "0"})
		} else {
			params = append(params, [2]string{"action", "getcontents"}, [2]string{"name", r.DirectoryName})
		}
	case ActionGetLatestFiles, ActionGetLatestVotes:
		params = append(params, [2]string{"action", r.Action.String()}, [2]string{"limit", strconv.Itoa(r.Limit)})
	case ActionGetFile:
		params = append(params, [2]string{"action", "get"}, [2]string{"id", strconv.Itoa(r.FileID)})
	case ActionSearch:
		params = append(params,
			[2]string{"action", "search"},
			[2]string{"query", r.Query},
			[2]string{"type", r.Category.String()},
		)
	default:
		debuglog.Warnf("request: unhandled action %d", r.Action)
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	if strings.Contains(base, "?") {
		if !strings.HasSuffix(base, "?") && !strings.HasSuffix(base, "&") {
			b.WriteByte('&')
		}
	} else {
		b.WriteByte('?')
	}
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

// Hash returns the cache key for the request. It depends only on URL().
func (r *Request) Hash() string {
	return fmt.Sprintf("request_%x", sha256.Sum256([]byte(r.URL())))
}
