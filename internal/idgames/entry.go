package idgames

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// EntryType identifies an Entry variant. The numeric values are part of the
// cache file format.
type EntryType int

const (
	EntryTypeFile      EntryType = 0
	EntryTypeDirectory EntryType = 1
	EntryTypeVote      EntryType = 2
)

func (t EntryType) String() string {
	switch t {
	case EntryTypeFile:
		return "file"
	case EntryTypeDirectory:
		return "directory"
	case EntryTypeVote:
		return "vote"
	default:
		return "unknown"
	}
}

// Entry is one item of an archive listing. The set of implementations is
// closed: *FileEntry, *DirectoryEntry and *VoteEntry.
type Entry interface {
	Type() EntryType
	EntryID() int
	entry()
}

// DirectoryEntry is a directory in the archive tree.
type DirectoryEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (d *DirectoryEntry) Type() EntryType { return EntryTypeDirectory }
func (d *DirectoryEntry) EntryID() int    { return d.ID }
func (d *DirectoryEntry) entry()          {}

// DisplayName returns the last path segment of the directory name.
func (d *DirectoryEntry) DisplayName() string {
	name := strings.TrimRight(d.Name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Review is a single user review attached to a file.
type Review struct {
	Text     string  `json:"text"`
	Rating   float64 `json:"rating"`
	Username string  `json:"username"`
}

const anonymousUser = "Anonymous"

// NewReview returns a review with the default username.
func NewReview() Review {
	return Review{Username: anonymousUser}
}

// FileEntry is a file in the archive, either a listing summary or the full
// detail returned by a get request.
type FileEntry struct {
	ID               int      `json:"id"`
	Title            string   `json:"title"`
	Author           string   `json:"author"`
	Description      string   `json:"description"`
	Email            string   `json:"email"`
	FileName         string   `json:"fileName"`
	FilePath         string   `json:"filePath"`
	FileSize         int      `json:"fileSize"`
	Timestamp        int64    `json:"timestamp"`
	Date             string   `json:"date"`
	Rating           float64  `json:"rating"`
	VoteCount        int      `json:"voteCount"`
	URL              string   `json:"url"`
	IdgamesURL       string   `json:"idgamesUrl"`
	Credits          string   `json:"credits"`
	Base             string   `json:"base"`
	BuildTime        string   `json:"buildTime"`
	EditorsUsed      string   `json:"editorsUsed"`
	Bugs             string   `json:"bugs"`
	TextFileContents string   `json:"textFileContents"`
	Reviews          []Review `json:"reviews"`

	localeDate memo[string]
}

func (f *FileEntry) Type() EntryType { return EntryTypeFile }
func (f *FileEntry) EntryID() int    { return f.ID }
func (f *FileEntry) entry()          {}

// DisplayTitle returns the title, falling back to the file name.
func (f *FileEntry) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	if f.FileName != "" {
		return f.FileName
	}
	return "Unknown"
}

// DisplayAuthor returns the author or "Unknown" when there is none.
func (f *FileEntry) DisplayAuthor() string {
	if f.Author == "" {
		return "Unknown"
	}
	return f.Author
}

// FileSizeString formats the file size with a binary unit prefix.
func (f *FileEntry) FileSizeString() string {
	if f.FileSize < 1024 {
		return fmt.Sprintf("%d B", f.FileSize)
	}
	exp := int(math.Log(float64(f.FileSize)) / math.Log(1024))
	if exp > 6 {
		exp = 6
	}
	pre := "kMGTPE"[exp-1]
	return fmt.Sprintf("%.1f %cB", float64(f.FileSize)/math.Pow(1024, float64(exp)), pre)
}

// LocaleDate returns Date formatted for display. The result is computed once;
// Date is not expected to change after the entry is built.
func (f *FileEntry) LocaleDate() string {
	return f.localeDate.get(func() string {
		if f.Date == "" {
			return ""
		}
		t, err := time.Parse("2006-01-02", f.Date)
		if err != nil {
			return "Unknown"
		}
		return t.Format("Jan 2, 2006")
	})
}

// DownloadURL joins a mirror base URL with the file's path and name.
func (f *FileEntry) DownloadURL(mirror string) string {
	if f.FileName == "" {
		return ""
	}
	return strings.TrimRight(mirror, "/") + "/" + strings.Trim(f.FilePath, "/") + "/" + f.FileName
}

// VoteEntry is a single vote on a file. Title may be empty; see
// client.FixVoteTitles.
type VoteEntry struct {
	ID          int     `json:"id"`
	FileID      int     `json:"fileId"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description"`
	ReviewText  string  `json:"reviewText"`
	Rating      float64 `json:"rating"`
}

func (v *VoteEntry) Type() EntryType { return EntryTypeVote }
func (v *VoteEntry) EntryID() int    { return v.ID }
func (v *VoteEntry) entry()          {}

// DisplayTitle returns the title, or a placeholder naming the file id.
func (v *VoteEntry) DisplayTitle() string {
	if v.Title != "" {
		return v.Title
	}
	return fmt.Sprintf("File #%d", v.FileID)
}

// memo holds a value computed on first use.
type memo[T any] struct {
	once sync.Once
	val  T
}

func (m *memo[T]) get(compute func() T) T {
	m.once.Do(func() { m.val = compute() })
	return m.val
}
