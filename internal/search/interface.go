package search

import (
	"github.com/pders01/idgames/internal/idgames"
	"github.com/pders01/idgames/internal/storage"
)

// Searcher defines the offline search API used by the CLI and TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// FileSource supplies the records a search runs over. *storage.Store
// implements it.
type FileSource interface {
	AllFiles() ([]*storage.FileRecord, error)
	GetFile(id int) (*storage.FileRecord, error)
}

// UpdateListener is implemented by engines that keep their own index and
// must see every freshly fetched response.
type UpdateListener interface {
	OnResponse(req *idgames.Request, resp *idgames.Response)
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}

// Result is one matching file.
type Result struct {
	File    *storage.FileRecord
	Score   float64
	Matches []Match
}

// Match records which field of a file matched.
type Match struct {
	Field  string
	Text   string
	Weight float64
}
