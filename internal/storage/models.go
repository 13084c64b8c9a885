package storage

import (
	"time"

	"github.com/pders01/idgames/internal/idgames"
)

// FileRecord is the indexed summary of an archive file.
type FileRecord struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	FileName    string    `json:"fileName"`
	FilePath    string    `json:"filePath"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Rating      float64   `json:"rating"`
	VoteCount   int       `json:"voteCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewFileRecord summarizes f.
func NewFileRecord(f *idgames.FileEntry) *FileRecord {
	return &FileRecord{
		ID:          f.ID,
		Title:       f.Title,
		FileName:    f.FileName,
		FilePath:    f.FilePath,
		Author:      f.Author,
		Description: f.Description,
		Date:        f.Date,
		Rating:      f.Rating,
		VoteCount:   f.VoteCount,
	}
}

// DisplayTitle returns the title, falling back to the file name.
func (r *FileRecord) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.FileName
}

// merge copies the non-empty fields of src over r. Listings carry fewer
// fields than single-file responses, so a later partial record must not
// blank out what an earlier full one stored.
func (r *FileRecord) merge(src *FileRecord) {
	if src.Title != "" {
		r.Title = src.Title
	}
	if src.FileName != "" {
		r.FileName = src.FileName
	}
	if src.FilePath != "" {
		r.FilePath = src.FilePath
	}
	if src.Author != "" {
		r.Author = src.Author
	}
	if src.Description != "" {
		r.Description = src.Description
	}
	if src.Date != "" {
		r.Date = src.Date
	}
	if src.Rating != 0 {
		r.Rating = src.Rating
	}
	if src.VoteCount != 0 {
		r.VoteCount = src.VoteCount
	}
}
