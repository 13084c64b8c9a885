package search

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/idgames/internal/debuglog"
	"github.com/pders01/idgames/internal/idgames"
	"github.com/pders01/idgames/internal/storage"
)

// BleveEngine keeps a full-text index of file records on disk.
type BleveEngine struct {
	src FileSource
	idx bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes
// every record src currently holds.
func NewBleveEngine(src FileSource, indexPath string) (*BleveEngine, error) {
	if mkErr := os.MkdirAll(filepath.Dir(indexPath), 0o755); mkErr != nil {
		// Open/New below report the real error.
		_ = mkErr
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, err
		}
	}

	be := &BleveEngine{src: src, idx: idx}
	if err := be.reindexAll(); err != nil {
		idx.Close()
		return nil, err
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	fileName := bleve.NewTextFieldMapping()
	fileName.Analyzer = standard.Name
	fileName.Store = true

	author := bleve.NewTextFieldMapping()
	author.Analyzer = standard.Name
	author.Store = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = false

	filePath := bleve.NewKeywordFieldMapping()
	filePath.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("fileName", fileName)
	dm.AddFieldMappingsAt("author", author)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("filePath", filePath)

	im.DefaultMapping = dm
	return im
}

func docForFile(f *storage.FileRecord) map[string]any {
	return map[string]any{
		"title":       f.Title,
		"fileName":    f.FileName,
		"author":      f.Author,
		"description": f.Description,
		"filePath":    f.FilePath,
	}
}

func docIDForFile(id int) string { return "file:" + strconv.Itoa(id) }

func (b *BleveEngine) reindexAll() error {
	files, err := b.src.AllFiles()
	if err != nil {
		return err
	}

	batch := b.idx.NewBatch()
	for _, f := range files {
		_ = batch.Index(docIDForFile(f.ID), docForFile(f))
	}
	return b.idx.Batch(batch)
}

// Search matches each query term against title^4, fileName^3, author^2
// and description^1, both as a full term and as a prefix.
func (b *BleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	fields := []struct {
		name  string
		boost float64
	}{
		{"title", weightTitle},
		{"fileName", weightFileName},
		{"author", weightAuthor},
		{"description", weightDescription},
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		for _, f := range fields {
			mq := bleve.NewMatchQuery(tok)
			mq.SetField(f.name)
			mq.SetBoost(f.boost)
			qs = append(qs, mq)

			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f.name)
			pq.SetBoost(f.boost * 0.8)
			qs = append(qs, pq)
		}
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	srch := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	srch.Fields = []string{"title", "fileName", "author", "filePath"}
	res, err := b.idx.Search(srch)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, convErr := strconv.Atoi(strings.TrimPrefix(h.ID, "file:"))
		if convErr != nil {
			continue
		}

		rec, getErr := b.src.GetFile(id)
		if getErr != nil {
			rec = &storage.FileRecord{ID: id}
			if t, ok := h.Fields["title"].(string); ok {
				rec.Title = t
			}
			if n, ok := h.Fields["fileName"].(string); ok {
				rec.FileName = n
			}
			if a, ok := h.Fields["author"].(string); ok {
				rec.Author = a
			}
			if p, ok := h.Fields["filePath"].(string); ok {
				rec.FilePath = p
			}
		}
		out = append(out, &Result{File: rec, Score: h.Score})
	}
	return out, nil
}

// OnResponse indexes the files of a fetched response. Records are read
// back from the source when present so merged fields are indexed too.
func (b *BleveEngine) OnResponse(_ *idgames.Request, resp *idgames.Response) {
	files := resp.Files()
	if len(files) == 0 {
		return
	}

	batch := b.idx.NewBatch()
	for _, f := range files {
		if f.ID < 0 {
			continue
		}
		rec, err := b.src.GetFile(f.ID)
		if err != nil {
			rec = storage.NewFileRecord(f)
		}
		_ = batch.Index(docIDForFile(rec.ID), docForFile(rec))
	}
	if err := b.idx.Batch(batch); err != nil {
		debuglog.Warnf("search: indexing %d files: %v", len(files), err)
	}
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *BleveEngine) Close() error {
	return b.idx.Close()
}

// Open returns the bleve engine for indexPath, or the scan engine when the
// index cannot be opened. The returned close function is never nil.
func Open(src FileSource, indexPath string) (Searcher, func() error) {
	if indexPath != "" {
		be, err := NewBleveEngine(src, indexPath)
		if err == nil {
			return be, be.Close
		}
		debuglog.Warnf("search: bleve index unavailable at %s, using scan engine: %v", indexPath, err)
	}
	return NewEngine(src), func() error { return nil }
}
