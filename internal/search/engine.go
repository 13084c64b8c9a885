package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pders01/idgames/internal/storage"
)

// Field weights, shared with the bleve engine's boosts.
const (
	weightTitle       = 4.0
	weightFileName    = 3.0
	weightAuthor      = 2.0
	weightDescription = 1.0
)

// Engine scans every stored record. It needs no index and serves as the
// fallback when the bleve index cannot be opened.
type Engine struct {
	src FileSource
}

// NewEngine creates a new search engine
func NewEngine(src FileSource) *Engine {
	return &Engine{src: src}
}

func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	files, err := e.src.AllFiles()
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, f := range files {
		if r := e.searchFile(f, terms); r != nil {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []*Result{}
	}
	return results, nil
}

func (e *Engine) searchFile(f *storage.FileRecord, terms []string) *Result {
	fields := []struct {
		name   string
		text   string
		weight float64
	}{
		{"title", f.Title, weightTitle},
		{"fileName", f.FileName, weightFileName},
		{"author", f.Author, weightAuthor},
		{"description", f.Description, weightDescription},
	}

	var matches []Match
	var total float64
	for _, fld := range fields {
		if s := scoreField(fld.text, terms, fld.weight); s > 0 {
			matches = append(matches, Match{Field: fld.name, Text: truncate(fld.text, 150), Weight: s})
			total += s
		}
	}

	if total == 0 {
		return nil
	}
	return &Result{File: f, Score: total, Matches: matches}
}

// scoreField calculates relevance score for a field
func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matchedTerms := 0

	for _, term := range terms {
		if strings.Contains(lower, term) {
			score += 2.0
			matchedTerms++
		}

		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matchedTerms++
			case strings.Contains(word, term):
				score += 0.5
				matchedTerms++
			}
		}
	}

	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	tf := float64(matchedTerms) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// tokenize breaks text into lower-case terms of two or more characters.
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			if term := current.String(); len(term) > 1 {
				terms = append(terms, term)
			}
			current.Reset()
		}
	}

	if current.Len() > 1 {
		terms = append(terms, current.String())
	}

	return terms
}

// truncate limits text length with ellipsis
func truncate(text string, maxLen int) string {
	r := []rune(text)
	if len(r) <= maxLen {
		return text
	}
	return string(r[:maxLen-1]) + "…"
}
