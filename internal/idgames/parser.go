package idgames

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

// ErrParse is wrapped by every error returned from Parser.Parse.
var ErrParse = errors.New("parsing idgames response")

type parseState int

const (
	stateUnknown parseState = iota
	stateContent
	stateError
	stateWarning
	stateFile
	stateDirectory
	stateVote
	stateReview
)

// Parser decodes an idgames XML document into a Response in a single
// forward pass.
type Parser struct {
	// SingleFile is set when the document's <content> element holds the
	// fields of one file instead of a list of entries.
	SingleFile bool
}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the whole document from r. Malformed XML or a malformed
// numeric field fails the entire document.
func (p *Parser) Parse(r io.Reader) (*Response, error) {
	h := &responseHandler{
		singleFile: p.SingleFile,
		resp:       &Response{},
	}

	pp := xpp.NewXMLPullParser(r, true, charset.NewReaderLabel)
	for {
		event, err := pp.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}

		switch event {
		case xpp.StartTag:
			if err := h.startElement(pp.Name, pp.Attribute); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
		case xpp.EndTag:
			if err := h.endElement(pp.Name); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
		case xpp.Text:
			h.text.WriteString(pp.Text)
		case xpp.EndDocument:
			if !h.sawRoot {
				return nil, fmt.Errorf("%w: missing idgames-response element", ErrParse)
			}
			if h.depth != 0 {
				return nil, fmt.Errorf("%w: unexpected end of document", ErrParse)
			}
			return h.resp, nil
		}
	}
}

type responseHandler struct {
	singleFile bool
	sawRoot    bool
	depth      int
	state      parseState
	resp       *Response

	// text collects character data of the innermost open element.
	text     strings.Builder
	textFile strings.Builder

	file   *FileEntry
	dir    *DirectoryEntry
	vote   *VoteEntry
	review *Review
}

func (h *responseHandler) startElement(name string, attr func(string) string) error {
	h.text.Reset()
	h.depth++

	switch {
	case name == "idgames-response":
		h.sawRoot = true
		if v := strings.TrimSpace(attr("version")); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("version attribute %q: %w", v, err)
			}
			h.resp.Version = f
		}

	case name == "error":
		h.state = stateError

	case name == "warning":
		// Inside <error>, <warning> carries the error text.
		if h.state != stateError {
			h.state = stateWarning
		}

	case name == "content":
		if h.singleFile {
			h.openFile()
		} else {
			h.state = stateContent
		}

	case h.state == stateContent:
		switch name {
		case "file":
			h.openFile()
		case "vote":
			h.state = stateVote
			h.vote = &VoteEntry{}
		case "dir":
			h.state = stateDirectory
			h.dir = &DirectoryEntry{}
		}

	case h.state == stateFile && name == "review":
		h.state = stateReview
		r := NewReview()
		h.review = &r
	}

	return nil
}

func (h *responseHandler) openFile() {
	h.state = stateFile
	h.file = &FileEntry{ID: -1}
	h.textFile.Reset()
}

func (h *responseHandler) closeFile() {
	h.file.TextFileContents += h.textFile.String()
	h.resp.addEntry(h.file)
	h.file = nil
	h.textFile.Reset()
}

func (h *responseHandler) endElement(name string) error {
	defer h.text.Reset()
	h.depth--

	switch {
	case h.state == stateError && name == "error":
		h.state = stateUnknown
	case h.state == stateWarning && name == "warning":
		h.state = stateUnknown
	case h.state == stateContent && name == "content":
		h.state = stateUnknown
	case h.singleFile && h.state == stateFile && name == "content":
		h.state = stateUnknown
		h.closeFile()
	case !h.singleFile && h.state == stateFile && name == "file":
		h.state = stateContent
		h.closeFile()
	case h.state == stateVote && name == "vote":
		h.state = stateContent
		h.resp.addEntry(h.vote)
		h.vote = nil
	case h.state == stateDirectory && name == "dir":
		h.state = stateContent
		h.resp.addEntry(h.dir)
		h.dir = nil
	case h.state == stateReview && name == "review":
		h.state = stateFile
		h.file.Reviews = append(h.file.Reviews, *h.review)
		h.review = nil
	default:
		return h.field(name, h.text.String())
	}
	return nil
}

// field stores the text of a closed leaf element. The target depends on
// both the element name and the enclosing entry.
func (h *responseHandler) field(name, text string) error {
	switch h.state {
	case stateFile:
		return h.fileField(name, text)

	case stateReview:
		switch name {
		case "text":
			h.review.Text += text
		case "vote", "rating":
			return parseFloatInto(name, text, &h.review.Rating)
		case "username":
			if text != "" {
				h.review.Username = text
			}
		}

	case stateVote:
		switch name {
		case "id":
			return parseIntInto(name, text, &h.vote.ID)
		case "file":
			return parseIntInto(name, text, &h.vote.FileID)
		case "reviewtext":
			h.vote.ReviewText += text
		case "title":
			h.vote.Title += text
		case "rating":
			return parseFloatInto(name, text, &h.vote.Rating)
		case "author":
			h.vote.Author = text
		case "description":
			h.vote.Description += text
		}

	case stateDirectory:
		switch name {
		case "id":
			return parseIntInto(name, text, &h.dir.ID)
		case "name":
			h.dir.Name += text
		}

	case stateError:
		switch name {
		case "type":
			h.resp.ErrorType += text
		case "message", "warning":
			h.resp.ErrorMessage += text
		}

	case stateWarning:
		switch name {
		case "type":
			h.resp.WarningType += text
		case "message":
			h.resp.WarningMessage += text
		}
	}
	return nil
}

func (h *responseHandler) fileField(name, text string) error {
	f := h.file
	switch name {
	case "id":
		return parseIntInto(name, text, &f.ID)
	case "title":
		f.Title += text
	case "dir":
		f.FilePath += text
	case "filename":
		f.FileName += text
	case "size":
		return parseIntInto(name, text, &f.FileSize)
	case "age":
		return parseInt64Into(name, text, &f.Timestamp)
	case "date":
		f.Date += text
	case "author":
		f.Author += text
	case "email":
		f.Email += text
	case "description":
		f.Description += text
	case "rating":
		return parseFloatInto(name, text, &f.Rating)
	case "votes":
		return parseIntInto(name, text, &f.VoteCount)
	case "url":
		f.URL += text
	case "idgamesurl":
		f.IdgamesURL += text
	case "credits":
		f.Credits += text
	case "base":
		f.Base += text
	case "buildtime":
		f.BuildTime += text
	case "editors":
		f.EditorsUsed += text
	case "bugs":
		f.Bugs += text
	case "textfile":
		h.textFile.WriteString(text)
	}
	return nil
}

func parseIntInto(name, text string, dst *int) error {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("<%s> value %q: %w", name, s, err)
	}
	*dst = n
	return nil
}

func parseInt64Into(name, text string, dst *int64) error {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("<%s> value %q: %w", name, s, err)
	}
	*dst = n
	return nil
}

func parseFloatInto(name, text string, dst *float64) error {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("<%s> value %q: %w", name, s, err)
	}
	*dst = f
	return nil
}
