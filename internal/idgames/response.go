package idgames

import (
	"encoding/json"
	"fmt"
)

// Error types set on responses built by the client rather than the API.
const (
	ErrorTypeException = "Exception"
	ErrorTypeParse     = "ParseError"
	ErrorTypeCancelled = "Cancelled"
)

const cancelledMessage = "request was cancelled"

// Response is the parsed result of one API call. Once handed to a caller it
// is treated as read-only.
type Response struct {
	Version        float64
	ErrorType      string
	ErrorMessage   string
	WarningType    string
	WarningMessage string
	Entries        []Entry
}

// NewErrorResponse builds a response that carries only an error.
func NewErrorResponse(errType, message string) *Response {
	return &Response{ErrorType: errType, ErrorMessage: message}
}

// NewCancelledResponse builds the response delivered for a cancelled request.
func NewCancelledResponse() *Response {
	return NewErrorResponse(ErrorTypeCancelled, cancelledMessage)
}

// HasError reports whether the response carries an error message.
func (r *Response) HasError() bool {
	return r.ErrorMessage != "" || r.ErrorType != ""
}

// Cancelled reports whether the response stands for a cancelled request.
func (r *Response) Cancelled() bool {
	return r.ErrorType == ErrorTypeCancelled
}

func (r *Response) addEntry(e Entry) {
	r.Entries = append(r.Entries, e)
}

// Files returns the file entries in order.
func (r *Response) Files() []*FileEntry {
	var out []*FileEntry
	for _, e := range r.Entries {
		if f, ok := e.(*FileEntry); ok {
			out = append(out, f)
		}
	}
	return out
}

// Votes returns the vote entries in order.
func (r *Response) Votes() []*VoteEntry {
	var out []*VoteEntry
	for _, e := range r.Entries {
		if v, ok := e.(*VoteEntry); ok {
			out = append(out, v)
		}
	}
	return out
}

type responseJSON struct {
	Version        float64           `json:"version"`
	ErrorType      string            `json:"errorType,omitempty"`
	ErrorMessage   string            `json:"errorMessage,omitempty"`
	WarningType    string            `json:"warningType,omitempty"`
	WarningMessage string            `json:"warningMessage,omitempty"`
	Entries        []json.RawMessage `json:"entries"`
}

type fileJSON struct {
	Type EntryType `json:"type"`
	*FileEntry
}

type directoryJSON struct {
	Type EntryType `json:"type"`
	*DirectoryEntry
}

type voteJSON struct {
	Type EntryType `json:"type"`
	*VoteEntry
}

// MarshalJSON writes the cache file representation: each entry carries a
// numeric "type" next to its own fields.
func (r *Response) MarshalJSON() ([]byte, error) {
	out := responseJSON{
		Version:        r.Version,
		ErrorType:      r.ErrorType,
		ErrorMessage:   r.ErrorMessage,
		WarningType:    r.WarningType,
		WarningMessage: r.WarningMessage,
		Entries:        make([]json.RawMessage, 0, len(r.Entries)),
	}

	for i, e := range r.Entries {
		var v any
		switch e := e.(type) {
		case *FileEntry:
			v = fileJSON{Type: EntryTypeFile, FileEntry: e}
		case *DirectoryEntry:
			v = directoryJSON{Type: EntryTypeDirectory, DirectoryEntry: e}
		case *VoteEntry:
			v = voteJSON{Type: EntryTypeVote, VoteEntry: e}
		default:
			return nil, fmt.Errorf("entry %d: unsupported type %T", i, e)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding entry %d: %w", i, err)
		}
		out.Entries = append(out.Entries, data)
	}

	return json.Marshal(out)
}

// UnmarshalJSON restores a response written by MarshalJSON. Entries with an
// unknown type are skipped.
func (r *Response) UnmarshalJSON(data []byte) error {
	var in responseJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	r.Version = in.Version
	r.ErrorType = in.ErrorType
	r.ErrorMessage = in.ErrorMessage
	r.WarningType = in.WarningType
	r.WarningMessage = in.WarningMessage
	r.Entries = nil

	for i, raw := range in.Entries {
		var head struct {
			Type *EntryType `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("decoding entry %d: %w", i, err)
		}
		if head.Type == nil {
			return fmt.Errorf("decoding entry %d: missing type", i)
		}

		var e Entry
		switch *head.Type {
		case EntryTypeFile:
			f := &FileEntry{}
			if err := json.Unmarshal(raw, f); err != nil {
				return fmt.Errorf("decoding file entry %d: %w", i, err)
			}
			for j := range f.Reviews {
				if f.Reviews[j].Username == "" {
					f.Reviews[j].Username = anonymousUser
				}
			}
			e = f
		case EntryTypeDirectory:
			d := &DirectoryEntry{}
			if err := json.Unmarshal(raw, d); err != nil {
				return fmt.Errorf("decoding directory entry %d: %w", i, err)
			}
			e = d
		case EntryTypeVote:
			v := &VoteEntry{}
			if err := json.Unmarshal(raw, v); err != nil {
				return fmt.Errorf("decoding vote entry %d: %w", i, err)
			}
			e = v
		default:
			continue
		}
		r.Entries = append(r.Entries, e)
	}

	return nil
}
