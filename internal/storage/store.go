package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/idgames/internal/debuglog"
	"github.com/pders01/idgames/internal/idgames"
)

var filesBucket = []byte("files")

// ErrNotFound is returned when a file id is not in the index.
var ErrNotFound = errors.New("file not found")

// Store is the local index of every file seen in an API response.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(filesBucket)
		return createErr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func fileKey(id int) []byte {
	return []byte(strconv.Itoa(id))
}

// SaveFiles inserts or updates records. Existing records keep fields the
// new record leaves empty.
func (s *Store) SaveFiles(records []*FileRecord) error {
	now := s.now()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(filesBucket)
		for _, rec := range records {
			if rec.ID < 0 {
				continue
			}
			key := fileKey(rec.ID)

			merged := *rec
			if data := b.Get(key); data != nil {
				var existing FileRecord
				if err := json.Unmarshal(data, &existing); err == nil {
					existing.merge(rec)
					merged = existing
				}
			}
			merged.UpdatedAt = now

			data, err := json.Marshal(&merged)
			if err != nil {
				return err
			}
			if err := b.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetFile(id int) (*FileRecord, error) {
	var rec FileRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(filesBucket).Get(fileKey(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// LookupTitle returns the display title of an indexed file.
func (s *Store) LookupTitle(id int) (string, bool) {
	rec, err := s.GetFile(id)
	if err != nil {
		return "", false
	}
	title := rec.DisplayTitle()
	return title, title != ""
}

// AllFiles returns every record sorted by title, case-insensitively.
func (s *Store) AllFiles() ([]*FileRecord, error) {
	var records []*FileRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(filesBucket).ForEach(func(_, v []byte) error {
			var rec FileRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			records = append(records, &rec)
			return nil
		})
	})
	sort.Slice(records, func(i, j int) bool {
		ti := strings.ToLower(records[i].DisplayTitle())
		tj := strings.ToLower(records[j].DisplayTitle())
		if ti != tj {
			return ti < tj
		}
		return records[i].ID < records[j].ID
	})
	return records, err
}

func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(filesBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// OnResponse indexes every file entry of a freshly fetched response.
func (s *Store) OnResponse(_ *idgames.Request, resp *idgames.Response) {
	files := resp.Files()
	if len(files) == 0 {
		return
	}
	records := make([]*FileRecord, 0, len(files))
	for _, f := range files {
		records = append(records, NewFileRecord(f))
	}
	if err := s.SaveFiles(records); err != nil {
		debuglog.Errorf("storage: indexing %d files: %v", len(records), err)
	}
}
