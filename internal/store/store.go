package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/Yashorr/deadline-detector/internal/model"
)

// Store owns the ordered sequence of deadline records. The in-memory
// slice is the source of truth while running; the backing file is a
// write-through mirror rewritten in full after every mutation, so a
// crash loses at most the in-flight mutation.
//
// The store is append-only for the lifetime of the process: records are
// never deleted and, apart from the notified flip, never updated. It is
// only touched from the single watcher goroutine, so it carries no lock.
type Store struct {
	path    string
	records []*model.Deadline
}

// Open reads the backing file at path. An absent or blank file yields an
// empty store; a present, non-empty file that does not parse as a JSON
// array of records is an error, because silently starting empty would
// re-detect old deadlines and lose alert history.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading deadline store %s: %w", path, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("deadline store %s is corrupt: %w", path, err)
	}

	return s, nil
}

// All returns the record sequence in insertion order. The returned
// records are the store's own; callers must not mutate them directly.
func (s *Store) All() []*model.Deadline {
	return s.records
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Append adds a record to the end of the sequence and persists it. On a
// write failure the in-memory append is rolled back so memory and disk
// stay consistent.
func (s *Store) Append(d *model.Deadline) error {
	s.records = append(s.records, d)
	if err := s.persist(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return err
	}
	return nil
}

// MarkNotified flips the record's notified flag and persists the full
// sequence. Calling it on an already-notified record is a no-op write of
// the same state. On a write failure the flip is rolled back.
func (s *Store) MarkNotified(d *model.Deadline) error {
	was := d.Notified
	d.Notified = true
	if err := s.persist(); err != nil {
		d.Notified = was
		return err
	}
	return nil
}

// persist rewrites the backing file as a single well-formed JSON array.
// The write goes through a temp file and rename so a crash mid-write
// never leaves a torn file behind.
func (s *Store) persist() error {
	records := s.records
	if records == nil {
		records = []*model.Deadline{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding deadline store: %w", err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing deadline store %s: %w", s.path, err)
	}

	return nil
}
