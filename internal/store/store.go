// Package store persists the pipeline's collections as flat JSON snapshot
// files. Loads degrade to empty collections: a missing, empty, or corrupt
// file is never an error for callers.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/stackbay/inbox-agent/internal/mail"
)

// readCollection loads a JSON array from path. Missing, empty, and malformed
// files all decode to nil so "no data yet" and "corrupt data" look identical
// to callers.
func readCollection[T any](path string) []T {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

// writeCollection overwrites path with the full collection, via a temp file
// and rename so readers never observe a partial write.
func writeCollection[T any](path string, items []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Batch persists the enriched batch produced by a pipeline run.
type Batch struct {
	Path string
}

func NewBatch(path string) *Batch {
	return &Batch{Path: path}
}

func (s *Batch) Load() []mail.EnrichedRecord {
	return readCollection[mail.EnrichedRecord](s.Path)
}

func (s *Batch) Save(records []mail.EnrichedRecord) error {
	return writeCollection(s.Path, records)
}

// Drafts is the append-only saved-drafts collection.
type Drafts struct {
	Path string
}

func NewDrafts(path string) *Drafts {
	return &Drafts{Path: path}
}

func (s *Drafts) Load() []mail.DraftRecord {
	return readCollection[mail.DraftRecord](s.Path)
}

func (s *Drafts) Save(drafts []mail.DraftRecord) error {
	return writeCollection(s.Path, drafts)
}

// Append loads the existing drafts, appends one, and saves the whole
// collection back.
func (s *Drafts) Append(d mail.DraftRecord) error {
	drafts := s.Load()
	drafts = append(drafts, d)
	return s.Save(drafts)
}

// Inbox reads the externally-produced inbox snapshot. Read-only input.
type Inbox struct {
	Path string
}

func NewInbox(path string) *Inbox {
	return &Inbox{Path: path}
}

func (s *Inbox) Load() []mail.EmailRecord {
	return readCollection[mail.EmailRecord](s.Path)
}
