// Package ledger tracks which confessions a client has already liked.
// The ledger is client-held and advisory only: it stops repeat likes from
// the same installation but carries no server-side authority.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var errMissingPath = errors.New("ledger: file path is required")

// FileLedger is a durable set of liked confession identifiers backed by a
// JSON document on disk. Entries are never removed.
type FileLedger struct {
	mu    sync.Mutex
	path  string
	liked map[string]bool
}

// Open loads the ledger at path, creating an empty one when the file does
// not exist yet.
func Open(path string) (*FileLedger, error) {
	if path == "" {
		return nil, errMissingPath
	}

	l := &FileLedger{
		path:  path,
		liked: make(map[string]bool),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read %s: %w", path, err)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("ledger: parse %s: %w", path, err)
	}
	for _, id := range ids {
		l.liked[id] = true
	}
	return l, nil
}

// HasLiked reports whether the identifier was recorded before.
func (l *FileLedger) HasLiked(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.liked[id]
}

// RecordLike adds the identifier to the ledger and persists it. Recording
// an already-present identifier is a no-op.
func (l *FileLedger) RecordLike(id string) error {
	if id == "" {
		return errors.New("ledger: id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.liked[id] {
		return nil
	}
	l.liked[id] = true

	if err := l.flushLocked(); err != nil {
		delete(l.liked, id)
		return err
	}
	return nil
}

// Len returns the number of recorded likes.
func (l *FileLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.liked)
}

func (l *FileLedger) flushLocked() error {
	ids := make([]string, 0, len(l.liked))
	for id := range l.liked {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("ledger: create dir %s: %w", dir, err)
		}
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("ledger: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("ledger: replace %s: %w", l.path, err)
	}
	return nil
}
