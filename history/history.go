// Package history persists the raw messages each user has sent. The whole
// log is rewritten to a single JSON snapshot on every change.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// Log maps user id to that user's messages in arrival order. It is safe for
// concurrent use.
type Log struct {
	mu      sync.Mutex
	path    string
	entries map[string][]string
}

// Open loads the snapshot at path. A missing file starts an empty log.
func Open(path string) (*Log, error) {
	l := &Log{path: path, entries: make(map[string][]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", path, err)
	}
	if len(data) == 0 {
		return l, nil
	}

	if err := json.Unmarshal(data, &l.entries); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", path, err)
	}
	if l.entries == nil {
		l.entries = make(map[string][]string)
	}

	return l, nil
}

// Append adds message to userID's log and rewrites the snapshot.
func (l *Log) Append(userID, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[userID] = append(l.entries[userID], message)
	return l.save()
}

// Get returns a copy of userID's messages.
func (l *Log) Get(userID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := l.entries[userID]
	out := make([]string, len(msgs))
	copy(out, msgs)
	return out
}

// Forget drops the given users' logs.
func (l *Log) Forget(userIDs ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	for _, id := range userIDs {
		if _, ok := l.entries[id]; ok {
			delete(l.entries, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return l.save()
}

// save writes to a temp file in the same directory and renames it over the
// snapshot, so readers never see a partial file.
func (l *Log) save() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}

	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
