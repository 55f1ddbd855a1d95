package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// logDocument is the on-disk shape of the local audit log: a single JSON
// document holding one ordered array of events.
type logDocument struct {
	Logs []ActionEvent `json:"logs"`
}

// FileStore is the Swarm-mode backend: every append rewrites the whole log
// file. Writes are serialized by a mutex and performed atomically
// (write-to-temp + rename) so a crash mid-write never leaves a corrupt log.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore for the given file path. The file is
// created with an empty log on the first append if it does not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("event store: log file path is required")
	}
	return &FileStore{path: path}, nil
}

// Path returns the log file path managed by this store.
func (s *FileStore) Path() string {
	return s.path
}

// Append adds one event to the end of the log.
func (s *FileStore) Append(_ context.Context, event *ActionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	doc.Logs = append(doc.Logs, *event)
	return s.save(doc)
}

// ListForService returns all events for one service key in insertion order.
func (s *FileStore) ListForService(_ context.Context, serviceKey string) ([]ActionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]ActionEvent, 0, len(doc.Logs))
	for _, e := range doc.Logs {
		if e.Service == serviceKey {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListAll returns every stored event in insertion order.
func (s *FileStore) ListAll(_ context.Context) ([]ActionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Logs, nil
}

// PurgeOldest keeps the keep most recent events by time and rewrites the log.
func (s *FileStore) PurgeOldest(_ context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return 0, err
	}

	if len(doc.Logs) <= keep {
		return 0, nil
	}

	sorted := make([]ActionEvent, len(doc.Logs))
	copy(sorted, doc.Logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time > sorted[j].Time
	})

	removed := len(sorted) - keep
	kept := sorted[:keep]

	// Store the survivors oldest first so the read path stays in time order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Time < kept[j].Time
	})

	doc.Logs = kept
	if err := s.save(doc); err != nil {
		return 0, err
	}

	return removed, nil
}

// load reads and parses the log document. A missing file is an empty log.
// Must be called with s.mu held.
func (s *FileStore) load() (*logDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &logDocument{Logs: []ActionEvent{}}, nil
		}
		return nil, fmt.Errorf("event store: failed to read %s: %w", s.path, err)
	}

	var doc logDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("event store: failed to parse %s: %w", s.path, err)
	}
	if doc.Logs == nil {
		doc.Logs = []ActionEvent{}
	}

	return &doc, nil
}

// save writes the log document atomically: temp file in the same directory,
// fsync, rename. Must be called with s.mu held.
func (s *FileStore) save(doc *logDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("event store: failed to marshal log: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ship-*.json.tmp")
	if err != nil {
		return fmt.Errorf("event store: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("event store: failed to write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("event store: failed to sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("event store: failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("event store: failed to rename temp file: %w", err)
	}
	tmpName = "" // prevent deferred Remove

	return nil
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)
