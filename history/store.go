package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	pebble "github.com/cockroachdb/pebble"
)

// Status values of a Record.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Record describes one finished compress request. It never carries the
// download token.
type Record struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	FileName     string    `json:"file_name"`
	MediaType    string    `json:"media_type"`
	Converted    bool      `json:"converted"`
	UsedFallback bool      `json:"used_fallback"`
	OriginalSize int64     `json:"original_size"`
	NewSize      int64     `json:"new_size,omitempty"`
	Error        string    `json:"error,omitempty"`
	Arguments    []string  `json:"arguments,omitempty"` // last cjxl invocation
}

// Store keeps Records in a pebble database keyed by ID.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the history database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores r, stamping the time if it is unset.
func (s *Store) Put(r Record) error {
	if r.ID == "" {
		return errors.New("history record needs an id")
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	return s.db.Set([]byte(r.ID), data, pebble.Sync)
}

// Get retrieves a record by id; a missing id returns nil, nil.
func (s *Store) Get(id string) (*Record, error) {
	data, closer, err := s.db.Get([]byte(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to get history record: %w", err)
	}
	defer closer.Close()

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history record: %w", err)
	}
	return &r, nil
}

// List returns every record, newest first. An empty status matches all.
func (s *Store) List(status string) ([]Record, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	records := []Record{}
	for iter.First(); iter.Valid(); iter.Next() {
		var r Record
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			continue // Skip invalid records
		}
		if status != "" && r.Status != status {
			continue
		}
		records = append(records, r)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

// CleanupOldRecords removes records older than maxAge and returns how many
// were deleted.
func (s *Store) CleanupOldRecords(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}

	var keysToDelete [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var r Record
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			continue
		}
		if r.Timestamp.Before(cutoff) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			keysToDelete = append(keysToDelete, key)
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	for _, key := range keysToDelete {
		if err := batch.Delete(key, nil); err != nil {
			return 0, fmt.Errorf("failed to delete old history record: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to commit history cleanup: %w", err)
	}
	return len(keysToDelete), nil
}

// CheckHealth performs a basic read against the database.
func (s *Store) CheckHealth() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history database not initialized")
	}
	_, closer, err := s.db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}
