// Package artifacts tracks encoded files waiting for their one-time download.
package artifacts

import (
	"sort"
	"sync"
	"time"
)

// Artifact is a completed output file registered under a download token.
type Artifact struct {
	Path      string    `json:"path"`      // absolute path of the encoded file
	FileName  string    `json:"file_name"` // name suggested to the downloader
	CreatedAt time.Time `json:"created_at"`
}

// Store maps tokens to artifacts. Implementations are safe for concurrent use.
type Store interface {
	// Add registers a under token, replacing any previous entry.
	Add(token string, a Artifact) error
	// Get looks token up without changing the store.
	Get(token string) (Artifact, bool, error)
	// Remove deletes token; removing an unknown token is not an error.
	Remove(token string) error
	// List returns a snapshot of every entry.
	List() (map[string]Artifact, error)
	Close() error
}

// MemoryStore keeps artifacts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Artifact)}
}

func (s *MemoryStore) Add(token string, a Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = a
	return nil
}

func (s *MemoryStore) Get(token string) (Artifact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.entries[token]
	return a, ok, nil
}

func (s *MemoryStore) Remove(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

func (s *MemoryStore) List() (map[string]Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Artifact, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

// Len returns the number of pending artifacts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error { return nil }

// sortedTokens returns the keys of m oldest first.
func sortedTokens(m map[string]Artifact) []string {
	tokens := make([]string, 0, len(m))
	for t := range m {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return m[tokens[i]].CreatedAt.Before(m[tokens[j]].CreatedAt)
	})
	return tokens
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PebbleStore)(nil)
)
