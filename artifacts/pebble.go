package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"

	pebble "github.com/cockroachdb/pebble"
)

// PebbleStore persists artifacts so pending downloads survive a restart.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the artifact database at dbPath.
func OpenPebble(dbPath string) (*PebbleStore, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Add(token string, a Artifact) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return s.db.Set([]byte(token), data, pebble.Sync)
}

func (s *PebbleStore) Get(token string) (Artifact, bool, error) {
	data, closer, err := s.db.Get([]byte(token))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Artifact{}, false, nil
		}
		return Artifact{}, false, fmt.Errorf("failed to get artifact: %w", err)
	}
	defer closer.Close()

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return Artifact{}, false, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}
	return a, true, nil
}

// Remove deletes token. Pebble deletes of absent keys succeed.
func (s *PebbleStore) Remove(token string) error {
	return s.db.Delete([]byte(token), pebble.Sync)
}

func (s *PebbleStore) List() (map[string]Artifact, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	out := make(map[string]Artifact)
	for iter.First(); iter.Valid(); iter.Next() {
		var a Artifact
		if err := json.Unmarshal(iter.Value(), &a); err != nil {
			continue // Skip invalid records
		}
		out[string(iter.Key())] = a
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}
	return out, nil
}

func (s *PebbleStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
