package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stores returns one fresh instance of every implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	pebbleStore, err := OpenPebble(filepath.Join(t.TempDir(), "artifacts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { pebbleStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"pebble": pebbleStore,
	}
}

func TestStoreAddGetRemove(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a := Artifact{Path: "/tmp/x.jxl", FileName: "photo.jxl", CreatedAt: time.Now().UTC().Truncate(time.Second)}
			require.NoError(t, s.Add("tok", a))

			got, ok, err := s.Get("tok")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, a.Path, got.Path)
			assert.Equal(t, a.FileName, got.FileName)
			assert.True(t, a.CreatedAt.Equal(got.CreatedAt))

			// Get does not consume.
			_, ok, _ = s.Get("tok")
			assert.True(t, ok)

			require.NoError(t, s.Remove("tok"))
			_, ok, err = s.Get("tok")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreRemoveUnknownTokenIsNoop(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, s.Remove("never-added"))
			assert.NoError(t, s.Remove("never-added"))
		})
	}
}

func TestStoreAddUpserts(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Add("tok", Artifact{Path: "/a"}))
			require.NoError(t, s.Add("tok", Artifact{Path: "/b"}))

			got, ok, err := s.Get("tok")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "/b", got.Path)

			all, err := s.List()
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					token := fmt.Sprintf("tok-%d", i)
					assert.NoError(t, s.Add(token, Artifact{Path: "/p/" + token}))
					got, ok, err := s.Get(token)
					assert.NoError(t, err)
					assert.True(t, ok)
					assert.Equal(t, "/p/"+token, got.Path)
					if i%2 == 0 {
						assert.NoError(t, s.Remove(token))
					}
				}(i)
			}
			wg.Wait()

			all, err := s.List()
			require.NoError(t, err)
			assert.Len(t, all, 16)
		})
	}
}

func TestPebbleStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")
	s, err := OpenPebble(path)
	require.NoError(t, err)
	require.NoError(t, s.Add("tok", Artifact{Path: "/tmp/out.jxl", FileName: "out.jxl"}))
	require.NoError(t, s.Close())

	reopened, err := OpenPebble(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get("tok")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "out.jxl", got.FileName)
}

func TestMemoryStoreLen(t *testing.T) {
	s := NewMemoryStore()
	assert.Equal(t, 0, s.Len())
	require.NoError(t, s.Add("a", Artifact{}))
	assert.Equal(t, 1, s.Len())
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("jxl"), 0o644))
	return path
}
