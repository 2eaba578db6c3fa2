package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openTestStore(t)

	rec := Record{
		ID:           "job-1",
		Status:       StatusSuccess,
		FileName:     "photo.jxl",
		MediaType:    "image/jpeg",
		UsedFallback: true,
		OriginalSize: 1000,
		NewSize:      700,
		Arguments:    []string{"in", "out", "-q", "100"},
	}
	require.NoError(t, s.Put(rec))

	got, err := s.Get("job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.True(t, got.UsedFallback)
	assert.Equal(t, int64(700), got.NewSize)
	assert.Equal(t, rec.Arguments, got.Arguments)
	assert.WithinDuration(t, time.Now(), got.Timestamp, time.Minute)

	missing, err := s.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPutRequiresID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Put(Record{Status: StatusFailed}))
}

func TestListFiltersAndOrders(t *testing.T) {
	s := openTestStore(t)
	base := time.Now().Add(-time.Hour)

	require.NoError(t, s.Put(Record{ID: "a", Status: StatusSuccess, Timestamp: base}))
	require.NoError(t, s.Put(Record{ID: "b", Status: StatusFailed, Error: "Compression failed: boom", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, s.Put(Record{ID: "c", Status: StatusSuccess, Timestamp: base.Add(2 * time.Minute)}))

	all, err := s.List("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	failed, err := s.List(StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "Compression failed: boom", failed[0].Error)
}

func TestCleanupOldRecords(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(Record{ID: "old", Status: StatusSuccess, Timestamp: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, s.Put(Record{ID: "recent", Status: StatusSuccess}))

	n, err := s.CleanupOldRecords(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remaining, err := s.List("")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "recent", remaining[0].ID)
}

func TestCleanupOnEmptyStore(t *testing.T) {
	s := openTestStore(t)
	n, err := s.CleanupOldRecords(time.Hour)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestCheckHealth(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.CheckHealth())

	var nilStore *Store
	assert.Error(t, nilStore.CheckHealth())
}
