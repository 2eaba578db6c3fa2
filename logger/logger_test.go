package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"":        INFO,
		"warning": WARN,
		" warn ":  WARN,
		"error":   ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestFileOutputRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jxlpress.log")
	require.NoError(t, Init(path, false))
	t.Cleanup(func() {
		Close()
		SetLevel(DEBUG)
	})

	SetLevel(WARN)
	Infof("dropped %d", 1)
	Warnf("kept %d", 2)
	Error("also kept")
	Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.NotContains(t, text, "dropped 1")
	assert.Contains(t, text, "[WARN]  ")
	assert.Contains(t, text, "kept 2")
	assert.Contains(t, text, "also kept")
	assert.False(t, strings.Contains(text, "\033["), "file output must not carry color codes")
}

func TestInitRequiresADestination(t *testing.T) {
	assert.Error(t, Init("", false))
}

func TestCloseWhileLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jxlpress.log")
	require.NoError(t, Init(path, false))
	t.Cleanup(func() {
		Close()
		SetLevel(DEBUG)
	})
	SetLevel(DEBUG)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				Infof("writer %d line %d", n, j)
			}
		}(i)
	}
	Close()
	wg.Wait()

	// Logging after Close is a silent no-op.
	Warn("after close")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "after close")
}
