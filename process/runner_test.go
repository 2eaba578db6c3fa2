package process

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sh = "/bin/sh"

func TestRunCapturesBothStreamsAndExitCode(t *testing.T) {
	r := NewRunner()

	res, err := r.Run(context.Background(), sh, []string{"-c", "echo out; echo err >&2; exit 3"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRunDrainsLargeOutputOnBothStreams(t *testing.T) {
	r := NewRunner(WithTimeout(30 * time.Second))

	// Well past any pipe buffer on each stream, interleaved.
	script := `i=0; while [ $i -lt 2000 ]; do printf '%0100d\n' $i; printf '%0100d\n' $i >&2; i=$((i+1)); done`
	res, err := r.Run(context.Background(), sh, []string{"-c", script}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, 2000, strings.Count(res.Stdout, "\n"))
	assert.Equal(t, 2000, strings.Count(res.Stderr, "\n"))
}

func TestRunPassesExtraEnv(t *testing.T) {
	r := NewRunner()

	res, err := r.Run(context.Background(), sh, []string{"-c", `printf %s "$LD_LIBRARY_PATH"`}, map[string]string{"LD_LIBRARY_PATH": "/usr/local/lib"})
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/lib", res.Stdout)
}

func TestRunMissingExecutable(t *testing.T) {
	r := NewRunner()

	_, err := r.Run(context.Background(), "/nonexistent/cjxl", nil, nil)
	assert.Error(t, err)
}

func TestRunTimeoutKillsChild(t *testing.T) {
	r := NewRunner(WithTimeout(100 * time.Millisecond))

	start := time.Now()
	_, err := r.Run(context.Background(), sh, []string{"-c", "sleep 10"}, nil)
	require.Error(t, err)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

type countingObserver struct {
	mu       sync.Mutex
	running  int
	maxSeen  int
	finished int
}

func (o *countingObserver) ProcessStarted(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running++
	if o.running > o.maxSeen {
		o.maxSeen = o.running
	}
}

func (o *countingObserver) ProcessFinished(string, int, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running--
	o.finished++
}

func TestRunBoundsConcurrency(t *testing.T) {
	obs := &countingObserver{}
	r := NewRunner(WithMaxConcurrent(2), WithObserver(obs))
	assert.Equal(t, 2, r.Limit())

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Run(context.Background(), sh, []string{"-c", "sleep 0.1"}, nil); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.Equal(t, 6, obs.finished)
	assert.LessOrEqual(t, obs.maxSeen, 2)
}

func TestRunCancelledWhileWaitingForSlot(t *testing.T) {
	r := NewRunner(WithMaxConcurrent(1))

	release := make(chan struct{})
	go func() {
		_, _ = r.Run(context.Background(), sh, []string{"-c", "sleep 1"}, nil)
		close(release)
	}()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.Run(ctx, sh, []string{"-c", "true"}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	<-release
}

func TestMergeEnvOrdersOverrides(t *testing.T) {
	env := mergeEnv([]string{"A=1"}, map[string]string{"C": "3", "B": "2"})
	assert.Equal(t, []string{"A=1", "B=2", "C=3"}, env)
}
