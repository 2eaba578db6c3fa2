// Package process runs external programs with both output streams captured.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"jxlpress/logger"

	"golang.org/x/sync/semaphore"
)

// Result is the outcome of a process that ran to completion.
// A nonzero ExitCode is a Result, not an error.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Observer is notified around every launch.
type Observer interface {
	ProcessStarted(program string)
	ProcessFinished(program string, exitCode int, elapsed time.Duration)
}

// Runner launches programs through a counting semaphore so that at most a
// fixed number of children run at once across all callers.
type Runner struct {
	sem      *semaphore.Weighted
	limit    int
	timeout  time.Duration
	observer Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxConcurrent bounds the number of simultaneously running children.
func WithMaxConcurrent(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithTimeout kills a child that runs longer than d. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithObserver reports launches to o.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// NewRunner constructs a Runner; the default limit is runtime.NumCPU().
func NewRunner(opts ...Option) *Runner {
	r := &Runner{limit: runtime.NumCPU()}
	for _, opt := range opts {
		opt(r)
	}
	r.sem = semaphore.NewWeighted(int64(r.limit))
	return r
}

// Limit returns the configured concurrency bound.
func (r *Runner) Limit() int { return r.limit }

// Run starts executable with args, drains stdout and stderr concurrently
// while it runs, and returns once it has exited. extraEnv is layered on top
// of the inherited environment. Errors are returned only when the program
// could not be started, could not be waited on, or ctx ended first.
func (r *Runner) Run(ctx context.Context, executable string, args []string, extraEnv map[string]string) (Result, error) {
	program := filepath.Base(executable)

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("waiting for a %s slot: %w", program, err)
	}
	defer r.sem.Release(1)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec
	cmd.WaitDelay = time.Second
	if len(extraEnv) > 0 {
		cmd.Env = mergeEnv(os.Environ(), extraEnv)
	}

	// Non-file writers make os/exec copy each stream on its own goroutine
	// while the child runs; Wait joins both copies after the exit.
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", program, err)
	}
	started := time.Now()
	if r.observer != nil {
		r.observer.ProcessStarted(program)
	}

	waitErr := cmd.Wait()

	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
	}
	if r.observer != nil {
		r.observer.ProcessFinished(program, res.ExitCode, time.Since(started))
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s interrupted: %w", program, ctxErr)
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, fmt.Errorf("wait %s: %w", program, waitErr)
	}

	if res.ExitCode != 0 {
		logger.Infof("Process '%s' exited %d, stdout: %s", program, res.ExitCode, res.Stdout)
	}
	return res, nil
}

// mergeEnv appends extra to base in key order so the child sees the
// override last.
func mergeEnv(base []string, extra map[string]string) []string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(keys))
	env = append(env, base...)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
