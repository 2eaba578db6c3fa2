package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"jxlpress/logger"
)

// Sweep removes every artifact created more than ttl before now and deletes
// its file. Tokens held in claims are skipped and picked up by a later pass;
// claims may be nil. It returns the number of artifacts reclaimed.
func Sweep(store Store, claims *Claims, ttl time.Duration, now time.Time) (int, error) {
	entries, err := store.List()
	if err != nil {
		return 0, fmt.Errorf("failed to list artifacts: %w", err)
	}

	cutoff := now.Add(-ttl)
	reclaimed := 0
	for _, token := range sortedTokens(entries) {
		a := entries[token]
		if !a.CreatedAt.Before(cutoff) {
			break
		}
		ok, err := reclaim(store, claims, token)
		if err != nil {
			return reclaimed, err
		}
		if ok {
			reclaimed++
		}
	}
	return reclaimed, nil
}

// reclaim removes one expired artifact under a claim. The record is read
// again after claiming because a download may have consumed it in between.
func reclaim(store Store, claims *Claims, token string) (bool, error) {
	if claims != nil {
		if !claims.Claim(token) {
			logger.Debugf("Artifact %s is being downloaded; skipping sweep", token)
			return false, nil
		}
		defer claims.Release(token)
	}
	a, found, err := store.Get(token)
	if err != nil {
		return false, fmt.Errorf("failed to look up artifact %s: %w", token, err)
	}
	if !found {
		return false, nil
	}
	if err := store.Remove(token); err != nil {
		return false, fmt.Errorf("failed to remove artifact %s: %w", token, err)
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to delete expired artifact file %s: %v", a.Path, err)
	}
	return true, nil
}

// SweepObserver receives the count after every sweep pass.
type SweepObserver interface {
	ArtifactsPending(n int)
	ArtifactsExpired(n int)
}

// RunSweeper sweeps every interval until ctx is cancelled. A zero ttl or
// interval disables it.
func RunSweeper(ctx context.Context, store Store, claims *Claims, ttl, interval time.Duration, obs SweepObserver) {
	if ttl <= 0 || interval <= 0 {
		logger.Info("Artifact sweeper disabled")
		return
	}
	logger.Infof("Artifact sweeper started - ttl %v, every %v", ttl, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Artifact sweeper stopped due to context cancellation")
			return
		case now := <-ticker.C:
			n, err := Sweep(store, claims, ttl, now)
			if err != nil {
				logger.Errorf("Artifact sweep failed: %v", err)
			}
			if n > 0 {
				logger.Infof("Reclaimed %d expired artifacts", n)
			}
			if obs != nil {
				obs.ArtifactsExpired(n)
				if entries, err := store.List(); err == nil {
					obs.ArtifactsPending(len(entries))
				}
			}
		}
	}
}
