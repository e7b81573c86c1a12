package filestore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/constants"
)

// ErrDirLocked is returned when another process holds the scratch directory.
var ErrDirLocked = errors.New("scratch directory is in use by another process")

// LockDir creates dir if needed and takes the advisory lock on its lock file.
// The caller releases it with Unlock.
func LockDir(dir string) (*flock.Flock, error) {
	if err := EnsureDirectoryExists(dir); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(dir, constants.LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock on %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrDirLocked)
	}
	return lock, nil
}

// RunJanitor removes entries of dir older than maxAge, first after
// initialDelay and then every interval, until ctx is done.
func RunJanitor(ctx context.Context, logger *zap.Logger, dir string, maxAge, initialDelay, interval time.Duration) {
	logger.Debug("scheduling temp cleanup", zap.Duration("initial_delay", initialDelay), zap.Duration("interval", interval))
	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	cleanup(logger, dir, maxAge)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanup(logger, dir, maxAge)
		}
	}
}

func cleanup(logger *zap.Logger, dir string, maxAge time.Duration) {
	if CleanupOldEntries(logger, dir, maxAge) == 0 {
		logger.Debug("temp cleanup finished, nothing to remove", zap.String("dir", dir))
	}
}
