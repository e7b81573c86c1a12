// Package sweep submits a conversion for every GIF that has no MP4 yet.
package sweep

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/catalog"
	"github.com/gatanasi/gif-converter/internal/conversion"
	"github.com/gatanasi/gif-converter/internal/logging"
	"github.com/gatanasi/gif-converter/internal/models"
)

// Scanner lists the source items together with their readiness.
type Scanner interface {
	Scan(ctx context.Context, sourceFolderID, targetFolderID string) ([]catalog.Item, error)
}

// Submitter queues a conversion without waiting for it.
type Submitter interface {
	Submit(gifID, gifName, targetFolderID string) (models.ConversionJob, error)
}

// Result reports what one sweep did. Total counts every GIF of the source folder.
type Result struct {
	Started []models.StartedConversion
	Skipped []models.StartedConversion
	Total   int
}

// Sweeper scans the source folder and submits the missing items.
type Sweeper struct {
	scanner        Scanner
	submitter      Submitter
	sourceFolderID string
	targetFolderID string
	logger         *zap.Logger
}

// New creates a Sweeper for one source/target folder pair.
func New(scanner Scanner, submitter Submitter, sourceFolderID, targetFolderID string, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		scanner:        scanner,
		submitter:      submitter,
		sourceFolderID: sourceFolderID,
		targetFolderID: targetFolderID,
		logger:         logger,
	}
}

// SweepOnce submits every missing item. Items refused by the pool are listed
// in Skipped; a full queue stops the scan since later submissions would fail too.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	items, err := s.scanner.Scan(ctx, s.sourceFolderID, s.targetFolderID)
	if err != nil {
		return Result{}, err
	}

	missing := make([]models.SourceItem, 0, len(items))
	for _, item := range items {
		if !item.Ready {
			missing = append(missing, item.Source)
		}
	}

	result := Result{
		Started: make([]models.StartedConversion, 0, len(missing)),
		Total:   len(items),
	}
	for i, item := range missing {
		started := models.StartedConversion{GifID: item.ID, GifName: item.Name}
		_, err := s.submitter.Submit(item.ID, item.Name, s.targetFolderID)
		switch {
		case err == nil:
			result.Started = append(result.Started, started)
		case errors.Is(err, conversion.ErrQueueFull), errors.Is(err, conversion.ErrPoolStopped):
			for _, rest := range missing[i:] {
				result.Skipped = append(result.Skipped, models.StartedConversion{GifID: rest.ID, GifName: rest.Name})
			}
			s.logger.Warn("sweep stopped early", zap.Int("skipped", len(missing)-i), zap.Error(err))
			return result, nil
		default:
			result.Skipped = append(result.Skipped, started)
			s.logger.Debug("sweep skipped item",
				zap.String(logging.FieldGifID, item.ID),
				zap.String(logging.FieldGifName, item.Name),
				zap.Error(err))
		}
	}

	if len(result.Started) > 0 {
		s.logger.Info("sweep submitted conversions", zap.Int("started", len(result.Started)), zap.Int("skipped", len(result.Skipped)))
	}
	return result, nil
}

// Run sweeps after initialDelay and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, initialDelay, interval time.Duration) {
	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	s.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("auto-conversion sweep failed", zap.Error(err))
	}
}
