// Package conversion turns Drive GIFs into MP4s and tracks the runs in flight.
package conversion

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/logging"
	"github.com/gatanasi/gif-converter/internal/models"
)

// Converter manages the conversion worker pool and queue.
type Converter struct {
	workersCount int
	queue        chan models.ConversionJob
	wg           sync.WaitGroup
	runner       Runner
	store        *Store
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
}

// NewConverter creates a new Converter. A queueSize below one defaults to
// twice the worker count.
func NewConverter(workerCount, queueSize int, runner Runner, store *Store, logger *zap.Logger) *Converter {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = workerCount * 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Converter{
		workersCount: workerCount,
		queue:        make(chan models.ConversionJob, queueSize),
		runner:       runner,
		store:        store,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start initializes and starts the conversion workers.
func (c *Converter) Start() {
	c.wg.Add(c.workersCount)
	for i := 0; i < c.workersCount; i++ {
		go c.worker(i + 1)
	}
	c.logger.Info("started conversion workers", zap.Int("workers", c.workersCount), zap.Int("queue_size", cap(c.queue)))
}

// Submit registers a run for the GIF and queues it without blocking.
func (c *Converter) Submit(gifID, gifName, targetFolderID string) (models.ConversionJob, error) {
	job := models.ConversionJob{
		RunID:          uuid.NewString(),
		GifID:          gifID,
		GifName:        gifName,
		TargetFolderID: targetFolderID,
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stopped {
		return job, ErrPoolStopped
	}

	if err := c.store.Begin(job); err != nil {
		return job, err
	}

	select {
	case c.queue <- job:
		c.logger.Debug("job queued",
			zap.String(logging.FieldRunID, job.RunID),
			zap.String(logging.FieldGifID, gifID))
		return job, nil
	default:
		c.store.Abandon(job.RunID)
		c.logger.Warn("conversion queue is full",
			zap.String(logging.FieldGifID, gifID),
			zap.String(logging.FieldGifName, gifName))
		return job, ErrQueueFull
	}
}

// Stop refuses new jobs, lets the workers drain the queue and waits for them.
func (c *Converter) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		close(c.queue)
		c.mu.Unlock()
	})
	c.wg.Wait()
	c.cancel()
	c.logger.Info("all conversion workers stopped")
}

// Abort cancels running conversions, drops queued ones and waits for the workers.
func (c *Converter) Abort() {
	c.cancel()
	c.Stop()
}

func (c *Converter) worker(id int) {
	defer c.wg.Done()
	logger := c.logger.With(zap.Int(logging.FieldWorker, id))
	logger.Debug("worker started")
	for job := range c.queue {
		if err := c.ctx.Err(); err != nil {
			logger.Info("dropping queued job", zap.String(logging.FieldRunID, job.RunID), zap.String(logging.FieldGifID, job.GifID))
			c.store.Finish(job.RunID, err)
			continue
		}
		_, err := c.runner.Convert(c.ctx, job)
		c.store.Finish(job.RunID, err)
	}
	logger.Debug("worker stopped")
}
