// Package poller drives the trigger-then-poll flow a client runs while an MP4
// is being produced server side.
package poller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/constants"
	"github.com/gatanasi/gif-converter/internal/logging"
	"github.com/gatanasi/gif-converter/internal/models"
)

// State is a step of the poll loop.
type State int

const (
	Idle State = iota
	Requested
	Polling
	Ready
	TimedOut
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requested:
		return "requested"
	case Polling:
		return "polling"
	case Ready:
		return "ready"
	case TimedOut:
		return "timed out"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the loop stops in this state.
func (s State) Terminal() bool {
	return s == Ready || s == TimedOut || s == Failed
}

// Client is the server surface the loop needs.
type Client interface {
	Convert(ctx context.Context, gifID string) (models.ConversionResponse, error)
	Catalog(ctx context.Context) (models.CatalogResponse, error)
}

// Options tunes the loop. Zero values use the package defaults.
type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
	// OnTransition is called on every state change.
	OnTransition func(from, to State)
}

// Result is the outcome of one Run.
type Result struct {
	State    State
	MP4ID    string
	MP4URL   string
	Attempts int
	Message  string
	// Err is set when the trigger failed or ctx ended the loop.
	Err error
}

// Poller runs the loop against a Client.
type Poller struct {
	client Client
	opts   Options
	logger *zap.Logger
}

// New creates a Poller.
func New(client Client, opts Options, logger *zap.Logger) *Poller {
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = constants.PollInitialDelay
	}
	if opts.Interval <= 0 {
		opts.Interval = constants.PollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = constants.PollMaxAttempts
	}
	return &Poller{client: client, opts: opts, logger: logger}
}

// Run triggers the conversion of gifID and polls the catalog until the MP4
// shows up, the attempts run out or ctx is done. A cancelled ctx leaves the
// result in the state it was interrupted in, with Err set.
func (p *Poller) Run(ctx context.Context, gifID string) Result {
	logger := p.logger.With(zap.String(logging.FieldGifID, gifID))
	state := Idle
	moveTo := func(next State) {
		if p.opts.OnTransition != nil {
			p.opts.OnTransition(state, next)
		}
		logger.Debug("poll state", zap.Stringer("from", state), zap.Stringer("to", next))
		state = next
	}

	moveTo(Requested)
	resp, err := p.client.Convert(ctx, gifID)
	if err != nil {
		moveTo(Failed)
		return Result{State: state, Err: err}
	}
	if !resp.Success {
		moveTo(Failed)
		return Result{State: state, Message: resp.Error, Err: fmt.Errorf("conversion request refused: %s", resp.Error)}
	}
	if resp.MP4URL != "" {
		moveTo(Ready)
		return Result{State: state, MP4ID: resp.MP4ID, MP4URL: resp.MP4URL, Message: resp.Message}
	}

	if err := sleep(ctx, p.opts.InitialDelay); err != nil {
		return Result{State: state, Err: err}
	}
	moveTo(Polling)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		catalog, err := p.client.Catalog(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Result{State: state, Attempts: attempt, Err: ctx.Err()}
			}
			logger.Warn("catalog poll failed", zap.Int("attempt", attempt), zap.Error(err))
		} else if entry, ok := findReady(catalog.Gifs, gifID); ok {
			moveTo(Ready)
			return Result{State: state, MP4ID: entry.MP4ID, MP4URL: entry.MP4URL, Attempts: attempt, Message: resp.Message}
		}

		if attempt == p.opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return Result{State: state, Attempts: attempt, Err: ctx.Err()}
		case <-ticker.C:
		}
	}

	moveTo(TimedOut)
	return Result{State: state, Attempts: p.opts.MaxAttempts, Message: resp.Message}
}

func findReady(entries []models.CatalogEntry, gifID string) (models.CatalogEntry, bool) {
	for _, entry := range entries {
		if entry.ID == gifID && entry.MP4Available {
			return entry, true
		}
	}
	return models.CatalogEntry{}, false
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
