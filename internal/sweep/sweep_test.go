package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/catalog"
	"github.com/gatanasi/gif-converter/internal/conversion"
	"github.com/gatanasi/gif-converter/internal/models"
)

type fakeLister struct {
	mu    sync.Mutex
	items []catalog.Item
	err   error
	calls int
}

func (l *fakeLister) Scan(_ context.Context, _, _ string) ([]catalog.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.items, l.err
}

func (l *fakeLister) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type fakeSubmitter struct {
	errs      map[string]error
	submitted []string
}

func (s *fakeSubmitter) Submit(gifID, gifName, targetFolderID string) (models.ConversionJob, error) {
	if err := s.errs[gifID]; err != nil {
		return models.ConversionJob{}, err
	}
	s.submitted = append(s.submitted, gifID)
	return models.ConversionJob{RunID: "run-" + gifID, GifID: gifID, GifName: gifName, TargetFolderID: targetFolderID}, nil
}

func items(ids ...string) []catalog.Item {
	out := make([]catalog.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, catalog.Item{Source: models.SourceItem{ID: id, Name: id + ".gif"}})
	}
	return out
}

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("submits every missing item", func(t *testing.T) {
		submitter := &fakeSubmitter{}
		s := New(&fakeLister{items: items("a", "b")}, submitter, "gifs", "mp4s", zap.NewNop())

		result, err := s.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, []string{"a", "b"}, submitter.submitted)
		assert.Len(t, result.Started, 2)
		assert.Empty(t, result.Skipped)
	})

	t.Run("ready items are not submitted", func(t *testing.T) {
		all := items("a", "b")
		all[0].Ready = true
		all[0].MP4ID = "m-a"
		submitter := &fakeSubmitter{}
		s := New(&fakeLister{items: all}, submitter, "gifs", "mp4s", zap.NewNop())

		result, err := s.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, submitter.submitted)
		assert.Equal(t, 2, result.Total)
	})

	t.Run("in-flight items are skipped", func(t *testing.T) {
		submitter := &fakeSubmitter{errs: map[string]error{"a": conversion.ErrAlreadyInFlight}}
		s := New(&fakeLister{items: items("a", "b")}, submitter, "gifs", "mp4s", zap.NewNop())

		result, err := s.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.StartedConversion{{GifID: "b", GifName: "b.gif"}}, result.Started)
		assert.Equal(t, []models.StartedConversion{{GifID: "a", GifName: "a.gif"}}, result.Skipped)
	})

	t.Run("full queue stops the scan", func(t *testing.T) {
		submitter := &fakeSubmitter{errs: map[string]error{"b": conversion.ErrQueueFull}}
		s := New(&fakeLister{items: items("a", "b", "c")}, submitter, "gifs", "mp4s", zap.NewNop())

		result, err := s.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, submitter.submitted)
		assert.Len(t, result.Skipped, 2)
		assert.Equal(t, 3, result.Total)
	})

	t.Run("listing error", func(t *testing.T) {
		s := New(&fakeLister{err: errors.New("drive down")}, &fakeSubmitter{}, "gifs", "mp4s", zap.NewNop())
		_, err := s.SweepOnce(ctx)
		assert.Error(t, err)
	})
}

func TestRunTicks(t *testing.T) {
	lister := &fakeLister{}
	s := New(lister, &fakeSubmitter{}, "gifs", "mp4s", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return lister.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunStopsBeforeFirstSweep(t *testing.T) {
	lister := &fakeLister{}
	s := New(lister, &fakeSubmitter{}, "gifs", "mp4s", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx, time.Hour, time.Hour)
	assert.Zero(t, lister.Calls())
}
