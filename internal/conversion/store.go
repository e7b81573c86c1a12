package conversion

import (
	"sort"
	"sync"
	"time"

	"github.com/gatanasi/gif-converter/internal/constants"
	"github.com/gatanasi/gif-converter/internal/models"
)

// Store tracks queued and running conversions. It is safe for concurrent use.
//
// With dedupe enabled a second run for a GIF that is already queued or
// running is refused, which closes the duplicate-upload race on the target
// folder for this process.
type Store struct {
	dedupe bool

	runs      map[string]*models.ActiveConversionInfo
	bySource  map[string]int
	completed int
	failed    int
	mu        sync.RWMutex

	now func() time.Time
}

// NewStore creates a new run store.
func NewStore(dedupe bool) *Store {
	return &Store{
		dedupe:   dedupe,
		runs:     make(map[string]*models.ActiveConversionInfo),
		bySource: make(map[string]int),
		now:      time.Now,
	}
}

// Begin registers a queued run. It returns ErrAlreadyInFlight when dedupe is
// enabled and the GIF already has a run.
func (s *Store) Begin(job models.ConversionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dedupe && s.bySource[job.GifID] > 0 {
		return ErrAlreadyInFlight
	}
	s.runs[job.RunID] = &models.ActiveConversionInfo{
		RunID:     job.RunID,
		GifID:     job.GifID,
		GifName:   job.GifName,
		Stage:     models.StageQueued,
		StartedAt: s.now(),
	}
	s.bySource[job.GifID]++
	return nil
}

// SetStage records the pipeline step a run is executing.
func (s *Store) SetStage(runID string, stage models.RunStage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, exists := s.runs[runID]; exists {
		run.Stage = stage
	}
}

// SetProgressPercentage updates the transcode progress of a run, clamped to
// [0, 99] until the run finishes.
func (s *Store) SetProgressPercentage(runID string, percentage float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, exists := s.runs[runID]
	if !exists {
		return
	}
	progress := percentage
	if progress < 0 {
		progress = 0
	} else if progress > constants.ProgressMaxBeforeCompletion {
		progress = constants.ProgressMaxBeforeCompletion
	}
	run.Progress = progress
}

// Finish removes a run and counts it as completed or failed.
func (s *Store) Finish(runID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.removeLocked(runID) {
		return
	}
	if err != nil {
		s.failed++
	} else {
		s.completed++
	}
}

// Abandon removes a run that never reached a worker.
func (s *Store) Abandon(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(runID)
}

func (s *Store) removeLocked(runID string) bool {
	run, exists := s.runs[runID]
	if !exists {
		return false
	}
	delete(s.runs, runID)
	if s.bySource[run.GifID] <= 1 {
		delete(s.bySource, run.GifID)
	} else {
		s.bySource[run.GifID]--
	}
	return true
}

// InFlight reports whether a GIF has a queued or running conversion.
func (s *Store) InFlight(gifID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bySource[gifID] > 0
}

// GetRun retrieves a copy of a run.
func (s *Store) GetRun(runID string) (models.ActiveConversionInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, exists := s.runs[runID]
	if !exists {
		return models.ActiveConversionInfo{}, false
	}
	return *run, true
}

// GetActiveConversionsInfo returns copies of all active runs, oldest first.
func (s *Store) GetActiveConversionsInfo() []models.ActiveConversionInfo {
	s.mu.RLock()
	active := make([]models.ActiveConversionInfo, 0, len(s.runs))
	for _, run := range s.runs {
		active = append(active, *run)
	}
	s.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool {
		if active[i].StartedAt.Equal(active[j].StartedAt) {
			return active[i].RunID < active[j].RunID
		}
		return active[i].StartedAt.Before(active[j].StartedAt)
	})
	return active
}

// Counts returns the number of active runs and the totals of finished runs.
func (s *Store) Counts() (active, completed, failed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs), s.completed, s.failed
}
