package testsupport

import (
	"context"
	"os"
	"sync"

	"github.com/gatanasi/gif-converter/internal/conversion"
)

// FakeTranscoder writes a fixed payload instead of running ffmpeg.
type FakeTranscoder struct {
	// Err is returned instead of writing output.
	Err error
	// Empty writes a zero byte output file.
	Empty bool
	// Release, when set, blocks every call until it is closed or ctx ends.
	Release chan struct{}
	// Started receives one value per call when set.
	Started chan string

	mu    sync.Mutex
	calls int
}

var _ conversion.Transcoder = (*FakeTranscoder)(nil)

// Transcode implements conversion.Transcoder.
func (t *FakeTranscoder) Transcode(ctx context.Context, inputPath, outputPath string, progress conversion.ProgressFunc) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()

	if t.Started != nil {
		t.Started <- inputPath
	}
	if t.Release != nil {
		select {
		case <-t.Release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if t.Err != nil {
		return t.Err
	}
	if progress != nil {
		progress(50)
	}
	payload := []byte("fake mp4 payload")
	if t.Empty {
		payload = nil
	}
	return os.WriteFile(outputPath, payload, 0o644)
}

// Calls reports how many times Transcode ran.
func (t *FakeTranscoder) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
