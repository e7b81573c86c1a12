package conversion_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gatanasi/gif-converter/internal/conversion"
	"github.com/gatanasi/gif-converter/internal/logging"
	"github.com/gatanasi/gif-converter/internal/models"
	"github.com/gatanasi/gif-converter/internal/testsupport"
)

type pipelineEnv struct {
	drive      *testsupport.FakeDrive
	transcoder *testsupport.FakeTranscoder
	store      *conversion.Store
	tempDir    string
	pipeline   *conversion.Pipeline
}

func newPipelineEnv(t *testing.T) *pipelineEnv {
	t.Helper()
	env := &pipelineEnv{
		drive:      testsupport.NewFakeDrive(),
		transcoder: &testsupport.FakeTranscoder{},
		store:      conversion.NewStore(true),
		tempDir:    t.TempDir(),
	}
	env.pipeline = conversion.NewPipeline(env.drive, env.transcoder, env.tempDir, env.store, zap.NewNop())
	env.drive.AddGif("gifs", "g1", "cat.gif", []byte("GIF89a"))
	return env
}

func (e *pipelineEnv) run(t *testing.T) (string, error) {
	t.Helper()
	job := models.ConversionJob{RunID: "run-1", GifID: "g1", GifName: "cat.gif", TargetFolderID: "mp4s"}
	require.NoError(t, e.store.Begin(job))
	return e.pipeline.Convert(context.Background(), job)
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch files must be removed")
}

func TestPipelineLogsStages(t *testing.T) {
	env := newPipelineEnv(t)
	core, logs := observer.New(zapcore.DebugLevel)
	env.pipeline = conversion.NewPipeline(env.drive, env.transcoder, env.tempDir, env.store, zap.New(core))

	_, err := env.run(t)
	require.NoError(t, err)

	var stages []string
	for _, entry := range logs.FilterMessage("stage started").All() {
		assert.Equal(t, "run-1", entry.ContextMap()[logging.FieldRunID])
		stages = append(stages, entry.ContextMap()[logging.FieldStage].(string))
	}
	assert.Equal(t, []string{"fetching", "transcoding", "uploading"}, stages)
}

func TestPipelineConvert(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newPipelineEnv(t)

		mp4ID, err := env.run(t)
		require.NoError(t, err)

		uploads := env.drive.Uploads()
		require.Len(t, uploads, 1)
		assert.Equal(t, mp4ID, uploads[0].ID)
		assert.Equal(t, "cat.mp4", uploads[0].Name)
		assert.Equal(t, "mp4s", uploads[0].FolderID)
		assert.Equal(t, []byte("fake mp4 payload"), env.drive.Content(mp4ID))

		run, ok := env.store.GetRun("run-1")
		require.True(t, ok)
		assert.Equal(t, models.StageUploading, run.Stage)
		assert.Equal(t, 50.0, run.Progress)

		assertTempDirEmpty(t, env.tempDir)
	})

	t.Run("fetch failure", func(t *testing.T) {
		env := newPipelineEnv(t)
		env.drive.DownloadErr = errors.New("connection reset")

		_, err := env.run(t)
		require.Error(t, err)
		assert.ErrorIs(t, err, conversion.ErrFetch)
		assert.Zero(t, env.transcoder.Calls())
		assert.Empty(t, env.drive.Uploads())
		assertTempDirEmpty(t, env.tempDir)
	})

	t.Run("transcode failure", func(t *testing.T) {
		env := newPipelineEnv(t)
		env.transcoder.Err = errors.New("exit status 1")

		_, err := env.run(t)
		require.Error(t, err)
		assert.ErrorIs(t, err, conversion.ErrTranscode)
		assert.Empty(t, env.drive.Uploads())
		assertTempDirEmpty(t, env.tempDir)
	})

	t.Run("empty output", func(t *testing.T) {
		env := newPipelineEnv(t)
		env.transcoder.Empty = true

		_, err := env.run(t)
		require.Error(t, err)
		assert.ErrorIs(t, err, conversion.ErrTranscode)
		assert.Contains(t, err.Error(), "0 bytes")
		assert.Empty(t, env.drive.Uploads())
		assertTempDirEmpty(t, env.tempDir)
	})

	t.Run("upload failure", func(t *testing.T) {
		env := newPipelineEnv(t)
		env.drive.UploadErr = errors.New("403 forbidden")

		_, err := env.run(t)
		require.Error(t, err)
		assert.ErrorIs(t, err, conversion.ErrUpload)
		assertTempDirEmpty(t, env.tempDir)
	})
}
