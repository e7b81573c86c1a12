package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/conversion"
	"github.com/gatanasi/gif-converter/internal/models"
	"github.com/gatanasi/gif-converter/internal/testsupport"
)

type handlerTestEnv struct {
	handler    *Handler
	router     http.Handler
	drive      *testsupport.FakeDrive
	transcoder *testsupport.FakeTranscoder
	store      *conversion.Store
	converter  *conversion.Converter
	tempDir    string
}

type envOption func(*models.Config)

func withoutDedupe(c *models.Config) { c.DedupeInFlight = false }

func withQueueSize(n int) envOption {
	return func(c *models.Config) { c.QueueSize = n }
}

func withConfig(fn func(*models.Config)) envOption { return fn }

func newHandlerTestEnv(t *testing.T, opts ...envOption) *handlerTestEnv {
	t.Helper()

	config := models.Config{
		Port:           "3000",
		SourceFolderID: "gifs",
		TargetFolderID: "mp4s",
		TempDir:        t.TempDir(),
		WorkerCount:    2,
		QueueSize:      4,
		DedupeInFlight: true,
		AllowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(&config)
	}

	env := &handlerTestEnv{
		drive:      testsupport.NewFakeDrive(),
		transcoder: &testsupport.FakeTranscoder{},
		store:      conversion.NewStore(config.DedupeInFlight),
		tempDir:    config.TempDir,
	}
	logger := zap.NewNop()
	pipeline := conversion.NewPipeline(env.drive, env.transcoder, config.TempDir, env.store, logger)
	env.converter = conversion.NewConverter(config.WorkerCount, config.QueueSize, pipeline, env.store, logger)
	env.converter.Start()
	t.Cleanup(env.converter.Abort)

	env.handler = NewHandler(config, env.drive, env.converter, env.store, logger)
	env.router = env.handler.Router()
	return env
}

func newNoDriveEnv(t *testing.T) *handlerTestEnv {
	t.Helper()
	store := conversion.NewStore(true)
	config := models.Config{SourceFolderID: "gifs", TargetFolderID: "mp4s", AllowedOrigins: []string{"*"}}
	handler := NewHandler(config, nil, nil, store, zap.NewNop())
	return &handlerTestEnv{handler: handler, router: handler.Router(), store: store}
}

func (e *handlerTestEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)
	return res
}

func decode[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var payload T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	return payload
}
