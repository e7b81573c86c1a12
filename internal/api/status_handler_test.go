package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatanasi/gif-converter/internal/models"
)

func TestStatusHandler(t *testing.T) {
	t.Run("counts ready and processing", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		env.drive.AddGif("gifs", "g1", "cat.gif", nil)
		env.drive.AddGif("gifs", "g2", "dog.gif", nil)
		env.drive.AddGif("gifs", "g3", "owl.gif", nil)
		env.drive.AddFile("mp4s", "cat.mp4", "video/mp4")

		res := env.do(t, http.MethodGet, RouteStatus)
		assert.Equal(t, http.StatusOK, res.Code)

		payload := decode[models.StatusResponse](t, res)
		assert.Equal(t, 3, payload.TotalGifs)
		assert.Equal(t, 1, payload.ReadyForDisplay)
		assert.Equal(t, 2, payload.Processing)
		assert.Equal(t, "2 GIF(s) are being converted and will appear soon", payload.Message)
	})

	t.Run("all ready", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		env.drive.AddGif("gifs", "g1", "cat.gif", nil)
		env.drive.AddFile("mp4s", "cat.mp4", "video/mp4")

		payload := decode[models.StatusResponse](t, env.do(t, http.MethodGet, RouteStatus))
		assert.Equal(t, "All GIFs are ready for instant download!", payload.Message)
	})

	t.Run("folders not configured", func(t *testing.T) {
		env := newHandlerTestEnv(t, withConfig(func(c *models.Config) { c.TargetFolderID = "" }))

		res := env.do(t, http.MethodGet, RouteStatus)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("drive not initialized", func(t *testing.T) {
		res := newNoDriveEnv(t).do(t, http.MethodGet, RouteStatus)
		assert.Equal(t, http.StatusInternalServerError, res.Code)
		assert.Equal(t, "Google Drive API not initialized", decode[models.StatusResponse](t, res).Error)
	})
}

func TestConvertAllHandler(t *testing.T) {
	env := newHandlerTestEnv(t)
	env.drive.AddGif("gifs", "g1", "cat.gif", []byte("GIF89a"))
	env.drive.AddGif("gifs", "g2", "dog.gif", []byte("GIF89a"))
	env.drive.AddFile("mp4s", "cat.mp4", "video/mp4")

	res := env.do(t, http.MethodPost, RouteConvertAll)
	assert.Equal(t, http.StatusOK, res.Code)

	payload := decode[models.BulkConversionResponse](t, res)
	assert.True(t, payload.Success)
	assert.Equal(t, 2, payload.TotalGifs)
	assert.Equal(t, []models.StartedConversion{{GifID: "g2", GifName: "dog.gif"}}, payload.ConversionsStarted)
	assert.Equal(t, "Started 1 conversions in background", payload.Message)

	env.converter.Stop()
	uploads := env.drive.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "dog.mp4", uploads[0].Name)
}

func TestHealthHandler(t *testing.T) {
	before := time.Now().Add(-time.Second)

	payload := decode[models.HealthResponse](t, newHandlerTestEnv(t).do(t, http.MethodGet, RouteHealth))
	assert.Equal(t, "healthy", payload.Status)
	assert.True(t, payload.DriveAPIReady)
	assert.True(t, payload.Timestamp.After(before))

	payload = decode[models.HealthResponse](t, newNoDriveEnv(t).do(t, http.MethodGet, RouteHealth))
	assert.False(t, payload.DriveAPIReady)
}

func TestActiveConversionsHandler(t *testing.T) {
	env := newHandlerTestEnv(t)
	env.transcoder.Release = make(chan struct{})
	env.transcoder.Started = make(chan string, 1)
	t.Cleanup(func() { close(env.transcoder.Release) })
	env.drive.AddGif("gifs", "g1", "cat.gif", []byte("GIF89a"))

	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/convert/g1").Code)
	<-env.transcoder.Started

	res := env.do(t, http.MethodGet, RouteActiveConversions)
	assert.Equal(t, http.StatusOK, res.Code)

	payload := decode[[]models.ActiveConversionInfo](t, res)
	require.Len(t, payload, 1)
	assert.Equal(t, "g1", payload[0].GifID)
	assert.Equal(t, "cat.gif", payload[0].GifName)
	assert.Equal(t, models.StageTranscoding, payload[0].Stage)
	assert.NotEmpty(t, payload[0].RunID)
}

func TestIndexIsServed(t *testing.T) {
	res := newNoDriveEnv(t).do(t, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "gif-container")
}
