package api

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatanasi/gif-converter/internal/models"
)

func TestConvertHandler(t *testing.T) {
	t.Run("already converted", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		env.drive.AddGif("gifs", "g1", "cat.gif", nil)
		mp4ID := env.drive.AddFile("mp4s", "cat.mp4", "video/mp4")

		res := env.do(t, http.MethodPost, "/convert/g1")
		assert.Equal(t, http.StatusOK, res.Code)

		payload := decode[models.ConversionResponse](t, res)
		assert.True(t, payload.Success)
		assert.Equal(t, "MP4 already exists", payload.Message)
		assert.Equal(t, mp4ID, payload.MP4ID)
		assert.Equal(t, "https://drive.google.com/uc?export=download&id="+mp4ID, payload.MP4URL)
		assert.Zero(t, env.transcoder.Calls())
	})

	t.Run("starts a conversion and the MP4 appears", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		env.drive.AddGif("gifs", "g1", "cat.gif", []byte("GIF89a"))

		res := env.do(t, http.MethodPost, "/convert/g1")
		assert.Equal(t, http.StatusAccepted, res.Code)

		payload := decode[models.ConversionResponse](t, res)
		assert.True(t, payload.Success)
		assert.Equal(t, "g1", payload.GifID)
		assert.Equal(t, "cat.gif", payload.GifFileName)
		assert.Empty(t, payload.MP4URL)

		env.converter.Stop()
		uploads := env.drive.Uploads()
		require.Len(t, uploads, 1)
		assert.Equal(t, "cat.mp4", uploads[0].Name)
		assert.Equal(t, "mp4s", uploads[0].FolderID)

		list := decode[models.CatalogResponse](t, env.do(t, http.MethodGet, RouteGifs))
		require.Len(t, list.Gifs, 1)
		assert.Equal(t, uploads[0].ID, list.Gifs[0].MP4ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		env := newHandlerTestEnv(t)

		res := env.do(t, http.MethodPost, "/convert/missing")
		assert.Equal(t, http.StatusNotFound, res.Code)
		payload := decode[models.ConversionResponse](t, res)
		assert.False(t, payload.Success)
		assert.Equal(t, "GIF not found", payload.Error)
	})

	t.Run("target folder not configured", func(t *testing.T) {
		env := newHandlerTestEnv(t, withConfig(func(c *models.Config) { c.TargetFolderID = "" }))
		env.drive.AddGif("gifs", "g1", "cat.gif", nil)

		res := env.do(t, http.MethodPost, "/convert/g1")
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, "MP4 folder ID not configured", decode[models.ConversionResponse](t, res).Error)
	})

	t.Run("drive not initialized", func(t *testing.T) {
		env := newNoDriveEnv(t)

		res := env.do(t, http.MethodPost, "/convert/g1")
		assert.Equal(t, http.StatusInternalServerError, res.Code)
		assert.Equal(t, "Google Drive API not initialized", decode[models.ConversionResponse](t, res).Error)
	})

	t.Run("queue full", func(t *testing.T) {
		env := newHandlerTestEnv(t, withQueueSize(1), withConfig(func(c *models.Config) { c.WorkerCount = 1 }))
		env.transcoder.Release = make(chan struct{})
		env.transcoder.Started = make(chan string, 4)
		t.Cleanup(func() { close(env.transcoder.Release) })
		env.drive.AddGif("gifs", "g1", "a.gif", nil)
		env.drive.AddGif("gifs", "g2", "b.gif", nil)
		env.drive.AddGif("gifs", "g3", "c.gif", nil)

		require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/convert/g1").Code)
		select {
		case <-env.transcoder.Started:
		case <-time.After(5 * time.Second):
			t.Fatal("first conversion never started")
		}
		require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/convert/g2").Code)

		res := env.do(t, http.MethodPost, "/convert/g3")
		assert.Equal(t, http.StatusServiceUnavailable, res.Code)
		assert.Contains(t, decode[models.ConversionResponse](t, res).Error, "queue is full")
	})

	t.Run("encoder failure leaves the target folder unchanged", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		env.transcoder.Err = assert.AnError
		env.drive.AddGif("gifs", "g1", "cat.gif", []byte("GIF89a"))

		assert.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/convert/g1").Code)
		env.converter.Stop()

		assert.Empty(t, env.drive.Uploads())
		_, _, failed := env.store.Counts()
		assert.Equal(t, 1, failed)
	})
}

func TestConvertHandlerConcurrentTriggers(t *testing.T) {
	trigger := func(t *testing.T, env *handlerTestEnv) []*models.ConversionResponse {
		var wg sync.WaitGroup
		responses := make([]*models.ConversionResponse, 2)
		for i := range responses {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res := env.do(t, http.MethodPost, "/convert/g1")
				assert.Equal(t, http.StatusAccepted, res.Code)
				payload := decode[models.ConversionResponse](t, res)
				responses[i] = &payload
			}(i)
		}
		wg.Wait()
		return responses
	}

	t.Run("without dedupe both triggers run", func(t *testing.T) {
		env := newHandlerTestEnv(t, withoutDedupe)
		env.transcoder.Release = make(chan struct{})
		env.drive.AddGif("gifs", "g1", "cat.gif", []byte("GIF89a"))

		for _, payload := range trigger(t, env) {
			assert.True(t, payload.Success)
		}
		close(env.transcoder.Release)
		env.converter.Stop()

		uploads := env.drive.Uploads()
		require.Len(t, uploads, 2, "duplicate uploads are possible without dedupe")
		assert.Equal(t, uploads[0].Name, uploads[1].Name)
	})

	t.Run("with dedupe one trigger runs", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		env.transcoder.Release = make(chan struct{})
		env.drive.AddGif("gifs", "g1", "cat.gif", []byte("GIF89a"))

		messages := map[string]int{}
		for _, payload := range trigger(t, env) {
			assert.True(t, payload.Success)
			messages[payload.Message]++
		}
		close(env.transcoder.Release)
		env.converter.Stop()

		assert.Len(t, env.drive.Uploads(), 1)
		assert.Equal(t, 1, messages["Conversion already in progress"])
	})
}
