package conversion

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildArgs(t *testing.T) {
	f := NewFFmpeg("", "", 0, zap.NewNop())
	assert.Equal(t, "ffmpeg", f.Binary)
	assert.Equal(t, "ffprobe", f.Probe)

	args := f.BuildArgs("in.gif", "out.mp4")
	joined := strings.Join(args, " ")

	assert.Equal(t, "-y", args[0])
	assert.Equal(t, "out.mp4", args[len(args)-1])
	assert.Contains(t, joined, "-i in.gif")
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-movflags +faststart")
	assert.Contains(t, joined, "-pix_fmt yuv420p")
	assert.Contains(t, joined, "-vf scale=trunc(iw/2)*2:trunc(ih/2)*2")
	assert.Contains(t, joined, "-r 30")
	assert.Contains(t, joined, "-crf 23")
	assert.Contains(t, joined, "-preset medium")
	assert.Contains(t, joined, "-progress pipe:1")
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration(" 2.500000\n")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, d, 0.0001)

	_, err = parseDuration("N/A")
	assert.Error(t, err)

	_, err = parseDuration("0")
	assert.Error(t, err)
}

func TestProcessProgress(t *testing.T) {
	t.Run("with duration", func(t *testing.T) {
		var got []float64
		stream := "frame=1\nout_time_us=1000000\nprogress=continue\nout_time_us=bad\nprogress=end\n"
		processProgress(strings.NewReader(stream), 4, func(p float64) { got = append(got, p) })

		require.Len(t, got, 2)
		assert.InDelta(t, 25.0, got[0], 0.0001)
		assert.Equal(t, 100.0, got[1])
	})

	t.Run("without duration", func(t *testing.T) {
		var got []float64
		stream := "out_time_us=1000000\nprogress=end\n"
		processProgress(strings.NewReader(stream), 0, func(p float64) { got = append(got, p) })
		assert.Equal(t, []float64{100.0}, got)
	})

	t.Run("nil callback", func(t *testing.T) {
		assert.NotPanics(t, func() {
			processProgress(strings.NewReader("progress=end\n"), 1, nil)
		})
	})
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestTranscodeWithScripts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	dir := t.TempDir()
	probe := writeScript(t, dir, "ffprobe", "echo 2.0\n")

	t.Run("success", func(t *testing.T) {
		bin := writeScript(t, dir, "ffmpeg-ok", `for last; do :; done
printf 'mp4' > "$last"
echo "out_time_us=1000000"
echo "progress=end"
`)
		f := NewFFmpeg(bin, probe, time.Minute, zap.NewNop())
		out := filepath.Join(dir, "ok.mp4")

		var last float64
		err := f.Transcode(context.Background(), filepath.Join(dir, "in.gif"), out, func(p float64) { last = p })
		require.NoError(t, err)
		assert.Equal(t, 100.0, last)
		assert.FileExists(t, out)
	})

	t.Run("failure includes stderr", func(t *testing.T) {
		bin := writeScript(t, dir, "ffmpeg-fail", "echo 'Invalid data found' >&2\nexit 1\n")
		f := NewFFmpeg(bin, probe, 0, zap.NewNop())

		err := f.Transcode(context.Background(), "in.gif", filepath.Join(dir, "fail.mp4"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid data found")
	})

	t.Run("missing binary", func(t *testing.T) {
		f := NewFFmpeg(filepath.Join(dir, "does-not-exist"), probe, 0, zap.NewNop())
		err := f.Transcode(context.Background(), "in.gif", filepath.Join(dir, "x.mp4"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start ffmpeg")
	})
}
