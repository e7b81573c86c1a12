package conversion

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/constants"
)

// ProgressFunc receives transcode progress as a percentage.
type ProgressFunc func(percent float64)

// Transcoder converts a local GIF into a local MP4.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, progress ProgressFunc) error
}

// EncodeSettings is the fixed output profile. The defaults produce files
// Instagram and other social platforms accept.
type EncodeSettings struct {
	VideoCodec  string
	PixelFormat string
	ScaleFilter string
	FrameRate   int
	CRF         int
	Preset      string
	MovFlags    string
}

// SocialMediaSettings is the profile used for every conversion.
var SocialMediaSettings = EncodeSettings{
	VideoCodec:  "libx264",
	PixelFormat: "yuv420p",
	ScaleFilter: "scale=trunc(iw/2)*2:trunc(ih/2)*2",
	FrameRate:   30,
	CRF:         23,
	Preset:      "medium",
	MovFlags:    "+faststart",
}

// FFmpeg runs the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	Binary   string
	Probe    string
	Settings EncodeSettings
	// Timeout bounds a single transcode; zero means no limit.
	Timeout time.Duration
	logger  *zap.Logger
}

// NewFFmpeg creates an FFmpeg transcoder with the social media profile.
func NewFFmpeg(binary, probe string, timeout time.Duration, logger *zap.Logger) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if probe == "" {
		probe = "ffprobe"
	}
	return &FFmpeg{
		Binary:   binary,
		Probe:    probe,
		Settings: SocialMediaSettings,
		Timeout:  timeout,
		logger:   logger,
	}
}

// BuildArgs returns the ffmpeg argument list for one conversion.
func (f *FFmpeg) BuildArgs(inputPath, outputPath string) []string {
	s := f.Settings
	return []string{
		"-y",
		"-i", inputPath,
		"-progress", "pipe:1",
		"-nostats",
		"-v", "warning",
		"-an",
		"-c:v", s.VideoCodec,
		"-movflags", s.MovFlags,
		"-pix_fmt", s.PixelFormat,
		"-vf", s.ScaleFilter,
		"-r", strconv.Itoa(s.FrameRate),
		"-crf", strconv.Itoa(s.CRF),
		"-preset", s.Preset,
		outputPath,
	}
}

// Transcode runs ffmpeg and blocks until it exits.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath, outputPath string, progress ProgressFunc) error {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	duration, err := f.probeDuration(ctx, inputPath)
	if err != nil {
		f.logger.Debug("could not read GIF duration, progress will be coarse", zap.Error(err))
	}

	args := f.BuildArgs(inputPath, outputPath)
	f.logger.Debug("executing ffmpeg", zap.String("cmd", f.Binary+" "+strings.Join(args, " ")))
	cmd := exec.CommandContext(ctx, f.Binary, args...)

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	var ffmpegErrOutput strings.Builder
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderrPipe)
		for scanner.Scan() {
			line := scanner.Text()
			f.logger.Debug("ffmpeg stderr", zap.String("line", line))
			ffmpegErrOutput.WriteString(line + "\n")
		}
	}()

	go func() {
		defer wg.Done()
		processProgress(stdoutPipe, duration, progress)
	}()

	// Pipes must be drained before Wait closes them.
	wg.Wait()
	err = cmd.Wait()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg interrupted: %w", ctxErr)
		}
		output := strings.TrimSpace(ffmpegErrOutput.String())
		if output != "" {
			return fmt.Errorf("ffmpeg execution failed: %w: %s", err, output)
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}
	return nil
}

// probeDuration uses ffprobe to get the duration of a file in seconds.
func (f *FFmpeg) probeDuration(ctx context.Context, filePath string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.FFprobeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.Probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		filePath,
	)

	outputBytes, err := cmd.Output()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return 0, fmt.Errorf("ffprobe timed out getting duration for %s", filepath.Base(filePath))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return 0, fmt.Errorf("ffprobe failed for %s: %v, stderr: %s", filepath.Base(filePath), err, string(exitErr.Stderr))
		}
		return 0, fmt.Errorf("ffprobe failed for %s: %w", filepath.Base(filePath), err)
	}

	return parseDuration(string(outputBytes))
}

func parseDuration(raw string) (float64, error) {
	durationStr := strings.TrimSpace(raw)
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration output '%s': %w", durationStr, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid duration %f reported by ffprobe", duration)
	}
	return duration, nil
}

// processProgress parses the key=value stream written by "-progress pipe:1".
// Without a known duration it only reports completion.
func processProgress(stdout io.Reader, duration float64, progress ProgressFunc) {
	if progress == nil {
		progress = func(float64) {}
	}
	scanner := bufio.NewScanner(stdout)
	var lastUpdate time.Time

	for scanner.Scan() {
		key, value, found := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case key == "out_time_us" && duration > 0:
			outTimeUs, err := strconv.ParseFloat(value, 64)
			if err != nil || outTimeUs < 0 {
				continue
			}
			if time.Since(lastUpdate) < constants.ProgressUpdateThrottle {
				continue
			}
			progress((outTimeUs / 1_000_000.0) / duration * 100.0)
			lastUpdate = time.Now()
		case key == "progress" && value == "end":
			progress(100.0)
			// Keep draining so ffmpeg never blocks on a full pipe.
		}
	}
}
