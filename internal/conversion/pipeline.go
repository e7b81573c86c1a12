package conversion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/constants"
	"github.com/gatanasi/gif-converter/internal/drive"
	"github.com/gatanasi/gif-converter/internal/filestore"
	"github.com/gatanasi/gif-converter/internal/logging"
	"github.com/gatanasi/gif-converter/internal/models"
)

// Runner executes one conversion job to completion.
type Runner interface {
	Convert(ctx context.Context, job models.ConversionJob) (string, error)
}

// Pipeline downloads a GIF, transcodes it and uploads the MP4 next to its siblings.
type Pipeline struct {
	drive      drive.Client
	transcoder Transcoder
	tempDir    string
	store      *Store
	logger     *zap.Logger
}

// NewPipeline creates a Pipeline. Each run works in its own directory under tempDir.
func NewPipeline(client drive.Client, transcoder Transcoder, tempDir string, store *Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		drive:      client,
		transcoder: transcoder,
		tempDir:    tempDir,
		store:      store,
		logger:     logger,
	}
}

// Convert runs fetch, transcode and upload in order and returns the id of the
// uploaded MP4. Local files are removed whatever the outcome.
func (p *Pipeline) Convert(ctx context.Context, job models.ConversionJob) (string, error) {
	logger := p.logger.With(
		zap.String(logging.FieldRunID, job.RunID),
		zap.String(logging.FieldGifID, job.GifID),
		zap.String(logging.FieldGifName, job.GifName),
	)
	started := time.Now()

	runDir := filepath.Join(p.tempDir, job.RunID)
	if err := filestore.EnsureDirectoryExists(runDir); err != nil {
		return "", Wrap(ErrFetch, "fetch", "prepare scratch directory", err)
	}

	baseName := filestore.SanitizeFilename(job.GifID)
	gifPath := filepath.Join(runDir, baseName+constants.SourceExtension)
	mp4Path := filepath.Join(runDir, baseName+constants.DerivedExtension)
	defer p.cleanup(logger, runDir, gifPath, mp4Path)

	logger.Info("conversion started")

	p.enterStage(logger, job.RunID, models.StageFetching)
	size, err := p.fetch(ctx, job.GifID, gifPath)
	if err != nil {
		logger.Error("fetch failed", zap.Error(err))
		return "", err
	}
	logger.Debug("gif downloaded", zap.String("size", humanize.Bytes(uint64(size))))

	p.enterStage(logger, job.RunID, models.StageTranscoding)
	if err := p.transcode(ctx, job.RunID, gifPath, mp4Path); err != nil {
		logger.Error("transcode failed", zap.Error(err))
		return "", err
	}

	p.enterStage(logger, job.RunID, models.StageUploading)
	mp4Name := DerivedName(job.GifName)
	mp4ID, err := p.upload(ctx, job.TargetFolderID, mp4Name, mp4Path)
	if err != nil {
		logger.Error("upload failed", zap.Error(err))
		return "", err
	}

	logger.Info("conversion completed",
		zap.String("mp4_id", mp4ID),
		zap.String("mp4_name", mp4Name),
		zap.Duration("elapsed", time.Since(started).Round(time.Millisecond)))
	return mp4ID, nil
}

func (p *Pipeline) enterStage(logger *zap.Logger, runID string, stage models.RunStage) {
	p.store.SetStage(runID, stage)
	logger.Debug("stage started", zap.String(logging.FieldStage, string(stage)))
}

func (p *Pipeline) fetch(ctx context.Context, gifID, gifPath string) (int64, error) {
	out, err := os.Create(gifPath)
	if err != nil {
		return 0, Wrap(ErrFetch, "fetch", "create local file", err)
	}
	written, err := p.drive.Download(ctx, gifID, out)
	closeErr := out.Close()
	if err != nil {
		return written, Wrap(ErrFetch, "fetch", "download gif", err)
	}
	if closeErr != nil {
		return written, Wrap(ErrFetch, "fetch", "close local file", closeErr)
	}
	return written, nil
}

func (p *Pipeline) transcode(ctx context.Context, runID, gifPath, mp4Path string) error {
	progress := func(percent float64) {
		p.store.SetProgressPercentage(runID, percent)
	}
	if err := p.transcoder.Transcode(ctx, gifPath, mp4Path, progress); err != nil {
		return Wrap(ErrTranscode, "transcode", "run encoder", err)
	}

	info, err := os.Stat(mp4Path)
	if err != nil {
		return Wrap(ErrTranscode, "transcode", "encoder produced no output", err)
	}
	if info.Size() == 0 {
		return Wrap(ErrTranscode, "transcode", "encoder output is empty (0 bytes)", nil)
	}
	return nil
}

func (p *Pipeline) upload(ctx context.Context, folderID, mp4Name, mp4Path string) (string, error) {
	in, err := os.Open(mp4Path)
	if err != nil {
		return "", Wrap(ErrUpload, "upload", "open mp4", err)
	}
	defer in.Close()

	mp4ID, err := p.drive.Upload(ctx, folderID, mp4Name, constants.DerivedMimeType, in)
	if err != nil {
		return "", Wrap(ErrUpload, "upload", fmt.Sprintf("create %s", mp4Name), err)
	}
	return mp4ID, nil
}

func (p *Pipeline) cleanup(logger *zap.Logger, runDir string, files ...string) {
	filestore.RemoveFiles(logger, files...)
	if err := os.Remove(runDir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove run directory", zap.String("dir", runDir), zap.Error(err))
	}
}
