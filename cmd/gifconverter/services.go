package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/api"
	"github.com/gatanasi/gif-converter/internal/conversion"
	"github.com/gatanasi/gif-converter/internal/drive"
	"github.com/gatanasi/gif-converter/internal/models"
)

// services is the shared wiring of the server and the one-shot sweep.
type services struct {
	drive     drive.Client
	store     *conversion.Store
	converter *conversion.Converter
	handler   *api.Handler
}

func buildServices(ctx context.Context, conf models.Config, logger *zap.Logger) *services {
	var client drive.Client
	svc, err := drive.NewFromConfig(ctx, conf)
	if err != nil {
		logger.Warn("Google Drive API not initialized", zap.Error(err))
	} else {
		client = svc
		logger.Info("Google Drive API initialized")
	}

	store := conversion.NewStore(conf.DedupeInFlight)
	transcoder := conversion.NewFFmpeg(conf.FFmpegPath, conf.FFprobePath, conf.TranscodeTimeout, logger)
	pipeline := conversion.NewPipeline(client, transcoder, conf.TempDir, store, logger)
	converter := conversion.NewConverter(conf.WorkerCount, conf.QueueSize, pipeline, store, logger)

	return &services{
		drive:     client,
		store:     store,
		converter: converter,
		handler:   api.NewHandler(conf, client, converter, store, logger),
	}
}
