package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/constants"
	"github.com/gatanasi/gif-converter/internal/filestore"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, conversion workers and auto-conversion sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(parent context.Context, ctx *commandContext) error {
	if parent == nil {
		parent = context.Background()
	}
	conf, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	lock, err := filestore.LockDir(conf.TempDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release temp directory lock", zap.Error(err))
		}
	}()

	runCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := buildServices(runCtx, conf, logger)
	svc.converter.Start()
	defer svc.converter.Abort()

	go filestore.RunJanitor(runCtx, logger, conf.TempDir, conf.TempMaxAge,
		constants.TempCleanupInitialDelay, constants.TempCleanupInterval)

	if sweeper := svc.handler.Sweeper(); sweeper != nil && conf.SweepEnabled {
		go sweeper.Run(runCtx, conf.SweepInitialDelay, conf.SweepInterval)
	} else if conf.SweepEnabled {
		logger.Warn("auto-conversion disabled: Google Drive API not initialized")
	}

	server := &http.Server{
		Addr:         ":" + conf.Port,
		Handler:      svc.handler.Router(),
		ReadTimeout:  constants.HTTPReadTimeout,
		WriteTimeout: constants.HTTPWriteTimeout,
		IdleTimeout:  constants.HTTPIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("version", version),
			zap.String("addr", "http://localhost:"+conf.Port),
			zap.Int("workers", conf.WorkerCount),
			zap.Strings("allowed_origins", conf.AllowedOrigins),
			zap.Bool("dedupe_in_flight", conf.DedupeInFlight))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-runCtx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server gracefully stopped")
	return nil
}
