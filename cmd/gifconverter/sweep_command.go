package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/filestore"
)

// oneShotQueueSize lets a local sweep queue every missing GIF at once.
const oneShotQueueSize = 10000

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Convert every GIF without an MP4 locally, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			defer func() { _ = lock.Unlock() }()

			if conf.QueueSize < oneShotQueueSize {
				conf.QueueSize = oneShotQueueSize
			}
			svc := buildServices(cmd.Context(), conf, logger)
			sweeper := svc.handler.Sweeper()
			if sweeper == nil {
				return errors.New("Google Drive API not initialized")
			}

			started := time.Now()
			svc.converter.Start()
			result, err := sweeper.SweepOnce(cmd.Context())
			if err != nil {
				svc.converter.Abort()
				return err
			}
			logger.Info("waiting for conversions", zap.Int("started", len(result.Started)))
			svc.converter.Stop()

			_, completed, failed := svc.store.Counts()
			rows := make([][]string, 0, len(result.Started))
			for _, item := range result.Started {
				rows = append(rows, []string{item.GifID, item.GifName})
			}
			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"GIF ID", "Name"}, rows, nil))
			}
			fmt.Fprintf(out, "%d GIF(s) scanned, %d converted, %d failed, %d skipped in %s\n",
				result.Total, completed, failed, len(result.Skipped),
				strings.TrimSpace(humanize.RelTime(started, time.Now(), "", "")))
			if failed > 0 {
				return fmt.Errorf("%d conversion(s) failed", failed)
			}
			return nil
		},
	}
}
