package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show conversion status of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			health, err := api.Health(cmd.Context())
			if err != nil {
				return err
			}
			driveState := "ready"
			if !health.DriveAPIReady {
				driveState = "not initialized"
			}
			fmt.Fprintf(out, "Server:    %s\n", health.Status)
			fmt.Fprintf(out, "Drive API: %s\n", driveState)
			if !health.DriveAPIReady {
				return nil
			}

			status, err := api.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Total", "Ready", "Processing", "Active"},
				[][]string{{
					strconv.Itoa(status.TotalGifs),
					strconv.Itoa(status.ReadyForDisplay),
					strconv.Itoa(status.Processing),
					strconv.Itoa(status.ActiveConversions),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintln(out, status.Message)

			active, err := api.Active(cmd.Context())
			if err != nil {
				return err
			}
			if len(active) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(active))
			for _, run := range active {
				rows = append(rows, []string{
					run.GifName,
					string(run.Stage),
					fmt.Sprintf("%.0f%%", run.Progress),
					humanize.Time(run.StartedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"GIF", "Stage", "Progress", "Started"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}
