package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gatanasi/gif-converter/internal/constants"
	"github.com/gatanasi/gif-converter/internal/poller"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var all bool
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "convert <gif-id> | --all",
		Short: "Trigger the conversion of one GIF, or of every missing one, on a running server",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if all {
				if wait {
					return fmt.Errorf("--wait cannot be combined with --all")
				}
				resp, err := api.ConvertAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, resp.Message)
				if len(resp.ConversionsStarted) > 0 {
					rows := make([][]string, 0, len(resp.ConversionsStarted))
					for _, started := range resp.ConversionsStarted {
						rows = append(rows, []string{started.GifID, started.GifName})
					}
					fmt.Fprintln(out, renderTable([]string{"GIF ID", "Name"}, rows, nil))
				}
				if len(resp.Skipped) > 0 {
					fmt.Fprintf(out, "%d GIF(s) skipped, the server queue is full\n", len(resp.Skipped))
				}
				return nil
			}

			gifID := strings.TrimSpace(args[0])
			if gifID == "" {
				return fmt.Errorf("gif id is required")
			}

			if !wait {
				resp, err := api.Convert(cmd.Context(), gifID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, resp.Message)
				if resp.MP4URL != "" {
					fmt.Fprintln(out, resp.MP4URL)
				}
				return nil
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			p := poller.New(api, poller.Options{
				MaxAttempts: maxAttempts,
				OnTransition: func(_, to poller.State) {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s...\n", to)
				},
			}, logger)

			result := p.Run(cmd.Context(), gifID)
			switch result.State {
			case poller.Ready:
				fmt.Fprintln(out, result.MP4URL)
				return nil
			case poller.TimedOut:
				return fmt.Errorf("MP4 not ready after %d attempts, try again later", result.Attempts)
			default:
				if result.Err != nil {
					return result.Err
				}
				return fmt.Errorf("conversion ended in state %s", result.State)
			}
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Trigger a sweep of every GIF without an MP4")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the MP4 is available")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", constants.PollMaxAttempts, "Maximum catalog polls while waiting")
	return cmd
}
