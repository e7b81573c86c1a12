package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List GIFs with a ready MP4 on a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}

			fetch := api.Catalog
			if pending {
				fetch = api.Pending
			}
			resp, err := fetch(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Gifs) == 0 {
				if pending {
					fmt.Fprintln(out, "No GIFs waiting for conversion")
				} else {
					fmt.Fprintln(out, "No GIFs ready yet")
				}
				return nil
			}

			rows := make([][]string, 0, len(resp.Gifs))
			for _, gif := range resp.Gifs {
				mp4 := "-"
				if gif.MP4Available {
					mp4 = gif.MP4URL
				}
				rows = append(rows, []string{gif.ID, gif.Name, mp4})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name", "MP4"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "List GIFs still waiting for an MP4")
	return cmd
}
