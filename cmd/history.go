package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigtrail/sigtrail/pkg/history"
)

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the changelog of a signal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output != "text" && output != "json" {
			return fmt.Errorf("unknown output format %q (text, json)", output)
		}

		var from *observer
		if v, _ := cmd.Flags().GetString("from"); v != "" {
			o, err := parseObserver(v)
			if err != nil {
				return err
			}
			from = o
		}

		store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		client, err := newHistoryClient(store, nil)
		if err != nil {
			return err
		}

		res := client.Fetch(context.Background(), args[0])
		if res.Err != nil {
			return fmt.Errorf("fetching history of %s: %w", args[0], res.Err)
		}

		h := history.History(res.Entities)
		if err := h.Validate(); err != nil {
			return err
		}

		view := buildChangelogView(h, displayLocation(), from)
		if output == "json" {
			return writeJSON(os.Stdout, view)
		}
		writeChangelogText(os.Stdout, view)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	historyCmd.Flags().String("from", "", "Show distance and bearing from this position (lat,lon)")
}
