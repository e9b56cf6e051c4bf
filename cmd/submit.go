package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigtrail/sigtrail/pkg/history"
)

var submitCmd = &cobra.Command{
	Use:   "submit [file]",
	Short: "Submit a signal revision read from a JSON file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")

		var (
			data []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		snap, err := history.ParseSnapshot(data)
		if err != nil {
			return err
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

		ctx := context.Background()
		if token == "" {
			if !client.Submit(ctx, snap) {
				return fmt.Errorf("submit failed: %w", client.State().Err)
			}
			if stored := client.State().Entity; stored != nil {
				return writeJSON(os.Stdout, stored)
			}
			fmt.Println("Submitted")
			return nil
		}

		stored := client.SubmitWithToken(ctx, snap, token)
		if stored == nil {
			return fmt.Errorf("submit failed: %w", client.State().Err)
		}
		return writeJSON(os.Stdout, stored)
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringP("token", "t", "", "Send with this token instead of the session token")
}
