package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print the raw response for one signal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
			return res.Err
		}

		var out bytes.Buffer
		if err := json.Indent(&out, res.Data, "", "  "); err != nil {
			out.Reset()
			out.Write(res.Data)
		}
		fmt.Println(out.String())
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the latest revision of every signal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		client, err := newHistoryClient(store, nil)
		if err != nil {
			return err
		}

		res := client.FetchAll(context.Background())
		if res.Err != nil {
			return res.Err
		}
		if asJSON {
			return writeJSON(os.Stdout, res.Entities)
		}
		if len(res.Entities) == 0 {
			fmt.Println("No signals")
			return nil
		}
		writeSignalTable(os.Stdout, res.Entities, displayLocation())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd, listCmd)
	listCmd.Flags().Bool("json", false, "Print JSON instead of a table")
}
