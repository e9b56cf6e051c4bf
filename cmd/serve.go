package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigtrail/sigtrail/internal/server"
	"github.com/sigtrail/sigtrail/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an in-memory development backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		token, _ := cmd.Flags().GetString("token")
		demo, _ := cmd.Flags().GetBool("demo")

		store := server.NewStore()
		if demo {
			store.SeedDemo()
			utils.Log.Infof("Loaded %d demo signals", store.Len())
		}
		if token == "" {
			utils.Log.Warn("No --token given, requests are not authenticated")
		}

		ctx, stop := interruptContext()
		defer stop()
		return server.New(store, viper.GetString("server.resource"), token).Start(ctx, listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "127.0.0.1:8080", "HTTP listen address")
	serveCmd.Flags().String("token", "", "Token clients must send in the Authorization header")
	serveCmd.Flags().Bool("demo", false, "Seed the store with demo signals")
}
