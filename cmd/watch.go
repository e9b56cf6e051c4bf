package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sigtrail/sigtrail/internal/utils"
	"github.com/sigtrail/sigtrail/pkg/api"
	"github.com/sigtrail/sigtrail/pkg/history"
	"github.com/sigtrail/sigtrail/pkg/metrics"
)

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Poll a signal and print each new revision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		if interval < time.Second {
			return fmt.Errorf("--interval must be at least 1s")
		}

		store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := prometheus.NewRegistry()
		m, err := metrics.NewClientMetrics(metrics.Options{Registerer: reg})
		if err != nil {
			return err
		}

		client, err := newHistoryClient(store, m)
		if err != nil {
			return err
		}

		ctx, stop := interruptContext()
		defer stop()

		if metricsAddr != "" {
			srv := &http.Server{
				Addr:              metricsAddr,
				Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				utils.Log.Infof("Serving metrics on %s", metricsAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					utils.Log.Errorf("Metrics server: %v", err)
				}
			}()
			defer srv.Close()
		}

		return watchSignal(ctx, client, args[0], interval)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", 30*time.Second, "Polling interval")
	watchCmd.Flags().String("metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9100)")
}

// watchSignal prints the newest changelog entry whenever the newest
// revision changes. It stops when the session expires or ctx is done.
func watchSignal(ctx context.Context, client *historyClient, id string, interval time.Duration) error {
	loc := displayLocation()
	var lastSeen string

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res := client.Fetch(ctx, id)
		switch {
		case api.IsUnauthorized(res.Err):
			return res.Err
		case res.Err != nil:
			utils.Log.Warnf("Polling %s: %v", id, res.Err)
		default:
			entries := history.BuildChangelog(res.Entities)
			if len(entries) > 0 {
				newest := entries[0].Newer.LastUpdateRaw()
				if newest != lastSeen {
					lastSeen = newest
					writeEntry(os.Stdout, history.Render(entries[0], loc))
					fmt.Println()
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
