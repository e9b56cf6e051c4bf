package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigtrail/sigtrail/internal/utils"
	"github.com/sigtrail/sigtrail/pkg/api"
	"github.com/sigtrail/sigtrail/pkg/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the backend address and token for later commands",
	RunE: func(cmd *cobra.Command, _ []string) error {
		address, _ := cmd.Flags().GetString("address")
		token, _ := cmd.Flags().GetString("token")
		verify, _ := cmd.Flags().GetBool("verify")

		addr, err := normalizeAddress(address)
		if err != nil {
			return err
		}
		if token == "" {
			return fmt.Errorf("--token is required")
		}

		store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		if err := store.Save(ctx, addr, token); err != nil {
			return err
		}

		if verify {
			client, err := newHistoryClient(store, nil)
			if err != nil {
				return err
			}
			if res := client.FetchAll(ctx); res.Err != nil {
				if api.IsUnauthorized(res.Err) {
					return fmt.Errorf("backend rejected the token, session cleared")
				}
				utils.Log.Warnf("Saved session, but the backend could not be reached: %v", res.Err)
				return nil
			}
		}

		fmt.Printf("Logged in to %s\n", addr)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.RemoveAddress(); err != nil {
			return err
		}
		if err := store.RemoveToken(); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		info, err := store.Load(context.Background())
		if errors.Is(err, session.ErrNoSession) {
			fmt.Println("Not logged in")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Address: %s\nToken:   %s\n", orNone(info.Address), maskToken(info.Token))
		if !info.UpdatedAt.IsZero() {
			fmt.Printf("Updated: %s\n", info.UpdatedAt.In(displayLocation()).Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	loginCmd.Flags().StringP("address", "a", "", "Backend address, e.g. https://signals.example.org")
	loginCmd.Flags().StringP("token", "t", "", "Access token")
	loginCmd.Flags().Bool("verify", true, "Check the token against the backend")
	loginCmd.MarkFlagRequired("address")
}

func maskToken(token string) string {
	switch {
	case token == "":
		return "(none)"
	case len(token) <= 8:
		return "********"
	default:
		return token[:4] + "…" + token[len(token)-4:]
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
