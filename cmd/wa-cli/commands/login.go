package commands

import (
	"context"
	"log/slog"
	"time"
	"wabrowser/lib/browser"
	"wabrowser/lib/scrapers/whatsapp"
	"wabrowser/lib/serviceutil"

	"github.com/spf13/cobra"
)

var loginUserDataDir *string
var loginChromePath *string
var loginTimeout *int

func init() {
	loginUserDataDir = loginCmd.Flags().String("user-data", "user_data", "Browser profile directory to log into.")
	loginChromePath = loginCmd.Flags().String("chrome", "", "Path to the chrome binary.")
	loginTimeout = loginCmd.Flags().Int("timeout", 5, "Minutes to wait for the QR scan.")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login [--user-data <dir>]",
	Short: "Opens a headful browser so the QR code can be scanned into a profile.",
	Run: func(cmd *cobra.Command, args []string) {
		session, err := browser.Launch(cmd.Context(), browser.Options{
			UserDataDir: *loginUserDataDir,
			Headless:    false,
			ExecPath:    *loginChromePath,
		})
		if err != nil {
			serviceutil.Fatal("failed to launch browser", err)
		}
		defer session.Close()

		wa := whatsapp.NewClient(session, whatsapp.ClientOptions{})

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(*loginTimeout)*time.Minute)
		defer cancel()
		err = wa.Login(ctx)
		if err != nil {
			serviceutil.Fatal("failed to log into whatsapp web", err)
		}
		slog.Info("logged in, profile saved", "user_data", *loginUserDataDir)
	},
}
