package commands

import (
	"context"
	"fmt"
	"os"
	"wabrowser/client"

	"github.com/spf13/cobra"
)

var serverURL *string

var rootCmd = &cobra.Command{
	Use:   "wa-cli",
	Short: "wa-cli drives a wa-server instance from the terminal.",
}

func init() {
	serverURL = rootCmd.PersistentFlags().String(
		"server", "http://localhost:8080", "Base URL of the wa-server to talk to.",
	)
}

func api() *client.Client {
	return client.New(*serverURL)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
