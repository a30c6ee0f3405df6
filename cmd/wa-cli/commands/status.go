package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Reports whether the server's session is logged in.",
	Run: func(cmd *cobra.Command, args []string) {
		status, err := api().Status(cmd.Context())
		if err != nil {
			fatal(err)
		}
		if status.LoggedIn {
			fmt.Println("logged in")
		} else {
			fmt.Println("logged out")
		}
	},
}
