package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(logoutCmd)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logs the server's session out of WhatsApp Web.",
	Run: func(cmd *cobra.Command, args []string) {
		err := api().Logout(cmd.Context())
		if err != nil {
			fatal(err)
		}
		fmt.Println("logged out")
	},
}
