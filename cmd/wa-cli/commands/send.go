package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sendPhone *string

func init() {
	sendPhone = sendCmd.Flags().String("phone", "", "Send by phone number instead of chat name.")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [--phone <number>] [chat] <text...>",
	Short: "Sends a message to a chat by display name or phone number.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if *sendPhone != "" {
			text := strings.Join(args, " ")
			err := api().SendToPhone(cmd.Context(), *sendPhone, text)
			if err != nil {
				fatal(err)
			}
			fmt.Println("sent")
			return
		}

		if len(args) < 2 {
			fatal(fmt.Errorf("usage: send <chat> <text...>"))
		}
		err := api().Send(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			fatal(err)
		}
		fmt.Println("sent")
	},
}
