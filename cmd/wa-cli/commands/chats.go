package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(chatsCmd)
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Prints the chat list, most recent first.",
	Run: func(cmd *cobra.Command, args []string) {
		chats, err := api().Chats(cmd.Context())
		if err != nil {
			fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Chat", "Unread", "Time", "Preview"})

		for _, c := range chats {
			t.AppendRow(table.Row{c.Name, c.Unread, c.TimeLabel, c.Preview})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
