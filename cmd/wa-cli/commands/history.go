package commands

import (
	"os"
	"wabrowser/lib/scrapers/whatsapp"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyN *int
var historyArchive *bool

func init() {
	historyN = historyCmd.Flags().IntP("limit", "n", 20, "Number of messages to fetch.")
	historyArchive = historyCmd.Flags().Bool("archive", false, "Read from the archive instead of scraping live.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <chat> [-n <count>] [--archive]",
	Short: "Prints the last messages of a chat.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var messages []whatsapp.Message
		var err error
		if *historyArchive {
			messages, err = api().Archive(cmd.Context(), args[0], *historyN)
		} else {
			messages, err = api().History(cmd.Context(), args[0], *historyN)
		}
		if err != nil {
			fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Sender", "Message"})

		for _, m := range messages {
			text := m.Text
			if m.Attachment != nil {
				text = "[" + m.Attachment.Kind + "] " + m.Attachment.Name
			}
			t.AppendRow(table.Row{m.TimeLabel, m.Sender, text})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
