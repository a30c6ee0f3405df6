package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"wabrowser/services/watcher"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Streams new chat activity until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		err := api().Watch(ctx, func(ev watcher.Event) {
			if ev.Unread > 0 {
				fmt.Printf("[%s] %s (%d unread): %s\n", ev.TimeLabel, ev.Chat, ev.Unread, ev.Preview)
				return
			}
			fmt.Printf("[%s] %s: %s\n", ev.TimeLabel, ev.Chat, ev.Preview)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			fatal(err)
		}
	},
}
