package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"saraban/internal/client"
	"saraban/internal/tui"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"n"},
	Short:   "Show recent activity and the unread count",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, tracker, err := loadTracker(cmd)
		if err != nil {
			return err
		}
		defer tracker.Close()

		if err := tracker.Fetch(cmd.Context()); err != nil {
			return err
		}
		snap := tracker.Snapshot()
		fmt.Printf("%d unread (server %s)\n\n", snap.Unread, a.sess.ServerURL)
		for _, l := range snap.Notifications {
			marker := "  "
			if snap.IsUnread(l.ID) {
				marker = "* "
			}
			fmt.Println(marker + formatLog(l))
		}

		if mark, _ := cmd.Flags().GetBool("mark-read"); mark {
			if err := tracker.MarkAsRead(); err != nil {
				return err
			}
			fmt.Println("\nMarked as read.")
		}
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Mark everything currently listed as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, tracker, err := loadTracker(cmd)
		if err != nil {
			return err
		}
		defer tracker.Close()
		if err := tracker.Fetch(cmd.Context()); err != nil {
			return err
		}
		if err := tracker.MarkAsRead(); err != nil {
			return err
		}
		fmt.Println("All caught up.")
		return nil
	},
}

var notificationsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view that polls for new activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, tracker, err := loadTracker(cmd)
		if err != nil {
			return err
		}
		defer tracker.Close()
		interval, _ := cmd.Flags().GetDuration("interval")

		if plain, _ := cmd.Flags().GetBool("plain"); plain {
			return followPlain(cmd, tracker, interval)
		}
		return tui.Run(cmd.Context(), tracker, interval)
	},
}

// followPlain prints the unread count whenever it changes, for terminals
// without a TUI.
func followPlain(cmd *cobra.Command, tracker *client.Tracker, interval time.Duration) error {
	last := -1
	tracker.OnChange(func(s client.Snapshot) {
		if s.Unread == last {
			return
		}
		last = s.Unread
		fmt.Printf("%s  %d unread\n", time.Now().Format("15:04:05"), s.Unread)
	})
	tracker.Run(cmd.Context(), interval)
	return nil
}

func loadTracker(cmd *cobra.Command) (*app, *client.Tracker, error) {
	a, err := loadApp(cmd, true)
	if err != nil {
		return nil, nil, err
	}
	log := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		if dev, err := zap.NewDevelopment(); err == nil {
			log = dev
		}
	}
	tracker, err := client.NewTracker(a.api, a.sess, log)
	if err != nil {
		return nil, nil, err
	}
	return a, tracker, nil
}

func init() {
	notificationsCmd.Flags().Bool("mark-read", false, "Mark the listed entries as read")
	notificationsCmd.PersistentFlags().BoolP("verbose", "v", false, "Log fetch errors to stderr")
	notificationsWatchCmd.Flags().Duration("interval", client.DefaultPollInterval, "Poll interval")
	notificationsWatchCmd.Flags().Bool("plain", false, "Print unread count changes instead of the live view")

	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsWatchCmd)
	rootCmd.AddCommand(notificationsCmd)
}
