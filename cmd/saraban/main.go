package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"saraban/internal/client"
	"saraban/internal/session"
)

var rootCmd = &cobra.Command{
	Use:           "saraban",
	Short:         "Project and document tracking client",
	Long:          `saraban talks to a Saraban server: projects, history notes, notifications and dashboard stats.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "Server URL (overrides the saved session)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

// app bundles the session and an API client built from it.
type app struct {
	sess *session.Session
	api  *client.Client
}

func loadApp(cmd *cobra.Command, requireLogin bool) (*app, error) {
	sess, err := session.Load()
	if err != nil {
		return nil, err
	}
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		sess.ServerURL = server
	}
	if requireLogin && !sess.LoggedIn() {
		return nil, errors.New("not logged in, run 'saraban login' first")
	}
	return &app{sess: sess, api: client.New(sess.ServerURL, sess.Token)}, nil
}

func describeError(err error) string {
	switch {
	case errors.Is(err, client.ErrUnauthorized), errors.Is(err, client.ErrForbidden):
		return "Error: " + err.Error() + "\nYour session is missing or expired. Run 'saraban login'."
	case errors.Is(err, client.ErrConflict):
		return "Conflict: " + err.Error() + "\nRefresh and try again."
	}
	return "Error: " + err.Error()
}
