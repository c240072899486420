package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and save the session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, false)
		if err != nil {
			return err
		}

		reader := bufio.NewReader(os.Stdin)
		username := ""
		if len(args) > 0 {
			username = args[0]
		} else if username, err = prompt(reader, "Username: "); err != nil {
			return err
		}
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("SARABAN_PASSWORD")
		}
		if password == "" {
			if password, err = prompt(reader, "Password: "); err != nil {
				return err
			}
		}

		res, err := a.api.Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		if err := a.sess.SetLogin(res.Token, res.User); err != nil {
			return fmt.Errorf("save session: %w", err)
		}

		name := res.User.Fullname
		if name == "" {
			name = res.User.Username
		}
		fmt.Printf("Logged in as %s (%s) on %s\n", name, res.User.Role, a.sess.ServerURL)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved token, user and read marker",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		if err := a.sess.Clear(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <username> <password> [fullname]",
	Short: "Create a new user account",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		fullname := ""
		if len(args) == 3 {
			fullname = args[2]
		}
		u, err := a.api.Register(cmd.Context(), args[0], args[1], fullname)
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (id %d). Run 'saraban login %s' to sign in.\n", u.Username, u.ID, u.Username)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		u := a.sess.User
		fmt.Printf("%s (%s), role %s, server %s\n", u.Fullname, u.Username, u.Role, a.sess.ServerURL)
		return nil
	},
}

func prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	loginCmd.Flags().StringP("password", "p", "", "Password (default: $SARABAN_PASSWORD or prompt)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(whoamiCmd)
}
