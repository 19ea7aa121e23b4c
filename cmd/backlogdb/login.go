package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/varoOP/backlogdb/internal/app"
	"github.com/varoOP/backlogdb/internal/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and remember the session",
	Long: `Sign in with email and password. The session is stored in the local database
and restored by every later command until logout.

The password is read from --password or prompted on stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordOf(cmd)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			s, err := a.Login(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", displayName(s.User))
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			s, err := a.Session()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:      %s\n", s.User.Name)
			fmt.Fprintf(out, "Email:     %s\n", s.User.Email)
			if s.User.Gamertag != "" {
				fmt.Fprintf(out, "Gamertag:  %s\n", s.User.Gamertag)
			}
			if s.User.Xuid != "" {
				fmt.Fprintf(out, "Xuid:      %s\n", s.User.Xuid)
			}
			fmt.Fprintf(out, "Since:     %s\n", s.CreatedAt.Format("02/01/2006 15:04"))
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create a local account (sqlite backend only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordOf(cmd)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		gamertag, _ := cmd.Flags().GetString("gamertag")
		xuid, _ := cmd.Flags().GetString("xuid")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			u := domain.User{Email: args[0], Name: name, Gamertag: gamertag, Xuid: xuid}
			id, err := a.Register(ctx, u, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %d for %s\n", id, args[0])
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().String("password", "", "password (prompted when empty)")

	registerCmd.Flags().String("password", "", "password (prompted when empty)")
	registerCmd.Flags().String("name", "", "display name")
	registerCmd.Flags().String("gamertag", "", "Xbox gamertag")
	registerCmd.Flags().String("xuid", "", "Xbox user id used to fetch play history")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd)
}

func passwordOf(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := readLine(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func displayName(u domain.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
