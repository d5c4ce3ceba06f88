package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/teamboard/internal/apiclient"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
	"github.com/zhouzirui/teamboard/internal/service/collab"
)

func loginCmd(a *app) *cobra.Command {
	var creds apiclient.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := promptPassword(cmd, &creds.Password); err != nil {
				return err
			}
			res := a.client.Login(cmd.Context(), creds)
			if err := res.Err(); err != nil {
				// A rejected login surfaces as an expired session from the client.
				var apiErr *apiclient.Error
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
					return errors.New("invalid username or password")
				}
				return err
			}
			if !a.session.Authenticated() {
				return errors.New("login succeeded but no token was returned")
			}
			return a.out.message("Logged in as %s", creds.Username)
		},
	}

	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func signupCmd(a *app) *cobra.Command {
	var reg apiclient.Registration

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := promptPassword(cmd, &reg.Password); err != nil {
				return err
			}
			res := a.client.Signup(cmd.Context(), reg)
			if err := res.Err(); err != nil {
				return err
			}
			if res.Message != "" {
				return a.out.message("%s", res.Message)
			}
			return a.out.message("Signed up as %s", reg.Username)
		},
	}

	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Email address")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "Password (read from stdin when omitted)")
	cmd.Flags().StringVar(&reg.Bio, "bio", "", "Short bio")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.client.Logout(cmd.Context())
			if err := res.Err(); err != nil {
				a.logger.Warn("Server logout failed, local session cleared anyway", "error", err)
			}
			return a.out.message("Logged out")
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			me, err := a.svc.Me(cmd.Context())
			if err != nil {
				return err
			}
			me.ProfilePicture = collab.AssetURL(a.cfg.Client.AssetURL, me.ProfilePicture)
			return a.out.render(me, func(tw *tabwriter.Writer) { userTable(tw, me) })
		},
	}
}

func userTable(tw *tabwriter.Writer, u model.User) {
	row(tw, "ID", u.ID)
	row(tw, "USERNAME", u.Username)
	row(tw, "EMAIL", orDash(u.Email))
	row(tw, "BIO", orDash(u.Bio))
	row(tw, "PICTURE", orDash(u.ProfilePicture))
}

func profileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your profile",
	}

	var update collab.ProfileUpdate
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Change username, email or bio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.svc.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return err
			}
			return a.out.render(user, func(tw *tabwriter.Writer) { userTable(tw, user) })
		},
	}
	updateCmd.Flags().StringVar(&update.Username, "username", "", "New username")
	updateCmd.Flags().StringVar(&update.Email, "email", "", "New email")
	updateCmd.Flags().StringVar(&update.Bio, "bio", "", "New bio")

	var change collab.PasswordChange
	passwordCmd := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if change.NewPasswordConfirmation == "" {
				change.NewPasswordConfirmation = change.NewPassword
			}
			if err := a.svc.ChangePassword(cmd.Context(), change); err != nil {
				return err
			}
			return a.out.message("Password changed")
		},
	}
	passwordCmd.Flags().StringVar(&change.CurrentPassword, "current", "", "Current password")
	passwordCmd.Flags().StringVar(&change.NewPassword, "new", "", "New password")
	passwordCmd.Flags().StringVar(&change.NewPasswordConfirmation, "confirm", "", "New password again (defaults to --new)")
	_ = passwordCmd.MarkFlagRequired("current")
	_ = passwordCmd.MarkFlagRequired("new")

	pictureCmd := &cobra.Command{
		Use:   "picture FILE",
		Short: "Upload a profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			user, err := a.svc.UploadProfilePicture(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			user.ProfilePicture = collab.AssetURL(a.cfg.Client.AssetURL, user.ProfilePicture)
			return a.out.render(user, func(tw *tabwriter.Writer) { userTable(tw, user) })
		},
	}

	cmd.AddCommand(updateCmd, passwordCmd, pictureCmd)
	return cmd
}

func passwordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Recover a forgotten password",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "forgot EMAIL",
		Short: "Request password reset instructions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.RequestPasswordReset(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.out.message("If that email exists, reset instructions have been sent")
		},
	})

	var password, confirmation string
	resetCmd := &cobra.Command{
		Use:   "reset TOKEN",
		Short: "Set a new password with a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := promptPassword(cmd, &password); err != nil {
				return err
			}
			if confirmation == "" {
				confirmation = password
			}
			if err := a.svc.ResetPassword(cmd.Context(), args[0], password, confirmation); err != nil {
				return err
			}
			return a.out.message("Password has been reset")
		},
	}
	resetCmd.Flags().StringVarP(&password, "password", "p", "", "New password (read from stdin when omitted)")
	resetCmd.Flags().StringVar(&confirmation, "confirm", "", "New password again (defaults to --password)")

	cmd.AddCommand(resetCmd)
	return cmd
}

// promptPassword reads one line from stdin when *password is empty.
func promptPassword(cmd *cobra.Command, password *string) error {
	if *password != "" {
		return nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}
	*password = strings.TrimRight(line, "\r\n")
	if *password == "" {
		return errors.New("password is required")
	}
	return nil
}
