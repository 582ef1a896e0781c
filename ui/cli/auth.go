// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/toeirei/usermgr/internal/i18n"
	"github.com/toeirei/usermgr/internal/model"
)

func newLoginCmd(o *rootOptions) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if username == "" {
				if username, err = o.promptLine(cmd, i18n.T("cli.prompt_username")); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = o.promptPassword(cmd, i18n.T("cli.prompt_password")); err != nil {
					return err
				}
			}

			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.Login(cmd.Context(), model.Credentials{Username: username, Password: password}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.login_success", username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.logout_success"))
			return nil
		},
	}
}

func newStatusCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if !a.Session.IsLoggedIn() {
				fmt.Fprintln(out, i18n.T("cli.status_logged_out"))
				return nil
			}
			fmt.Fprintln(out, i18n.T("cli.status_logged_in"))
			if c, ok := a.Session.Claims(); ok {
				if c.Subject != "" {
					fmt.Fprintln(out, i18n.T("cli.status_subject", c.Subject))
				}
				if !c.ExpiresAt.IsZero() {
					fmt.Fprintln(out, i18n.T("cli.status_expires", c.ExpiresAt.Local().Format(time.RFC3339)))
				}
			}
			return nil
		},
	}
}

func newWhoamiCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user owning the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			u, err := a.API.Me(cmd.Context())
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func newRegisterCmd(o *rootOptions) *cobra.Command {
	var in model.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account through self-service sign-up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				var err error
				if in.Password, err = o.promptPassword(cmd, i18n.T("cli.prompt_password")); err != nil {
					return err
				}
			}
			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			u, err := a.API.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.register_success", u.Username, u.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newTokenCmd(o *rootOptions) *cobra.Command {
	var copyToClipboard bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tok := a.Session.Token()
			if tok == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("cli.no_token"))
				return nil
			}
			if copyToClipboard {
				if err := clipboard.WriteAll(tok); err != nil {
					return fmt.Errorf("copy token: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.token_copied"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "copy to the clipboard instead of printing")
	return cmd
}
