// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/toeirei/usermgr/internal/i18n"
	"github.com/toeirei/usermgr/internal/model"
)

func newUserCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users (list, show, create, update, delete)",
		Long: `The 'user' command group covers the admin user endpoints:
  - list users page by page, optionally filtered by a search term
  - show a single user
  - create, update and delete users`,
	}
	cmd.AddCommand(
		newUserListCmd(o),
		newUserShowCmd(o),
		newUserCreateCmd(o),
		newUserUpdateCmd(o),
		newUserDeleteCmd(o),
	)
	return cmd
}

func newUserListCmd(o *rootOptions) *cobra.Command {
	var p model.UserListParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.API.ListUsers(cmd.Context(), p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(l.Data) == 0 {
				fmt.Fprintln(out, i18n.T("cli.no_users"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tSTATUS\tROLE\tCREATED")
			for _, u := range l.Data {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					u.ID, u.Username, u.Email, statusLabel(u), roleLabel(u), formatTime(u.CreatedAt.Time))
			}
			w.Flush()
			fmt.Fprintln(out, i18n.T("cli.total", l.Total))
			return nil
		},
	}
	cmd.Flags().IntVar(&p.Page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&p.Limit, "limit", 100, "users per page")
	cmd.Flags().StringVar(&p.Search, "search", "", "filter by username or email")
	return cmd
}

func newUserShowCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			u, err := a.API.GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func newUserCreateCmd(o *rootOptions) *cobra.Command {
	var in model.UserCreate
	var inactive bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				var err error
				if in.Password, err = o.promptPassword(cmd, i18n.T("cli.prompt_password")); err != nil {
					return err
				}
			}
			active := !inactive
			in.IsActive = &active

			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			u, err := a.API.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.user_created", u.Username, u.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the user disabled")
	return cmd
}

func newUserUpdateCmd(o *rootOptions) *cobra.Command {
	var email, username, password string
	var active, inactive bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update selected fields of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if active && inactive {
				return fmt.Errorf("--active and --inactive are mutually exclusive")
			}

			var in model.UserUpdate
			flags := cmd.Flags()
			if flags.Changed("email") {
				in.Email = &email
			}
			if flags.Changed("username") {
				in.Username = &username
			}
			if flags.Changed("password") {
				in.Password = &password
			}
			if active || inactive {
				v := active
				in.IsActive = &v
			}
			if in.Empty() {
				return fmt.Errorf("nothing to update: pass at least one of --email, --username, --password, --active, --inactive")
			}

			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			u, err := a.API.UpdateUser(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.user_updated", u.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&username, "username", "", "new username")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().BoolVar(&active, "active", false, "enable the user")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "disable the user")
	return cmd
}

func newUserDeleteCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := o.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.API.DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.user_deleted", id))
			return nil
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

func printUser(out io.Writer, u model.User) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", u.ID)
	fmt.Fprintf(w, "Username:\t%s\n", u.Username)
	fmt.Fprintf(w, "Email:\t%s\n", u.Email)
	fmt.Fprintf(w, "Status:\t%s\n", statusLabel(u))
	fmt.Fprintf(w, "Role:\t%s\n", roleLabel(u))
	fmt.Fprintf(w, "Created:\t%s\n", formatTime(u.CreatedAt.Time))
	if u.UpdatedAt != nil {
		fmt.Fprintf(w, "Updated:\t%s\n", formatTime(u.UpdatedAt.Time))
	}
	w.Flush()
}

func statusLabel(u model.User) string {
	if u.IsActive {
		return i18n.T("cli.active")
	}
	return i18n.T("cli.inactive")
}

func roleLabel(u model.User) string {
	if u.IsAdmin {
		return i18n.T("cli.admin")
	}
	return i18n.T("cli.user")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
