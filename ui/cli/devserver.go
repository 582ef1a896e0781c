// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toeirei/usermgr/internal/devproxy"
	"github.com/toeirei/usermgr/internal/i18n"
)

func newDevServerCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run the development proxy (/api -> backend)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := devproxy.New(o.cfg.DevServer.Listen, o.cfg.DevServer.Target)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.devserver_listening", o.cfg.DevServer.Listen, s.Target()))
			return s.Run(cmd.Context())
		},
	}
	cmd.Flags().String("devserver.listen", "", "listen address (default :3000)")
	cmd.Flags().String("devserver.target", "", "backend address (default http://localhost:8000)")
	return cmd
}
