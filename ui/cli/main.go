// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toeirei/usermgr/buildvars"
	"github.com/toeirei/usermgr/internal/app"
	"github.com/toeirei/usermgr/internal/config"
	"github.com/toeirei/usermgr/internal/gateway"
	"github.com/toeirei/usermgr/internal/i18n"
	"github.com/toeirei/usermgr/internal/logging"
	"github.com/toeirei/usermgr/internal/notify"
	"github.com/toeirei/usermgr/internal/tui"
)

var version = "dev"   // set by the linker
var gitCommit = "dev" // short commit SHA, set at build time
var buildDate = ""    // RFC3339, set at build time

// rootOptions is the state shared by one command tree.
type rootOptions struct {
	cfgFile string
	verbose bool
	cfg     config.Config
	stdin   *bufio.Reader
}

// Execute runs the CLI. Gateway failures have already been shown to the user
// by the notifier; anything else is logged here.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	var gerr *gateway.Error
	if err != nil && !errors.As(err, &gerr) {
		logging.Errorf("%v", err)
	}
	return err
}

// NewRootCmd builds a fresh command tree. Tests call it once per case.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "usermgr",
		Short: "usermgr is a console for the user management service.",
		Long: `usermgr talks to the user management REST API: sign in, then list,
create, update and delete users. The session token is kept in local
storage between runs.

Running without a subcommand will launch the interactive TUI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runTUI(cmd)
		},
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&o.cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "", `message language ("zh", "en")`)
	cmd.PersistentFlags().String("api.base_url", "", "API base URL (e.g. http://localhost:8000/api/v1)")
	cmd.PersistentFlags().String("storage.type", "", "session storage (file, sqlite, postgres, mysql, redis, memory)")
	cmd.PersistentFlags().String("storage.dsn", "", "session storage location or DSN")

	cmd.AddCommand(
		newLoginCmd(o),
		newLogoutCmd(o),
		newStatusCmd(o),
		newWhoamiCmd(o),
		newRegisterCmd(o),
		newTokenCmd(o),
		newUserCmd(o),
		newDevServerCmd(o),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	if o.verbose {
		logging.SetDebug(true)
	}
	if o.cfgFile != "" {
		if _, err := os.Stat(o.cfgFile); err != nil {
			return fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
	}

	cfg, err := config.Load(cmd, o.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if o.cfgFile == "" {
		if path, wrote, err := config.EnsureDefaultFile(); err != nil {
			logging.Warnf("could not write default config file: %v", err)
		} else if wrote {
			logging.Infof("wrote default config to %s", path)
		}
	}
	o.cfg = cfg
	i18n.Init(cfg.Language)
	return nil
}

// openApp wires a runtime that reports failures on the command's error
// stream.
func (o *rootOptions) openApp(cmd *cobra.Command) (*app.App, error) {
	return app.New(cmd.Context(), o.cfg, app.Options{
		Notifier:  notify.NewWriter(cmd.ErrOrStderr()),
		Navigator: notify.LoginHint{W: cmd.ErrOrStderr()},
	})
}

func (o *rootOptions) runTUI(cmd *cobra.Command) error {
	toasts := notify.NewQueue(16)
	routes := notify.NewRoutes(4)
	a, err := app.New(cmd.Context(), o.cfg, app.Options{Notifier: toasts, Navigator: routes})
	if err != nil {
		return err
	}
	defer a.Close()
	// Logging would draw over the alternate screen.
	logging.SetOutput(io.Discard)
	defer logging.SetOutput(os.Stderr)
	return tui.Run(cmd.Context(), tui.NewService(a), o.cfg.App.Title, toasts.C(), routes.C())
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out = out + " (" + c + ")"
	}
	if d != "" {
		out = out + " built: " + d
	}
	return out
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		// version needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}
}

// resolveBuildVersion computes the best-available version, commit and build
// date. A nil info reads the running binary's build info.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}
	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		if resolvedVersion == "dev" || resolvedVersion == "(devel)" {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/toeirei/usermgr" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" && resolvedCommit == "dev" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" && resolvedDate == "" {
					resolvedDate = s.Value
				}
			}
		}
	}
	if (resolvedVersion == "dev" || resolvedVersion == "(devel)") && resolvedCommit != "" && resolvedCommit != "dev" {
		resolvedVersion = resolvedCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
