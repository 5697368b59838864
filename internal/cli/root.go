// Package cli is the dartdash command line: the interactive dashboard as
// the root command plus one-shot status, command, assign and suggest
// subcommands that reuse the same core packages.
package cli

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"sync"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"dartdash/internal/config"
	"dartdash/internal/transport"
	"dartdash/internal/tui"
)

// app carries state shared by every subcommand.
type app struct {
	flags config.Flags
	// isTTY reports whether w is an interactive terminal.
	isTTY func(w io.Writer) bool
	// runTUI is replaced in tests.
	runTUI func(ctx context.Context, deps tui.Deps) error
}

func terminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{isTTY: terminalWriter, runTUI: tui.Run}
	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dartdash",
		Short: "Terminal dashboard for supervised processes",
		Long: `dartdash shows the active, pending and assigned processes of one host
(--host) or one process (--process), and sends lifecycle commands and
assignments to the dashboard API.

Without a terminal on stdout it prints the status tables instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// glog reads its settings from the go flag set
			return flag.CommandLine.Parse(nil)
		},
		RunE: a.runDashboard,
	}
	a.flags.Register(cmd.PersistentFlags())
	goFlags.Do(func() {
		pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	})

	cmd.AddCommand(
		a.statusCommand(),
		a.commandCommand(),
		a.assignCommand(),
		a.suggestCommand(),
	)
	return cmd
}

var goFlags sync.Once

func (a *app) load(cmd *cobra.Command) (config.Config, error) {
	return a.flags.LoadWithFlags(cmd.Flags())
}

var errNoScope = errors.New("a page scope is required: pass --host or --process")

func requireScope(cfg config.Config) error {
	if cfg.Scope.Host == "" && cfg.Scope.Process == "" {
		return errNoScope
	}
	return nil
}

func (a *app) runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := a.load(cmd)
	if err != nil {
		return err
	}
	if err := requireScope(cfg); err != nil {
		return err
	}
	client := transport.NewClient(cfg)
	if !a.isTTY(cmd.OutOrStdout()) {
		glog.V(1).Info("stdout is not a terminal, printing status")
		return printStatus(cmd.Context(), cmd.OutOrStdout(), cfg, client, false, false)
	}
	quietStderr(cmd)
	return a.runTUI(cmd.Context(), tui.Deps{Config: cfg, Backend: client})
}

// quietStderr keeps glog off the terminal while the dashboard owns it,
// unless the operator asked for a threshold explicitly.
func quietStderr(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("stderrthreshold"); f != nil && f.Changed {
		return
	}
	if err := flag.Set("stderrthreshold", "FATAL"); err != nil {
		glog.Warningf("set stderrthreshold: %v", err)
	}
}
