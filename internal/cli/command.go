package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dartdash/internal/actions"
	"dartdash/internal/config"
	"dartdash/internal/dispatch"
	"dartdash/internal/refresh"
	"dartdash/internal/row"
	"dartdash/internal/transport"
)

func (a *app) commandCommand() *cobra.Command {
	kinds := make([]string, 0, len(actions.Kinds))
	for _, k := range actions.Kinds {
		if k != actions.Assign {
			kinds = append(kinds, string(k))
		}
	}
	return &cobra.Command{
		Use:       "command KIND",
		Short:     "Send one lifecycle command and print the refreshed counts",
		Long:      "Send one lifecycle command to --host for --process (and --environment).\nKinds: " + strings.Join(kinds, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			kind, err := actions.ParseKind(args[0])
			if err != nil {
				return err
			}
			if kind == actions.Assign {
				return errors.New("use the assign subcommand to assign a process")
			}
			req := commandRequest(kind, cfg.Scope)
			if !kind.HostLevel() && actions.NewCatalog(nil, cfg.Ignore).Ignored(req.Identity) {
				return fmt.Errorf("%s is not managed from the dashboard", req.Identity)
			}
			return sendAndReport(cmd, cfg, req)
		},
	}
}

func commandRequest(kind actions.Kind, scope config.Scope) actions.Request {
	req := actions.Request{Kind: kind, Host: scope.Host}
	if !kind.HostLevel() {
		req.Identity = scope.Process
		req.Environment = scope.Environment
	}
	return req
}

// sendAndReport dispatches req, waits for the follow-up refresh and
// prints the outcome. A failed command is returned as the error.
func sendAndReport(cmd *cobra.Command, cfg config.Config, req actions.Request) error {
	client := transport.NewClient(cfg)
	coordinator := refresh.NewCoordinator(client, cfg.Defaults(), nil)
	out := dispatch.New(client, coordinator, nil).Dispatch(cmd.Context(), req)
	if !out.OK {
		return errors.New(out.Message.Body)
	}
	coordinator.Wait()

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s: %s\n", out.Message.Title, out.Message.Body)
	if requireScope(cfg) != nil {
		return nil
	}
	counts := make([]string, 0, len(row.Contexts))
	for _, table := range row.Contexts {
		counts = append(counts, tableTitle(table, coordinator))
	}
	fmt.Fprintln(w, strings.Join(counts, "  "))
	return nil
}
