package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"dartdash/internal/actions"
	"dartdash/internal/config"
	"dartdash/internal/format"
	"dartdash/internal/refresh"
	"dartdash/internal/row"
	"dartdash/internal/transport"
	"dartdash/internal/tui"
)

func (a *app) statusCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the active, pending and assigned tables once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			if err := requireScope(cfg); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return printStatus(cmd.Context(), w, cfg, transport.NewClient(cfg), a.isTTY(w), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// tableStatus is one table in --json output.
type tableStatus struct {
	Table string      `json:"table"`
	Count *int        `json:"count"`
	Error string      `json:"error,omitempty"`
	Rows  []rowStatus `json:"rows"`
}

type rowStatus struct {
	Process     string   `json:"process"`
	Host        string   `json:"host"`
	Environment string   `json:"environment,omitempty"`
	Status      string   `json:"status"`
	StatusTier  string   `json:"status_tier"`
	Schedule    string   `json:"schedule"`
	Disabled    bool     `json:"disabled"`
	Description string   `json:"description"`
	Notices     []string `json:"notices,omitempty"`
	Actions     []string `json:"actions"`
}

// statusCells is the formatted form of one row, shared by both outputs.
type statusCells struct {
	status      format.Cell
	schedule    format.Cell
	state       format.Cell
	description []format.Cell
}

func formatRow(r row.Row, catalog *actions.Catalog, now time.Time) statusCells {
	status := format.ActiveStatus(r.Status)
	if r.Context == row.Pending {
		status = format.PendingStatus(r.Status)
	}
	schedule := format.Schedule(r, now)
	return statusCells{
		status:      status,
		schedule:    format.Cell{Text: schedule.Line(), Tier: schedule.Tier},
		state:       format.Disabled(r.Disabled),
		description: format.Description(r, catalog.Ignored(r.Identity)),
	}
}

// fetchAll refreshes every table concurrently and returns the results in
// display order.
func fetchAll(ctx context.Context, cfg config.Config, fetcher refresh.Fetcher) (map[row.Context]refresh.Result, *refresh.Coordinator) {
	var mu sync.Mutex
	results := make(map[row.Context]refresh.Result, len(row.Contexts))
	coordinator := refresh.NewCoordinator(fetcher, cfg.Defaults(), func(res refresh.Result) {
		mu.Lock()
		results[res.Table] = res
		mu.Unlock()
	})
	coordinator.RefreshAll(ctx)
	coordinator.Wait()
	return results, coordinator
}

// printStatus fetches the three tables and writes them to w. A table that
// fails to load is reported in place; the returned error joins every
// table failure.
func printStatus(ctx context.Context, w io.Writer, cfg config.Config, fetcher refresh.Fetcher, styled, asJSON bool) error {
	sets, err := cfg.ActionSets()
	if err != nil {
		return err
	}
	catalog := actions.NewCatalog(sets, cfg.Ignore)
	results, coordinator := fetchAll(ctx, cfg, fetcher)
	now := time.Now()

	var errs []error
	for _, table := range row.Contexts {
		if res := results[table]; res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", table, res.Err))
		}
	}
	if asJSON {
		out := make([]tableStatus, 0, len(row.Contexts))
		for _, table := range row.Contexts {
			out = append(out, jsonTable(results[table], coordinator, catalog, now))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		return errors.Join(errs...)
	}

	render := func(c format.Cell) string { return c.Text }
	if styled {
		styles := tui.TierStyles()
		render = func(c format.Cell) string { return styles[c.Tier].Render(c.Text) }
	}
	fmt.Fprintln(w, scopeTitle(cfg))
	for _, table := range row.Contexts {
		fmt.Fprintln(w)
		writeTable(w, results[table], coordinator, catalog, now, render)
	}
	return errors.Join(errs...)
}

func scopeTitle(cfg config.Config) string {
	if cfg.HostScoped() {
		return "host " + cfg.Scope.Host
	}
	return "process " + cfg.Scope.Process
}

func tableTitle(table row.Context, coordinator *refresh.Coordinator) string {
	name := table.Title()
	n, ok := coordinator.Count(table)
	switch {
	case !ok:
		return fmt.Sprintf("%s (%s)", name, format.Placeholder)
	case table == row.Pending:
		return fmt.Sprintf("%s (%s)", name, format.DangerCount(n).Text)
	default:
		return fmt.Sprintf("%s (%d)", name, n)
	}
}

func writeTable(w io.Writer, res refresh.Result, coordinator *refresh.Coordinator, catalog *actions.Catalog, now time.Time, render func(format.Cell) string) {
	fmt.Fprintln(w, tableTitle(res.Table, coordinator))
	if res.Err != nil {
		fmt.Fprintln(w, render(format.Cell{Text: "failed to load: " + res.Err.Error(), Tier: format.TierCritical}))
		return
	}
	if len(res.Rows) == 0 {
		fmt.Fprintln(w, "  no "+res.Table.String()+" processes")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PROCESS", "HOST", "ENV", "STATUS", "SCHEDULE", "STATE", "DESCRIPTION")
	for _, r := range res.Rows {
		cells := formatRow(r, catalog, now)
		described := make([]string, 0, len(cells.description))
		for _, c := range cells.description {
			described = append(described, render(c))
		}
		t.Row(
			format.NoWrap(r.Identity).Text,
			format.NoWrap(r.Host).Text,
			format.NoWrap(r.Environment).Text,
			render(cells.status),
			render(cells.schedule),
			render(cells.state),
			strings.Join(described, "; "),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func jsonTable(res refresh.Result, coordinator *refresh.Coordinator, catalog *actions.Catalog, now time.Time) tableStatus {
	out := tableStatus{Table: res.Table.String(), Rows: []rowStatus{}}
	if n, ok := coordinator.Count(res.Table); ok {
		out.Count = &n
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
		return out
	}
	for _, r := range res.Rows {
		cells := formatRow(r, catalog, now)
		rs := rowStatus{
			Process:     r.Identity,
			Host:        r.Host,
			Environment: r.Environment,
			Status:      cells.status.Text,
			StatusTier:  cells.status.Tier.String(),
			Schedule:    cells.schedule.Text,
			Disabled:    r.Disabled,
			Description: cells.description[0].Text,
			Actions:     []string{},
		}
		for _, c := range cells.description[1:] {
			rs.Notices = append(rs.Notices, c.Text)
		}
		for _, k := range catalog.For(r.Context, r.Identity) {
			rs.Actions = append(rs.Actions, string(k))
		}
		out.Rows = append(out.Rows, rs)
	}
	return out
}
