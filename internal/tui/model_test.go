package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dartdash/internal/actions"
	"dartdash/internal/config"
	"dartdash/internal/refresh"
	"dartdash/internal/row"
	"dartdash/internal/transport"
	"dartdash/internal/wizard"
)

type fakeBackend struct {
	mu          sync.Mutex
	rows        map[row.Context][]row.Raw
	commands    []actions.Request
	commandErr  error
	suggestions []string
	fetches     int
}

func (f *fakeBackend) FetchRows(ctx context.Context, table row.Context) ([]row.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.rows[table], nil
}

func (f *fakeBackend) SendCommand(ctx context.Context, req actions.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, req)
	return f.commandErr
}

func (f *fakeBackend) Suggest(ctx context.Context, q transport.SuggestionQuery) ([]string, error) {
	return f.suggestions, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, scope config.Scope) (model, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{rows: map[row.Context][]row.Raw{
		row.Active: {
			{Name: "web", Environment: "prod", State: "RUNNING"},
			{Name: "dart-agent", State: "RUNNING", Daemon: true},
		},
		row.Pending: {{Name: "worker", Status: "started"}},
	}}
	cfg := config.Default()
	cfg.Scope = scope
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m, err := newModel(ctx, Deps{Config: cfg, Backend: backend, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return m, backend
}

func step(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out, cmd
}

func press(t *testing.T, m model, keys ...string) model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = step(t, m, msg)
	}
	return m
}

// load runs a full refresh and feeds every table result into the model.
func load(t *testing.T, m model) model {
	t.Helper()
	m.coordinator.RefreshAll(m.ctx)
	m.coordinator.Wait()
	for range row.Contexts {
		msg := <-m.inbound
		m, _ = step(t, m, msg)
	}
	return m
}

func TestTablesLoadWithCounts(t *testing.T) {
	m, _ := newTestModel(t, config.Scope{Host: "h1"})
	assert.Equal(t, "Active (-)", m.tabLabel(tabActive))

	m = load(t, m)
	assert.Equal(t, "Active (2)", m.tabLabel(tabActive))
	assert.Equal(t, "Pending (1 !)", m.tabLabel(tabPending))
	assert.Equal(t, "Assigned (0)", m.tabLabel(tabAssigned))

	r, ok := m.selectedRow()
	require.True(t, ok)
	assert.Equal(t, "web", r.Identity)
	assert.Equal(t, "h1", r.Host)
	assert.True(t, strings.HasPrefix(m.statusLine, "ready"))
}

func TestIgnoredRowHasNoMenu(t *testing.T) {
	m, _ := newTestModel(t, config.Scope{Host: "h1"})
	m = load(t, m)
	m = press(t, m, "down", "a")
	assert.Nil(t, m.menu)
	assert.Contains(t, m.statusLine, "dart-agent")
}

func TestMenuDispatchShowsMessageAndRefreshes(t *testing.T) {
	m, backend := newTestModel(t, config.Scope{Host: "h1"})
	m = load(t, m)
	m = press(t, m, "enter")
	require.NotNil(t, m.menu)
	assert.Equal(t, []actions.Kind{actions.Start, actions.Stop, actions.Restart, actions.Enable, actions.Disable}, m.menu.kinds)

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Nil(t, m.menu)
	assert.Equal(t, 1, m.inflight)

	m, _ = step(t, m, cmd())
	assert.Zero(t, m.inflight)
	require.NotNil(t, m.notice)
	assert.Equal(t, "Sent start command to h1 for web. The process should be started soon.", m.notice.Body)
	assert.Equal(t, []actions.Request{{Kind: actions.Start, Host: "h1", Identity: "web", Environment: "prod"}}, backend.commands)

	m.coordinator.Wait()
	backend.mu.Lock()
	assert.Equal(t, 6, backend.fetches)
	backend.mu.Unlock()

	m = press(t, m, "esc")
	assert.Nil(t, m.notice)
	_, shown := m.center.Current()
	assert.False(t, shown)
}

func TestWizardValidationNeverCallsBackend(t *testing.T) {
	m, backend := newTestModel(t, config.Scope{Host: "h1"})
	m = press(t, m, "n")
	require.NotNil(t, m.dialog)
	assert.Equal(t, wizard.FromHost, m.dialog.w.Variant())

	m = press(t, m, "enter")
	notice, ok := m.dialog.w.Notice()
	require.True(t, ok)
	assert.Equal(t, "Please choose a process that will be assigned to h1.", notice.Text)
	assert.Empty(t, backend.commands)
	assert.Zero(t, m.inflight)
}

func TestWizardFromProcessUsesSelectedEnvironment(t *testing.T) {
	m, _ := newTestModel(t, config.Scope{Process: "web"})
	m = load(t, m)
	m = press(t, m, "n")
	require.NotNil(t, m.dialog)
	assert.Equal(t, wizard.FromProcess, m.dialog.w.Variant())
	assert.Equal(t, "prod", m.dialog.w.Value(wizard.FieldEnvironment))
	assert.Equal(t, []wizard.Field{wizard.FieldHost}, m.dialog.fields)

	m = press(t, m, "enter")
	notice, _ := m.dialog.w.Notice()
	assert.Equal(t, "Please choose a host on which web will be assigned.", notice.Text)
}

func TestWizardSuggestionsAndAssign(t *testing.T) {
	m, backend := newTestModel(t, config.Scope{Host: "h1"})
	backend.suggestions = []string{"web", "worker"}
	m = press(t, m, "n", "w")
	d := m.dialog
	assert.Equal(t, "w", d.w.Value(wizard.FieldProcess))

	lookup, fire := d.w.Set(wizard.FieldProcess, "w")
	require.True(t, fire)
	m, _ = step(t, m, m.suggestCmd(d.w, lookup)())
	assert.Equal(t, []string{"web", "worker"}, m.dialog.w.Suggestions(wizard.FieldProcess))

	m = press(t, m, "down", "enter")
	assert.Equal(t, "worker", m.dialog.w.Value(wizard.FieldProcess))
	assert.Equal(t, 1, m.dialog.focus)

	m = press(t, m, "q", "a")
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.dialog.submitting)

	m, _ = step(t, m, cmd())
	require.NotNil(t, m.dialog, "dialog stays open after assigning")
	notice, _ := m.dialog.w.Notice()
	assert.Equal(t, "The process worker qa has been assigned to h1. The process must now be added to the host to activate it.", notice.Text)
	assert.Equal(t, []actions.Request{{Kind: actions.Assign, Host: "h1", Identity: "worker", Environment: "qa"}}, backend.commands)
}

func TestReopenedWizardIgnoresStaleResults(t *testing.T) {
	m, _ := newTestModel(t, config.Scope{Host: "h1"})
	m = press(t, m, "n")
	old := m.dialog.w
	lookup, _ := old.Set(wizard.FieldProcess, "we")

	m = press(t, m, "esc", "n")
	require.NotNil(t, m.dialog)
	assert.NotEqual(t, old.ID(), m.dialog.w.ID())
	assert.Error(t, old.Context().Err())

	m, _ = step(t, m, suggestionsMsg{lookup: lookup, results: []string{"web"}})
	assert.Empty(t, m.dialog.w.Suggestions(wizard.FieldProcess))

	req := actions.Request{Kind: actions.Assign, Host: "h1", Identity: "web", Environment: "prod"}
	m, _ = step(t, m, assignDoneMsg{wizardID: old.ID(), req: req})
	_, has := m.dialog.w.Notice()
	assert.False(t, has)
}

func TestRefreshKeepsDialogOpen(t *testing.T) {
	m, _ := newTestModel(t, config.Scope{Host: "h1"})
	m = press(t, m, "n")
	m, _ = step(t, m, tableLoadedMsg{result: refresh.Result{Table: row.Active, Rows: []row.Row{{Context: row.Active, Identity: "web"}}}})
	assert.NotNil(t, m.dialog)
	assert.Len(t, m.rows[row.Active], 1)
}

func TestRereadNeedsHostScope(t *testing.T) {
	m, _ := newTestModel(t, config.Scope{Process: "web"})
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")})
	assert.Nil(t, cmd)
	assert.Contains(t, m.statusLine, "host page")

	m, _ = newTestModel(t, config.Scope{Host: "h1"})
	m, cmd = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("W")})
	require.NotNil(t, cmd)
	out := cmd().(dispatchDoneMsg).outcome
	assert.Equal(t, actions.Request{Kind: actions.Rewrite, Host: "h1"}, out.Request)
}

func TestQuitConfirm(t *testing.T) {
	m, _ := newTestModel(t, config.Scope{Host: "h1"})
	m = press(t, m, "q")
	assert.True(t, m.quitConfirm)
	m = press(t, m, "n")
	assert.False(t, m.quitConfirm)
	m = press(t, m, "q")
	_, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewRendersEveryOverlay(t *testing.T) {
	m, _ := newTestModel(t, config.Scope{Host: "h1"})
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	m = load(t, m)
	assert.Contains(t, m.View(), "web")

	m = press(t, m, "a")
	assert.Contains(t, m.View(), "Restart")
	m = press(t, m, "esc", "n")
	assert.Contains(t, m.View(), "Assign a process to h1")
}

func TestCompactSingleLine(t *testing.T) {
	assert.Equal(t, "a b c", compactSingleLine("a\n  b\tc", 0))
	assert.Equal(t, "refresh...", compactSingleLine("refresh failed for every table", 10))
	assert.Equal(t, "short", compactSingleLine("short", 10))
}
