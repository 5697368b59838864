// Package tui is the interactive dashboard: the three process tables of one
// host or process page, the per-row action menu, the assignment dialog and
// the single message slot command outcomes land in.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/glog"

	"dartdash/internal/actions"
	"dartdash/internal/config"
	"dartdash/internal/dispatch"
	"dartdash/internal/live"
	"dartdash/internal/message"
	"dartdash/internal/refresh"
	"dartdash/internal/row"
	"dartdash/internal/wizard"
)

// Backend is everything the dashboard needs from the API.
type Backend interface {
	refresh.Fetcher
	dispatch.Commander
	wizard.Suggester
}

// Deps wires a dashboard model.
type Deps struct {
	Config  config.Config
	Backend Backend
	// Now defaults to time.Now.
	Now func() time.Time
}

type tabID int

const (
	tabActive tabID = iota
	tabPending
	tabAssigned
	tabLog
	tabCount
)

func (t tabID) table() (row.Context, bool) {
	switch t {
	case tabActive:
		return row.Active, true
	case tabPending:
		return row.Pending, true
	case tabAssigned:
		return row.Assigned, true
	default:
		return 0, false
	}
}

const (
	logLimit     = 50
	inboundDepth = 256
)

type actionMenu struct {
	row   row.Row
	kinds []actions.Kind
	index int
}

type wizardDialog struct {
	w            *wizard.Wizard
	fields       []wizard.Field
	inputs       []textinput.Model
	focus        int
	suggestIndex int
	submitting   bool
}

type model struct {
	cfg         config.Config
	backend     Backend
	catalog     *actions.Catalog
	center      *message.Center
	coordinator *refresh.Coordinator
	dispatcher  *dispatch.Dispatcher
	watcher     *live.Watcher
	now         func() time.Time

	ctx     context.Context
	inbound chan tea.Msg

	rows   map[row.Context][]row.Row
	tables map[row.Context]table.Model

	statusLine   string
	logs         []string
	activeTab    tabID
	menu         *actionMenu
	dialog       *wizardDialog
	notice       *message.Message
	quitConfirm  bool
	inflight     int
	lastRefresh  time.Time
	showFullHelp bool

	width  int
	height int

	logView viewport.Model
	spinner spinner.Model
	help    help.Model
	theme   uiTheme
}

type tableLoadedMsg struct {
	result refresh.Result
}

type dispatchDoneMsg struct {
	outcome dispatch.Outcome
}

type suggestionsMsg struct {
	lookup  wizard.Lookup
	results []string
}

type assignDoneMsg struct {
	wizardID uint64
	req      actions.Request
	err      error
}

type liveEventMsg struct {
	note live.Notification
}

type tickMsg time.Time

func newModel(ctx context.Context, deps Deps) (model, error) {
	cfg := deps.Config
	sets, err := cfg.ActionSets()
	if err != nil {
		return model{}, err
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	inbound := make(chan tea.Msg, inboundDepth)
	push := func(msg tea.Msg) {
		select {
		case inbound <- msg:
		case <-ctx.Done():
		}
	}

	coordinator := refresh.NewCoordinator(deps.Backend, cfg.Defaults(), func(r refresh.Result) {
		push(tableLoadedMsg{result: r})
	})
	center := message.NewCenter(nil)
	watcher := live.NewWatcher(cfg.NATS, cfg.Scope, coordinator, func(n live.Notification) {
		push(liveEventMsg{note: n})
	})

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(colorMint)

	theme := newTheme()
	tables := make(map[row.Context]table.Model, len(row.Contexts))
	for _, ctxKind := range row.Contexts {
		t := table.New(
			table.WithColumns(columnsFor(120)),
			table.WithFocused(true),
			table.WithHeight(10),
		)
		t.SetStyles(theme.table)
		tables[ctxKind] = t
	}
	logView := viewport.New(0, 0)
	logView.MouseWheelEnabled = true

	return model{
		cfg:         cfg,
		backend:     deps.Backend,
		catalog:     actions.NewCatalog(sets, cfg.Ignore),
		center:      center,
		coordinator: coordinator,
		dispatcher:  dispatch.New(deps.Backend, coordinator, center),
		watcher:     watcher,
		now:         now,
		ctx:         ctx,
		inbound:     inbound,
		rows:        map[row.Context][]row.Row{},
		tables:      tables,
		statusLine:  "loading " + scopeLabel(cfg) + "...",
		logs:        []string{},
		activeTab:   tabActive,
		logView:     logView,
		spinner:     sp,
		help:        help.New(),
		theme:       theme,
	}, nil
}

func scopeLabel(cfg config.Config) string {
	if cfg.HostScoped() {
		return "host " + cfg.Scope.Host
	}
	return "process " + cfg.Scope.Process
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		m.refreshCmd(),
		waitInbound(m.inbound),
	}
	if interval := m.cfg.PollInterval(); interval > 0 {
		cmds = append(cmds, tickEvery(interval))
	}
	return tea.Batch(cmds...)
}

func tickEvery(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitInbound(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// refreshCmd starts a silent reload of all three tables. Results arrive
// through the inbound channel.
func (m model) refreshCmd() tea.Cmd {
	coordinator := m.coordinator
	ctx := m.ctx
	return func() tea.Msg {
		coordinator.RefreshAll(ctx)
		return nil
	}
}

func (m model) dispatchCmd(req actions.Request) tea.Cmd {
	dispatcher := m.dispatcher
	ctx := m.ctx
	return func() tea.Msg {
		return dispatchDoneMsg{outcome: dispatcher.Dispatch(ctx, req)}
	}
}

func (m model) suggestCmd(w *wizard.Wizard, lookup wizard.Lookup) tea.Cmd {
	backend := m.backend
	ctx := w.Context()
	return func() tea.Msg {
		return suggestionsMsg{lookup: lookup, results: wizard.Fetch(ctx, backend, lookup)}
	}
}

func (m model) assignCmd(wizardID uint64, req actions.Request) tea.Cmd {
	backend := m.backend
	ctx := m.ctx
	return func() tea.Msg {
		return assignDoneMsg{wizardID: wizardID, req: req, err: backend.SendCommand(ctx, req)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tableLoadedMsg:
		m.applyTable(msg.result)
		cmds = append(cmds, waitInbound(m.inbound))
	case liveEventMsg:
		m.appendLog(fmt.Sprintf("state change %s %s %s", msg.note.FQDN, msg.note.Process, msg.note.State))
		cmds = append(cmds, waitInbound(m.inbound))
	case dispatchDoneMsg:
		m.inflight = maxInt(0, m.inflight-1)
		out := msg.outcome
		if current, ok := m.center.Current(); ok {
			m.notice = &current
		}
		if out.OK {
			m.statusLine = fmt.Sprintf("%s sent to %s", out.Request.Kind, out.Request.Host)
		} else {
			m.statusLine = fmt.Sprintf("%s failed", out.Request.Kind)
		}
		m.appendLog(out.Message.Body)
	case suggestionsMsg:
		if m.dialog != nil && m.dialog.w.ApplySuggestions(msg.lookup, msg.results) {
			m.dialog.suggestIndex = 0
		}
	case assignDoneMsg:
		m.inflight = maxInt(0, m.inflight-1)
		if msg.err != nil {
			m.appendLog(dispatch.FailureText(msg.req, dispatch.Reason(msg.err)))
		} else {
			m.appendLog(dispatch.SuccessText(msg.req))
			cmds = append(cmds, m.refreshCmd())
		}
		if m.dialog != nil && m.dialog.w.ID() == msg.wizardID {
			m.dialog.submitting = false
			m.dialog.w.ApplyResult(msg.req, msg.err)
		} else {
			glog.V(1).Infof("assign result for closed dialog %d", msg.wizardID)
		}
	case tickMsg:
		cmds = append(cmds, m.refreshCmd(), tickEvery(m.cfg.PollInterval()))
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch {
		case m.quitConfirm:
			return m.updateQuitConfirm(msg)
		case m.notice != nil:
			return m.updateNotice(msg)
		case m.dialog != nil:
			return m.updateWizard(msg)
		case m.menu != nil:
			return m.updateMenu(msg)
		}
		return m.updateTables(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m model) updateQuitConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.closeWizard()
		return m, tea.Quit
	case "n", "N", "esc":
		m.quitConfirm = false
		m.statusLine = "quit canceled"
	}
	return m, nil
}

func (m model) updateNotice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc", " ":
		m.notice = nil
		m.center.Dismiss()
	}
	return m, nil
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	menu := m.menu
	switch msg.String() {
	case "esc", "q":
		m.menu = nil
	case "up", "k":
		menu.index = (menu.index + len(menu.kinds) - 1) % len(menu.kinds)
	case "down", "j":
		menu.index = (menu.index + 1) % len(menu.kinds)
	case "enter":
		kind := menu.kinds[menu.index]
		m.menu = nil
		return m, m.sendCommand(actions.Request{
			Kind:        kind,
			Host:        menu.row.Host,
			Identity:    menu.row.Identity,
			Environment: menu.row.Environment,
		})
	}
	return m, nil
}

func (m *model) sendCommand(req actions.Request) tea.Cmd {
	m.inflight++
	m.statusLine = fmt.Sprintf("sending %s to %s...", req.Kind, req.Host)
	return m.dispatchCmd(req)
}

func (m model) updateTables(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit, keys.Close):
		m.quitConfirm = true
		m.statusLine = "quit dashboard?"
		return m, nil
	case key.Matches(msg, keys.ToggleHelp):
		m.showFullHelp = !m.showFullHelp
		m.help.ShowAll = m.showFullHelp
		return m, nil
	case key.Matches(msg, keys.NextTab):
		m.activeTab = (m.activeTab + 1) % tabCount
		return m, nil
	case key.Matches(msg, keys.PrevTab):
		m.activeTab = (m.activeTab + tabCount - 1) % tabCount
		return m, nil
	case key.Matches(msg, keys.Refresh):
		m.statusLine = "refreshing..."
		return m, m.refreshCmd()
	case key.Matches(msg, keys.Assign):
		return m, m.openWizard()
	case key.Matches(msg, keys.Reread, keys.Rewrite):
		if !m.cfg.HostScoped() {
			m.statusLine = "reread and rewrite need a host page"
			return m, nil
		}
		kind := actions.Reread
		if key.Matches(msg, keys.Rewrite) {
			kind = actions.Rewrite
		}
		return m, m.sendCommand(actions.Request{Kind: kind, Host: m.cfg.Scope.Host})
	case key.Matches(msg, keys.Actions):
		m.openMenu()
		return m, nil
	}

	if m.activeTab == tabLog {
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}
	ctxKind, _ := m.activeTab.table()
	t := m.tables[ctxKind]
	var cmd tea.Cmd
	t, cmd = t.Update(msg)
	m.tables[ctxKind] = t
	return m, cmd
}

func (m *model) selectedRow() (row.Row, bool) {
	ctxKind, ok := m.activeTab.table()
	if !ok {
		return row.Row{}, false
	}
	rows := m.rows[ctxKind]
	cursor := m.tables[ctxKind].Cursor()
	if cursor < 0 || cursor >= len(rows) {
		return row.Row{}, false
	}
	return rows[cursor], true
}

func (m *model) openMenu() {
	r, ok := m.selectedRow()
	if !ok {
		m.statusLine = "no row selected"
		return
	}
	kinds := m.catalog.For(r.Context, r.Identity)
	if len(kinds) == 0 {
		m.statusLine = fmt.Sprintf("%s is not managed from here", r.Identity)
		return
	}
	m.menu = &actionMenu{row: r, kinds: kinds}
}

// openWizard replaces any open assignment dialog with a fresh one.
func (m *model) openWizard() tea.Cmd {
	m.closeWizard()
	opts := wizard.Options{MinLength: m.cfg.Suggest.MinLength}
	var w *wizard.Wizard
	if m.cfg.HostScoped() {
		w = wizard.NewFromHost(m.cfg.Scope.Host, opts)
	} else {
		environment := m.cfg.Scope.Environment
		if r, ok := m.selectedRow(); ok && r.Environment != "" {
			environment = r.Environment
		}
		w = wizard.NewFromProcess(m.cfg.Scope.Process, environment, opts)
	}
	d := &wizardDialog{w: w, fields: w.Fields()}
	for _, field := range d.fields {
		in := textinput.New()
		in.Prompt = field.String() + " ❯ "
		in.CharLimit = 253
		in.Width = 40
		d.inputs = append(d.inputs, in)
	}
	m.dialog = d
	m.menu = nil
	m.statusLine = "assign " + w.Variant().String()
	return d.focusInput(0)
}

func (m *model) closeWizard() {
	if m.dialog != nil {
		m.dialog.w.Close()
		m.dialog = nil
	}
}

func (d *wizardDialog) focusInput(index int) tea.Cmd {
	if len(d.inputs) == 0 {
		return nil
	}
	d.focus = (index + len(d.inputs)) % len(d.inputs)
	d.suggestIndex = 0
	for i := range d.inputs {
		d.inputs[i].Blur()
	}
	return d.inputs[d.focus].Focus()
}

func (d *wizardDialog) field() wizard.Field {
	return d.fields[d.focus]
}

// accept takes the highlighted suggestion for the focused field.
func (d *wizardDialog) accept() bool {
	field := d.field()
	if !d.w.Select(field, d.suggestIndex) {
		return false
	}
	d.inputs[d.focus].SetValue(d.w.Value(field))
	d.inputs[d.focus].CursorEnd()
	return true
}

func (m model) updateWizard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.dialog
	switch msg.String() {
	case "esc":
		m.closeWizard()
		m.statusLine = "assignment closed"
		return m, nil
	case "up":
		d.suggestIndex = maxInt(0, d.suggestIndex-1)
		return m, nil
	case "down":
		d.suggestIndex = minInt(maxInt(0, len(d.w.Suggestions(d.field()))-1), d.suggestIndex+1)
		return m, nil
	case "tab":
		d.accept()
		return m, d.focusInput(d.focus + 1)
	case "shift+tab":
		return m, d.focusInput(d.focus - 1)
	case "enter":
		if len(d.w.Suggestions(d.field())) > 0 {
			d.accept()
			if d.focus < len(d.inputs)-1 {
				return m, d.focusInput(d.focus + 1)
			}
			return m, nil
		}
		if d.submitting {
			return m, nil
		}
		req, ok := d.w.Prepare()
		if !ok {
			if notice, has := d.w.Notice(); has {
				m.appendLog(notice.Text)
			}
			return m, nil
		}
		d.submitting = true
		m.inflight++
		m.statusLine = fmt.Sprintf("assigning %s %s to %s...", req.Identity, req.Environment, req.Host)
		return m, m.assignCmd(d.w.ID(), req)
	}

	field := d.field()
	before := d.inputs[d.focus].Value()
	var cmd tea.Cmd
	d.inputs[d.focus], cmd = d.inputs[d.focus].Update(msg)
	value := d.inputs[d.focus].Value()
	if value == before {
		return m, cmd
	}
	d.suggestIndex = 0
	if lookup, fire := d.w.Set(field, value); fire {
		return m, tea.Batch(cmd, m.suggestCmd(d.w, lookup))
	}
	return m, cmd
}

func (m *model) applyTable(result refresh.Result) {
	if result.Err != nil {
		m.appendLog(fmt.Sprintf("refresh %s failed: %v", result.Table, result.Err))
		return
	}
	m.rows[result.Table] = result.Rows
	t := m.tables[result.Table]
	t.SetRows(m.tableRows(result.Rows))
	if t.Cursor() >= len(result.Rows) {
		t.SetCursor(maxInt(0, len(result.Rows)-1))
	}
	m.tables[result.Table] = t
	m.lastRefresh = m.now()
	if strings.HasPrefix(m.statusLine, "loading") || m.statusLine == "refreshing..." {
		m.statusLine = "ready · " + scopeLabel(m.cfg)
	}
}

func (m *model) appendLog(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	m.logs = append(m.logs, fmt.Sprintf("%s %s", m.now().Format("15:04:05"), compactSingleLine(trimmed, 220)))
	if len(m.logs) > logLimit {
		m.logs = m.logs[len(m.logs)-logLimit:]
	}
	m.logView.SetContent(strings.Join(m.logs, "\n"))
	m.logView.GotoBottom()
}

// Run opens the dashboard on the terminal and blocks until the operator
// quits.
func Run(ctx context.Context, deps Deps) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m, err := newModel(ctx, deps)
	if err != nil {
		return err
	}
	if err := m.watcher.Start(); err != nil {
		// push refresh is optional; polling and manual refresh still work
		glog.Warningf("live refresh disabled: %v", err)
	}
	defer m.watcher.Close()

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithMouseCellMotion()}
	if deps.Config.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	_, err = tea.NewProgram(m, opts...).Run()
	return err
}
