package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"dartdash/internal/format"
	"dartdash/internal/row"
	"dartdash/internal/wizard"
)

// Table cells stay plain text; the table widget measures raw bytes, so
// tier colors only appear in the details pane below it.

func columnsFor(width int) []table.Column {
	fixed := []table.Column{
		{Title: "Process", Width: 22},
		{Title: "Host", Width: 24},
		{Title: "Env", Width: 10},
		{Title: "Status", Width: 20},
		{Title: "Schedule", Width: 22},
		{Title: "State", Width: 9},
	}
	used := 0
	for _, c := range fixed {
		used += c.Width + 2
	}
	return append(fixed, table.Column{Title: "Description", Width: maxInt(16, width-used)})
}

type rowView struct {
	status      format.Cell
	schedule    format.Annotation
	state       format.Cell
	description []format.Cell
}

func (m *model) viewRow(r row.Row) rowView {
	status := format.ActiveStatus(r.Status)
	if r.Context == row.Pending {
		status = format.PendingStatus(r.Status)
	}
	return rowView{
		status:      status,
		schedule:    format.Schedule(r, m.now()),
		state:       format.Disabled(r.Disabled),
		description: format.Description(r, m.catalog.Ignored(r.Identity)),
	}
}

func cellTexts(cells []format.Cell) string {
	parts := make([]string, 0, len(cells))
	for _, c := range cells {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "; ")
}

func (m *model) tableRows(rows []row.Row) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		v := m.viewRow(r)
		out = append(out, table.Row{
			format.NoWrap(r.Identity).Text,
			format.NoWrap(r.Host).Text,
			format.NoWrap(r.Environment).Text,
			v.status.Text,
			v.schedule.Line(),
			v.state.Text,
			cellTexts(v.description),
		})
	}
	return out
}

func (m model) View() string {
	out := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderContent(),
		m.renderFooter(),
	)
	switch {
	case m.quitConfirm:
		out = m.renderQuitModal()
	case m.notice != nil:
		out = m.renderNotice()
	case m.dialog != nil:
		out = m.renderWizard()
	case m.menu != nil:
		out = m.renderMenu()
	}
	return m.theme.root.Render(out)
}

func (m *model) tabLabel(t tabID) string {
	ctxKind, ok := t.table()
	if !ok {
		return "Log"
	}
	title := ctxKind.Title()
	n, loaded := m.coordinator.Count(ctxKind)
	if !loaded {
		return fmt.Sprintf("%s (%s)", title, format.Placeholder)
	}
	if ctxKind == row.Pending {
		return fmt.Sprintf("%s (%s)", title, format.DangerCount(n).Text)
	}
	return fmt.Sprintf("%s (%d)", title, n)
}

func (m *model) renderHeader() string {
	segments := make([]string, 0, tabCount+1)
	for t := tabID(0); t < tabCount; t++ {
		style := m.theme.tabInactive
		if t == m.activeTab {
			style = m.theme.tabActive
		}
		segments = append(segments, style.Render(m.tabLabel(t)))
	}
	meta := " " + scopeLabel(m.cfg)
	if !m.lastRefresh.IsZero() {
		meta += " · " + m.lastRefresh.Format("15:04:05")
	}
	segments = append(segments, m.theme.helpText.Render(meta))
	joined := lipgloss.JoinHorizontal(lipgloss.Left, segments...)
	return m.theme.header.Width(maxInt(20, m.width-4)).Render(joined)
}

func (m *model) renderContent() string {
	contentWidth := maxInt(40, m.width-4)
	if m.activeTab == tabLog {
		body := m.logView.View()
		if len(m.logs) == 0 {
			body = m.theme.helpText.Render("nothing logged yet")
		}
		return m.theme.panel.Width(contentWidth).Render(m.theme.panelTitle.Render("Log") + "\n" + body)
	}
	ctxKind, _ := m.activeTab.table()
	t := m.tables[ctxKind]
	body := t.View()
	if len(m.rows[ctxKind]) == 0 {
		body += "\n" + m.theme.helpText.Render("no "+ctxKind.String()+" processes")
	}
	return m.theme.panel.Width(contentWidth).Render(body + "\n" + m.renderDetails())
}

func (m *model) renderDetails() string {
	r, ok := m.selectedRow()
	if !ok {
		return ""
	}
	v := m.viewRow(r)
	schedule := format.Cell{Text: v.schedule.Line(), Tier: v.schedule.Tier}
	lines := []string{
		m.theme.panelTitle.Render(format.NoWrap(r.Identity).Text) + " " + m.theme.helpText.Render("on "+format.NoWrap(r.Host).Text),
		m.theme.fieldLabel.Render("status   ") + m.theme.cell(v.status) + "  " + m.theme.cell(v.state),
		m.theme.fieldLabel.Render("schedule ") + m.theme.cell(schedule),
	}
	described := make([]string, 0, len(v.description))
	for _, c := range v.description {
		described = append(described, m.theme.cell(c))
	}
	lines = append(lines, m.theme.fieldLabel.Render("details  ")+strings.Join(described, m.theme.helpText.Render(" · ")))
	kinds := m.catalog.For(r.Context, r.Identity)
	labels := make([]string, 0, len(kinds))
	for _, k := range kinds {
		labels = append(labels, k.Label())
	}
	actionsLine := strings.Join(labels, " ")
	if actionsLine == "" {
		actionsLine = "not managed from here"
	}
	lines = append(lines, m.theme.fieldLabel.Render("actions  ")+m.theme.helpText.Render(actionsLine))
	return strings.Join(lines, "\n")
}

func (m *model) renderFooter() string {
	contentWidth := maxInt(40, m.width-4)
	statusStyle := m.theme.status
	lower := strings.ToLower(m.statusLine)
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		statusStyle = m.theme.errorStatus
	}
	line := statusStyle.Render(compactSingleLine(m.statusLine, 180))
	if m.inflight > 0 {
		line = m.spinner.View() + " " + line
	}
	m.help.Width = contentWidth
	return m.theme.footer.Width(contentWidth).Render(line + "\n" + m.help.View(keys))
}

func (m *model) modal(frame lipgloss.Style, body string) string {
	canvasWidth := maxInt(40, m.width-4)
	canvasHeight := maxInt(12, m.height-4)
	modalWidth := clampInt(int(float64(canvasWidth)*0.6), 32, 90)
	if modalWidth > canvasWidth-2 {
		modalWidth = canvasWidth - 2
	}
	panel := frame.Width(modalWidth).Render(body)
	return lipgloss.Place(
		canvasWidth,
		canvasHeight,
		lipgloss.Center,
		lipgloss.Center,
		panel,
		lipgloss.WithWhitespaceBackground(colorBg),
	)
}

// modalTextWidth is the usable text width inside a modal frame.
func (m *model) modalTextWidth() int {
	width := clampInt(int(float64(maxInt(40, m.width-4))*0.6), 32, 90) - 6
	return maxInt(20, width)
}

func (m *model) renderQuitModal() string {
	body := strings.Join([]string{
		m.theme.errorStatus.Render("QUIT DASHBOARD?"),
		"",
		m.theme.helpText.Render("Commands already sent keep running on their hosts."),
		"",
		m.theme.menuSelect.Render("[Y / Enter] Quit") + "    " + m.theme.helpText.Render("[N / Esc] Return"),
	}, "\n")
	return m.modal(m.theme.modalAlert, body)
}

func (m *model) renderNotice() string {
	frame := m.theme.modalFrame
	titleStyle := m.theme.tiers[format.TierNominal]
	if m.notice.Tier == format.TierCritical {
		frame = m.theme.modalAlert
		titleStyle = m.theme.tiers[format.TierCritical]
	}
	body := strings.Join([]string{
		titleStyle.Render(m.notice.Title),
		"",
		wordwrap.String(m.notice.Body, m.modalTextWidth()),
		"",
		m.theme.helpText.Render("[Enter / Esc] Close"),
	}, "\n")
	return m.modal(frame, body)
}

func (m *model) renderMenu() string {
	menu := m.menu
	lines := []string{
		m.theme.panelTitle.Render(menu.row.Identity) + " " + m.theme.helpText.Render("on "+format.NoWrap(menu.row.Host).Text),
		"",
	}
	for i, k := range menu.kinds {
		label := fmt.Sprintf("   %s", k.Label())
		if i == menu.index {
			lines = append(lines, m.theme.menuSelect.Render(">> "+k.Label()))
			continue
		}
		lines = append(lines, m.theme.menuOption.Render(label))
	}
	lines = append(lines, "", m.theme.helpText.Render("up/down choose · enter send · esc close"))
	return m.modal(m.theme.modalFrame, strings.Join(lines, "\n"))
}

func (m *model) renderWizard() string {
	d := m.dialog
	w := d.w
	title := "Assign " + w.Value(wizard.FieldProcess) + " " + w.Value(wizard.FieldEnvironment)
	if w.Variant() == wizard.FromHost {
		title = "Assign a process to " + w.Value(wizard.FieldHost)
	}
	lines := []string{m.theme.panelTitle.Render(strings.TrimSpace(title)), ""}
	for i, field := range d.fields {
		lines = append(lines, d.inputs[i].View())
		if i != d.focus {
			continue
		}
		for j, choice := range w.Suggestions(field) {
			if j == d.suggestIndex {
				lines = append(lines, "  "+m.theme.menuSelect.Render(choice))
			} else {
				lines = append(lines, "    "+m.theme.menuOption.Render(choice))
			}
		}
	}
	if notice, ok := w.Notice(); ok {
		wrapped := wordwrap.String(notice.Text, m.modalTextWidth())
		lines = append(lines, "", m.theme.cell(format.Cell{Text: wrapped, Tier: notice.Tier}))
	}
	if d.submitting {
		lines = append(lines, "", m.spinner.View()+" assigning...")
	}
	lines = append(lines, "", m.help.ShortHelpView(wizardKeyMap{}.ShortHelp()))
	return m.modal(m.theme.modalFrame, strings.Join(lines, "\n"))
}

func (m *model) resize() {
	contentWidth := maxInt(40, m.width-4)
	tableHeight := maxInt(4, m.height-18)
	for ctxKind, t := range m.tables {
		t.SetColumns(columnsFor(contentWidth - 4))
		t.SetWidth(contentWidth - 2)
		t.SetHeight(tableHeight)
		m.tables[ctxKind] = t
	}
	m.logView.Width = contentWidth - 4
	m.logView.Height = maxInt(4, m.height-10)
}

func compactSingleLine(text string, limit int) string {
	single := strings.Join(strings.Fields(text), " ")
	if limit <= 0 {
		return single
	}
	return runewidth.Truncate(single, limit, "...")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
