package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"dartdash/internal/format"
)

type uiTheme struct {
	root        lipgloss.Style
	header      lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	panel       lipgloss.Style
	panelTitle  lipgloss.Style
	footer      lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	helpText    lipgloss.Style
	menuOption  lipgloss.Style
	menuSelect  lipgloss.Style
	modalFrame  lipgloss.Style
	modalAlert  lipgloss.Style
	fieldLabel  lipgloss.Style
	tiers       map[format.Tier]lipgloss.Style
	table       table.Styles
}

const (
	colorPink    = lipgloss.Color("#ff71ce")
	colorBlue    = lipgloss.Color("#01cdfe")
	colorMint    = lipgloss.Color("#05ffa1")
	colorAmber   = lipgloss.Color("#ffd166")
	colorBg      = lipgloss.Color("#120924")
	colorPanelBg = lipgloss.Color("#1b0f35")
	colorText    = lipgloss.Color("#f3f3ff")
	colorMuted   = lipgloss.Color("#9ca3d8")
	colorInk     = lipgloss.Color("#22062f")
)

func newTheme() uiTheme {
	tableStyles := table.DefaultStyles()
	tableStyles.Header = tableStyles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBlue).
		BorderBottom(true).
		Foreground(colorMint).
		Bold(true)
	tableStyles.Selected = tableStyles.Selected.
		Foreground(colorInk).
		Background(colorPink).
		Bold(true)

	return uiTheme{
		root: lipgloss.NewStyle().
			Background(colorBg).
			Foreground(colorText).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Background(colorPanelBg).
			Foreground(colorText).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Padding(0, 1),
		tabActive: lipgloss.NewStyle().
			Background(colorPink).
			Foreground(colorInk).
			Bold(true).
			Padding(0, 1),
		tabInactive: lipgloss.NewStyle().
			Background(lipgloss.Color("#2a184a")).
			Foreground(colorMuted).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Background(colorPanelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().
			Foreground(colorMint).
			Bold(true),
		footer: lipgloss.NewStyle().
			Background(colorPanelBg).
			Foreground(colorMuted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorPink).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(colorBlue).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(colorPink).Bold(true),
		helpText:    lipgloss.NewStyle().Foreground(colorMuted),
		menuOption:  lipgloss.NewStyle().Foreground(colorText),
		menuSelect: lipgloss.NewStyle().
			Foreground(colorInk).
			Background(colorPink).
			Bold(true).
			Padding(0, 1),
		modalFrame: lipgloss.NewStyle().
			Background(colorPanelBg).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(colorBlue).
			Padding(1, 2),
		modalAlert: lipgloss.NewStyle().
			Background(colorPanelBg).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(colorPink).
			Padding(1, 2),
		fieldLabel: lipgloss.NewStyle().Foreground(colorBlue),
		tiers: map[format.Tier]lipgloss.Style{
			format.TierEmpty:        lipgloss.NewStyle().Foreground(colorMuted),
			format.TierNominal:      lipgloss.NewStyle().Foreground(colorMint).Bold(true),
			format.TierTransitional: lipgloss.NewStyle().Foreground(colorAmber).Bold(true),
			format.TierCritical:     lipgloss.NewStyle().Foreground(colorPink).Bold(true),
		},
		table: tableStyles,
	}
}

func (t uiTheme) cell(c format.Cell) string {
	return t.tiers[c.Tier].Render(c.Text)
}

// TierStyles is the dashboard palette per severity tier, for output
// rendered outside the interactive program.
func TierStyles() map[format.Tier]lipgloss.Style {
	return newTheme().tiers
}
