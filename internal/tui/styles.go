package tui

import "github.com/charmbracelet/lipgloss"

// styles is one palette; the model swaps palettes when the theme changes
type styles struct {
	header    lipgloss.Style
	statusBar lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	system    lipgloss.Style
	errorBar  lipgloss.Style
	notice    lipgloss.Style
	cursor    lipgloss.Style
	active    lipgloss.Style
	date      lipgloss.Style
	badge     lipgloss.Style
	spinner   lipgloss.Style
}

func newStyles(dark bool) styles {
	fg, muted, accent, userColor, bar := lipgloss.Color("252"), lipgloss.Color("245"), lipgloss.Color("62"), lipgloss.Color("39"), lipgloss.Color("235")
	if !dark {
		fg, muted, accent, userColor, bar = lipgloss.Color("235"), lipgloss.Color("243"), lipgloss.Color("57"), lipgloss.Color("25"), lipgloss.Color("254")
	}

	return styles{
		header: lipgloss.NewStyle().
			Background(accent).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		statusBar: lipgloss.NewStyle().
			Background(bar).
			Foreground(fg).
			Padding(0, 1),
		user: lipgloss.NewStyle().
			Foreground(userColor).
			Bold(true),
		assistant: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		system: lipgloss.NewStyle().
			Foreground(muted).
			Italic(true),
		errorBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		notice: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		cursor: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		active: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),
		date: lipgloss.NewStyle().
			Foreground(muted),
		badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("99")).
			Padding(0, 1),
		spinner: lipgloss.NewStyle().
			Foreground(muted),
	}
}
