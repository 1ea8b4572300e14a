package ui

import "github.com/charmbracelet/lipgloss"

// palette
var (
	accent  = lipgloss.Color("#7C3AED")
	profit  = lipgloss.Color("#10B981")
	loss    = lipgloss.Color("#EF4444")
	caution = lipgloss.Color("#F59E0B")
	dim     = lipgloss.Color("#6B7280")
	frame   = lipgloss.Color("#374151")
	chain   = lipgloss.Color("#60A5FA")
	white   = lipgloss.Color("#FFFFFF")
)

var (
	titleBar = lipgloss.NewStyle().Bold(true).Foreground(white).Background(accent).Padding(0, 2)
	panel    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(frame).Padding(0, 1)
	section  = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	helpBar  = lipgloss.NewStyle().Foreground(dim).Padding(0, 1)

	faint      = lipgloss.NewStyle().Foreground(dim)
	good       = lipgloss.NewStyle().Foreground(profit)
	goodBold   = good.Bold(true)
	warn       = lipgloss.NewStyle().Foreground(caution)
	warnBold   = warn.Bold(true)
	bad        = lipgloss.NewStyle().Foreground(loss)
	badBold    = bad.Bold(true)
	blockLine  = lipgloss.NewStyle().Foreground(chain)
	brand      = lipgloss.NewStyle().Bold(true).Foreground(accent)
	plainTitle = lipgloss.NewStyle().Bold(true).Foreground(white)
)
