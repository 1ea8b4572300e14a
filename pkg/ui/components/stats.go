package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds statistics for display.
type Stats struct {
	BlocksProcessed int64
	Scans           int64
	Opportunities   int64
	Submitted       int64
	Aborted         int64
	AvgCycleMs      float64
	Errors          int64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update replaces the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// Stats returns the current statistics.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	errorsDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	if s.stats.Errors > 0 {
		errorsDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Blocks: %s  │  Scans: %s  │  Opportunities: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.BlocksProcessed)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Scans)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Opportunities)),
		) +
		fmt.Sprintf("Submitted: %s  │  Aborted: %s  │  Avg cycle: %s  │  Errors: %s",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Submitted)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Aborted)),
			valueStyle.Render(fmt.Sprintf("%.0fms", s.stats.AvgCycleMs)),
			errorsDisplay,
		)
}
