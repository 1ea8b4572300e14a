package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ExecutionRow is the outcome of one block's execution attempt.
type ExecutionRow struct {
	Timestamp   string
	BlockNumber uint64
	State       string
	Token       string
	Reason      string
	GasEstimate uint64
	MinerReward string
	Accepted    int
}

// ExecutionsComponent keeps the most recent outcomes, newest first.
type ExecutionsComponent struct {
	rows    []ExecutionRow
	maxRows int
}

// NewExecutionsComponent creates a new executions component.
func NewExecutionsComponent(maxRows int) *ExecutionsComponent {
	return &ExecutionsComponent{maxRows: maxRows}
}

// Add records an outcome.
func (e *ExecutionsComponent) Add(row ExecutionRow) {
	e.rows = append([]ExecutionRow{row}, e.rows...)
	if len(e.rows) > e.maxRows {
		e.rows = e.rows[:e.maxRows]
	}
}

func (e *ExecutionsComponent) Clear() {
	e.rows = nil
}

// View renders the executions component.
func (e *ExecutionsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	badStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var b strings.Builder
	b.WriteString(headerStyle.Render("EXECUTIONS"))
	b.WriteString("\n\n")

	if len(e.rows) == 0 {
		b.WriteString(dimStyle.Render("  Nothing executed yet..."))
		return b.String()
	}

	for _, row := range e.rows {
		var state string
		switch row.State {
		case "submitted":
			state = okStyle.Render(fmt.Sprintf("✓ %-9s", row.State))
		case "aborted":
			state = badStyle.Render(fmt.Sprintf("✗ %-9s", row.State))
		default:
			state = dimStyle.Render(fmt.Sprintf("· %-9s", row.State))
		}

		line := fmt.Sprintf("  %s #%d %s", row.Timestamp, row.BlockNumber, state)
		if row.Token != "" {
			line += fmt.Sprintf(" %s gas=%d reward=%s", row.Token, row.GasEstimate, row.MinerReward)
		}
		if row.State == "submitted" {
			line += fmt.Sprintf(" (%d/2 accepted)", row.Accepted)
		}
		if row.Reason != "" {
			line += dimStyle.Render(" " + row.Reason)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
