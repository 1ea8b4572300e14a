// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// OpportunityRow is one ranked crossed market.
type OpportunityRow struct {
	Token   string
	BuyFrom string
	SellTo  string
	Volume  string // WETH
	Profit  string // WETH
}

// OpportunitiesComponent renders the ranked list of the latest scan.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	block   uint64
	visible int
	offset  int
}

// NewOpportunitiesComponent creates a component showing visible rows at a time.
func NewOpportunitiesComponent(visible int) *OpportunitiesComponent {
	return &OpportunitiesComponent{visible: visible}
}

// Set replaces the list with a new scan's ranking.
func (o *OpportunitiesComponent) Set(block uint64, rows []OpportunityRow) {
	o.block = block
	o.rows = rows
	o.offset = 0
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.rows = nil
	o.offset = 0
}

func (o *OpportunitiesComponent) Len() int { return len(o.rows) }

func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

func (o *OpportunitiesComponent) ScrollDown() {
	if o.offset+o.visible < len(o.rows) {
		o.offset++
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	profitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("CROSSED MARKETS (block #%d)", o.block)))
	b.WriteString("\n\n")

	if len(o.rows) == 0 {
		b.WriteString(dimStyle.Render("  No crossed markets above the dust threshold"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-3s %-13s %-14s %-14s %14s %14s\n", "#", "Token", "Buy on", "Sell on", "Volume", "Profit"))
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 78)) + "\n")

	end := o.offset + o.visible
	if end > len(o.rows) {
		end = len(o.rows)
	}
	for i := o.offset; i < end; i++ {
		row := o.rows[i]
		b.WriteString(fmt.Sprintf("  %-3d %-13s %-14s %-14s %14s %s\n",
			i+1, row.Token, row.BuyFrom, row.SellTo, row.Volume,
			profitStyle.Render(fmt.Sprintf("%14s", row.Profit)),
		))
	}
	if len(o.rows) > o.visible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d", o.offset+1, end, len(o.rows))))
	}
	return b.String()
}
