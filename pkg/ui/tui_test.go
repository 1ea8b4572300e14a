package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/simple-arbitrage/pkg/ui/components"
)

func update(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func dashboard() Model {
	m := New()
	m.phase = PhaseDashboard
	return m
}

func TestModel_CycleUpdatesStats(t *testing.T) {
	m := update(t, dashboard(),
		BlockMsg{Number: 100},
		ScanMsg{BlockNumber: 100, Markets: 40, Tokens: 20, Crossed: 3, Duration: 80 * time.Millisecond,
			Opportunities: []components.OpportunityRow{
				{Token: "DAI", BuyFrom: "UniswapV2", SellTo: "Sushiswap", Volume: "1.2 WETH", Profit: "0.05 WETH"},
				{Token: "LINK", BuyFrom: "Sushiswap", SellTo: "UniswapV2", Volume: "0.3 WETH", Profit: "0.002 WETH"},
			}},
		OutcomeMsg{Row: components.ExecutionRow{BlockNumber: 100, State: "submitted", Token: "DAI", Accepted: 2}},
		BlockMsg{Number: 101},
		ScanMsg{BlockNumber: 101, Duration: 120 * time.Millisecond},
		OutcomeMsg{Row: components.ExecutionRow{BlockNumber: 101, State: "idle", Reason: "no opportunity"}},
	)

	st := m.stats.Stats()
	want := components.Stats{BlocksProcessed: 2, Scans: 2, Opportunities: 2, Submitted: 1, AvgCycleMs: 100}
	if st != want {
		t.Errorf("stats = %+v, want %+v", st, want)
	}
	if m.currentBlock != 101 {
		t.Errorf("current block = %d, want 101", m.currentBlock)
	}
	if m.opportunities.Len() != 0 {
		t.Errorf("latest scan had no opportunities, table shows %d", m.opportunities.Len())
	}
}

func TestModel_PauseFreezesTables(t *testing.T) {
	rows := []components.OpportunityRow{{Token: "DAI", Profit: "0.05 WETH"}}
	m := update(t, dashboard(),
		ScanMsg{BlockNumber: 100, Opportunities: rows},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")},
		ScanMsg{BlockNumber: 101},
	)

	if !m.paused {
		t.Fatal("expected paused")
	}
	if m.opportunities.Len() != 1 {
		t.Errorf("paused table changed: %d rows", m.opportunities.Len())
	}
	if m.stats.Stats().Scans != 2 {
		t.Errorf("stats must keep counting while paused")
	}
}

func TestModel_ErrorsKeepLastThree(t *testing.T) {
	m := dashboard()
	for i := 0; i < 5; i++ {
		m = update(t, m, ErrorMsg{Error: errors.New("relay timeout")})
	}
	if len(m.errors) != 3 {
		t.Errorf("errors = %d, want 3", len(m.errors))
	}
	if m.stats.Stats().Errors != 5 {
		t.Errorf("error count = %d, want 5", m.stats.Stats().Errors)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if len(m.errors) != 0 {
		t.Errorf("errors not cleared")
	}
}

func TestModel_StartupCompletes(t *testing.T) {
	m := New()
	m.phase = PhaseStartup

	m = update(t, m,
		StartupMsg{Step: "config", Status: "done"},
		StartupMsg{Step: "markets", Status: "done"},
		ConnectionStatusMsg{Name: ConnEthereum, Connected: true},
	)
	if m.startupComplete {
		t.Fatal("startup complete before flashbots is ready")
	}

	m = update(t, m,
		ConnectionStatusMsg{Name: ConnFlashbots, Connected: true},
		StartupMsg{Step: "flashbots", Status: "connected"},
	)
	if !m.startupComplete {
		t.Error("startup not complete after every step reported")
	}
	if !strings.Contains(m.View(), "Simple Arbitrage") {
		t.Error("dashboard title missing")
	}
}

func TestOpportunitiesComponent_Scroll(t *testing.T) {
	o := components.NewOpportunitiesComponent(2)
	o.Set(7, []components.OpportunityRow{{Token: "A"}, {Token: "B"}, {Token: "C"}})

	o.ScrollUp()
	if v := o.View(); !strings.Contains(v, "1-2 of 3") {
		t.Errorf("view = %q, want first page", v)
	}
	o.ScrollDown()
	o.ScrollDown()
	if v := o.View(); !strings.Contains(v, "2-3 of 3") {
		t.Errorf("view = %q, want last page", v)
	}
}
