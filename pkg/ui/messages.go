// Package ui provides the Bubble Tea TUI for the arbitrage bot.
package ui

import (
	"time"

	"github.com/fd1az/simple-arbitrage/pkg/ui/components"
)

// Message types for TUI updates. Values arrive pre-formatted; the UI does not
// calculate anything.

// BlockMsg is sent when a new block starts a cycle.
type BlockMsg struct {
	Number      uint64
	Timestamp   time.Time
	BaseFeeGwei float64
}

// ScanMsg carries the ranked opportunities of one cycle.
type ScanMsg struct {
	CycleID       string
	BlockNumber   uint64
	Markets       int
	Tokens        int
	Crossed       int
	Duration      time.Duration
	Opportunities []components.OpportunityRow
}

// OutcomeMsg is sent when execution finishes for a block.
type OutcomeMsg struct {
	Row components.ExecutionRow
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// GasPriceMsg is sent when gas price is updated.
type GasPriceMsg struct {
	GweiPrice float64
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "done", "failed"
	Message string
}
