package infra

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/simple-arbitrage/business/arbitrage/app"
	"github.com/fd1az/simple-arbitrage/business/arbitrage/domain"
	blockchain "github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/asset"
	"github.com/fd1az/simple-arbitrage/pkg/ui"
	"github.com/fd1az/simple-arbitrage/pkg/ui/components"
)

// TUIReporter implements app.Reporter by sending messages to the Bubble Tea program.
type TUIReporter struct {
	tokens *asset.Registry
	send   func(any)
}

// NewTUIReporter creates a TUIReporter that feeds the running ui program.
func NewTUIReporter(tokens *asset.Registry) *TUIReporter {
	return newTUIReporter(tokens, func(msg any) { ui.Send(msg) })
}

func newTUIReporter(tokens *asset.Registry, send func(any)) *TUIReporter {
	if tokens == nil {
		tokens = asset.DefaultRegistry()
	}
	return &TUIReporter{tokens: tokens, send: send}
}

var _ app.Reporter = (*TUIReporter)(nil)

// Start is a no-op; main owns the Bubble Tea program.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// ReportBlock sends the new block to the TUI.
func (r *TUIReporter) ReportBlock(b *blockchain.Block) {
	msg := ui.BlockMsg{Number: b.Number, Timestamp: b.Timestamp}
	if b.BaseFee != nil {
		msg.BaseFeeGwei, _ = decimal.NewFromBigInt(b.BaseFee, -9).Float64()
	}
	r.send(msg)
}

// ReportScan sends the ranked list to the TUI.
func (r *TUIReporter) ReportScan(rep app.ScanReport) {
	rows := make([]components.OpportunityRow, 0, len(rep.Ranked))
	for _, c := range rep.Ranked {
		rows = append(rows, components.OpportunityRow{
			Token:   r.tokens.Label(c.Token),
			BuyFrom: string(c.BuyFrom.Protocol()),
			SellTo:  string(c.SellTo.Protocol()),
			Volume:  formatWETH(c.Volume),
			Profit:  formatWETH(c.Profit),
		})
	}
	r.send(ui.ScanMsg{
		CycleID:       rep.CycleID,
		BlockNumber:   rep.BlockNumber,
		Markets:       rep.Markets,
		Tokens:        rep.Tokens,
		Crossed:       rep.Crossed,
		Duration:      rep.Duration,
		Opportunities: rows,
	})
}

// ReportOutcome sends the execution outcome to the TUI.
func (r *TUIReporter) ReportOutcome(o domain.Outcome) {
	row := components.ExecutionRow{
		Timestamp:   time.Now().Format("15:04:05"),
		BlockNumber: o.BlockNumber,
		State:       string(o.State),
		Reason:      o.Reason,
		GasEstimate: o.GasEstimate,
		Accepted:    o.Accepted(),
	}
	if o.Candidate != nil {
		row.Token = r.tokens.Label(o.Candidate.Token)
	}
	if o.MinerReward != nil {
		row.MinerReward = asset.NewAmount(asset.WETH, o.MinerReward).StringFixed(6)
	}
	r.send(ui.OutcomeMsg{Row: row})
}

// UpdateConnectionStatus sends connection status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
}

// Stop is a no-op; main owns the Bubble Tea program.
func (r *TUIReporter) Stop() error {
	return nil
}
