// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/simple-arbitrage/business/arbitrage/app"
	"github.com/fd1az/simple-arbitrage/business/arbitrage/domain"
	blockchain "github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/asset"
)

// ConsoleReporter implements app.Reporter for CLI output.
type ConsoleReporter struct {
	out    io.Writer
	tokens *asset.Registry
}

// NewConsoleReporter creates a ConsoleReporter writing to stdout.
func NewConsoleReporter(tokens *asset.Registry) *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout, tokens)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to out.
func NewConsoleReporterTo(out io.Writer, tokens *asset.Registry) *ConsoleReporter {
	if tokens == nil {
		tokens = asset.DefaultRegistry()
	}
	return &ConsoleReporter{out: out, tokens: tokens}
}

var _ app.Reporter = (*ConsoleReporter)(nil)

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Simple Arbitrage Started")
	fmt.Fprintln(r.out, "========================")
	return nil
}

// ReportBlock prints the block that starts a cycle.
func (r *ConsoleReporter) ReportBlock(b *blockchain.Block) {
	fmt.Fprintf(r.out, "[%s] block #%d\n", time.Now().Format("15:04:05"), b.Number)
}

// ReportScan prints the ranked crossed markets of a cycle.
func (r *ConsoleReporter) ReportScan(rep app.ScanReport) {
	fmt.Fprintf(r.out, "scanned %d markets across %d tokens in %s: %d crossed, %d above dust\n",
		rep.Markets, rep.Tokens, rep.Duration.Round(time.Millisecond), rep.Crossed, len(rep.Ranked))
	if len(rep.Ranked) == 0 {
		return
	}

	fmt.Fprintln(r.out, strings.Repeat("-", 80))
	for i, c := range rep.Ranked {
		fmt.Fprintf(r.out, "%2d. %-12s buy %-12s sell %-12s volume %s profit %s\n",
			i+1,
			r.tokens.Label(c.Token),
			string(c.BuyFrom.Protocol()),
			string(c.SellTo.Protocol()),
			formatWETH(c.Volume),
			formatWETH(c.Profit),
		)
	}
	fmt.Fprintln(r.out, strings.Repeat("-", 80))
}

// ReportOutcome prints what execution did.
func (r *ConsoleReporter) ReportOutcome(o domain.Outcome) {
	switch o.State {
	case domain.StateSubmitted:
		fmt.Fprintln(r.out, "================================================================================")
		fmt.Fprintln(r.out, "BUNDLE SUBMITTED")
		fmt.Fprintln(r.out, "================================================================================")
		fmt.Fprintf(r.out, "Block:          #%d\n", o.BlockNumber)
		if o.Candidate != nil {
			fmt.Fprintf(r.out, "Token:          %s\n", r.tokens.Label(o.Candidate.Token))
			fmt.Fprintf(r.out, "Buy from:       %s (%s)\n", o.Candidate.BuyFrom.Address().Hex(), o.Candidate.BuyFrom.Protocol())
			fmt.Fprintf(r.out, "Sell to:        %s (%s)\n", o.Candidate.SellTo.Address().Hex(), o.Candidate.SellTo.Protocol())
			fmt.Fprintf(r.out, "Volume:         %s\n", formatWETH(o.Candidate.Volume))
			fmt.Fprintf(r.out, "Profit:         %s\n", formatWETH(o.Candidate.Profit))
		}
		fmt.Fprintf(r.out, "Gas estimate:   %d\n", o.GasEstimate)
		if o.MinerReward != nil {
			fmt.Fprintf(r.out, "Miner reward:   %s\n", asset.NewAmount(asset.WETH, o.MinerReward).StringFixed(6))
		}
		for _, s := range o.Submissions {
			if s.Err != nil {
				fmt.Fprintf(r.out, "  -> block %d: rejected (%v)\n", s.TargetBlock, s.Err)
			} else {
				fmt.Fprintf(r.out, "  -> block %d: %s\n", s.TargetBlock, s.BundleHash)
			}
		}
		fmt.Fprintln(r.out, "================================================================================")
	case domain.StateAborted:
		fmt.Fprintf(r.out, "block #%d aborted: %s\n", o.BlockNumber, o.Reason)
		for _, s := range o.Skipped {
			fmt.Fprintf(r.out, "  skipped %s: %s\n", r.tokens.Label(s.Candidate.Token), s.Reason)
		}
	default:
		fmt.Fprintf(r.out, "block #%d: %s\n", o.BlockNumber, o.Reason)
	}
}

// UpdateConnectionStatus outputs connection status changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency)
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Simple Arbitrage Stopped")
	return nil
}

// formatWETH renders a wei amount as WETH with six decimals.
func formatWETH(wei decimal.Decimal) string {
	a, err := asset.FromRaw(asset.WETH, wei)
	if err != nil {
		return wei.Shift(-18).StringFixed(6) + " WETH"
	}
	return a.StringFixed(6)
}
