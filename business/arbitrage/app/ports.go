// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/simple-arbitrage/business/arbitrage/domain"
	blockchain "github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	market "github.com/fd1az/simple-arbitrage/business/market/domain"
)

// ChainWriter turns a multi-call into a transaction and prices its gas.
type ChainWriter interface {
	BuildTransaction(ctx context.Context, call blockchain.MultiCall) (*blockchain.TxRequest, error)
	EstimateGas(ctx context.Context, tx *blockchain.TxRequest) (uint64, error)
}

// BundleRelay signs, simulates and submits private bundles.
type BundleRelay interface {
	Sign(ctx context.Context, tx *blockchain.TxRequest) (*blockchain.SignedBundle, error)
	Simulate(ctx context.Context, bundle *blockchain.SignedBundle, targetBlock uint64) (*blockchain.SimulationResult, error)
	Submit(ctx context.Context, bundle *blockchain.SignedBundle, targetBlock uint64) (*blockchain.SubmissionAck, error)
}

// MarketSynchronizer refreshes reserves for a set of markets.
type MarketSynchronizer interface {
	Sync(ctx context.Context, markets []market.Market) error
}

// MarketSource exposes the tracked markets.
type MarketSource interface {
	Markets() market.GroupedMarkets
}

// BlockSource delivers new block headers.
type BlockSource interface {
	Subscribe(ctx context.Context) (<-chan *blockchain.Block, error)
}

// ScanReport describes one completed scan cycle.
type ScanReport struct {
	CycleID     string
	BlockNumber uint64
	Markets     int
	Tokens      int
	Crossed     int
	Ranked      []domain.CrossedMarketDetails
	Duration    time.Duration
}

// Reporter displays the bot's progress.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportBlock announces a block that starts a scan cycle.
	ReportBlock(block *blockchain.Block)

	// ReportScan shows the ranked opportunities of a cycle.
	ReportScan(report ScanReport)

	// ReportOutcome shows what execution did with the best opportunity.
	ReportOutcome(outcome domain.Outcome)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
