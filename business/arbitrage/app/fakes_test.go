package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/simple-arbitrage/business/arbitrage/domain"
	blockchain "github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	market "github.com/fd1az/simple-arbitrage/business/market/domain"
)

var (
	weth     = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	executor = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	tokenA   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB   = common.HexToAddress("0x00000000000000000000000000000000000000b2")

	evaluator = domain.Evaluator{Quote: weth, Probe: decimal.New(1, 16), MinProfit: decimal.New(1, 15)}

	errBoom = errors.New("boom")
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

func pool(t *testing.T, addr int64, token common.Address, tokenReserve, wethReserve string) *market.ConstantProductPair {
	t.Helper()
	p := market.NewConstantProductPair(common.BigToAddress(big.NewInt(addr)), token, weth, "UniswapV2")
	err := p.SetReserves(
		decimal.RequireFromString(tokenReserve).Shift(18),
		decimal.RequireFromString(wethReserve).Shift(18),
	)
	if err != nil {
		t.Fatalf("SetReserves: %v", err)
	}
	return p
}

// rankedFixture returns two crossed tokens, tokenA ranked first.
func rankedFixture(t *testing.T) []domain.CrossedMarketDetails {
	t.Helper()
	byToken := map[common.Address][]market.Market{
		tokenA: {pool(t, 1, tokenA, "550", "100"), pool(t, 2, tokenA, "175", "100")},
		tokenB: {pool(t, 3, tokenB, "20", "10"), pool(t, 4, tokenB, "17.5", "10")},
	}
	ev := evaluator.Evaluate(market.GroupedMarkets{
		MarketsByToken: byToken,
		AllMarkets:     append(append([]market.Market{}, byToken[tokenA]...), byToken[tokenB]...),
	})
	if len(ev.Ranked) != 2 || ev.Ranked[0].Token != tokenA {
		t.Fatalf("unexpected fixture ranking: %v", ev.Ranked)
	}
	return ev.Ranked
}

type gasResult struct {
	gas uint64
	err error
}

// fakeChain records built calls and answers estimates from a queue.
type fakeChain struct {
	gas       []gasResult
	buildErr  error
	calls     []blockchain.MultiCall
	estimates int
}

func (f *fakeChain) BuildTransaction(_ context.Context, call blockchain.MultiCall) (*blockchain.TxRequest, error) {
	f.calls = append(f.calls, call)
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return &blockchain.TxRequest{
		ChainID: big.NewInt(1),
		To:      call.Executor,
		Data:    []byte{0x01},
		Value:   new(big.Int),
	}, nil
}

func (f *fakeChain) EstimateGas(_ context.Context, _ *blockchain.TxRequest) (uint64, error) {
	r := gasResult{gas: 250_000}
	if f.estimates < len(f.gas) {
		r = f.gas[f.estimates]
	}
	f.estimates++
	return r.gas, r.err
}

// fakeRelay records every relay interaction.
type fakeRelay struct {
	signErr   error
	sim       *blockchain.SimulationResult
	simErr    error
	submitErr map[uint64]error

	signed    []*blockchain.TxRequest
	simulated []uint64
	submitted []uint64
}

func (f *fakeRelay) Sign(_ context.Context, tx *blockchain.TxRequest) (*blockchain.SignedBundle, error) {
	f.signed = append(f.signed, tx)
	if f.signErr != nil {
		return nil, f.signErr
	}
	return &blockchain.SignedBundle{Transactions: [][]byte{{0xaa}}}, nil
}

func (f *fakeRelay) Simulate(_ context.Context, _ *blockchain.SignedBundle, target uint64) (*blockchain.SimulationResult, error) {
	f.simulated = append(f.simulated, target)
	if f.simErr != nil {
		return nil, f.simErr
	}
	if f.sim != nil {
		return f.sim, nil
	}
	return &blockchain.SimulationResult{CoinbaseDiff: big.NewInt(4_000_000_000_000_000), TotalGasUsed: 200_000}, nil
}

func (f *fakeRelay) Submit(_ context.Context, _ *blockchain.SignedBundle, target uint64) (*blockchain.SubmissionAck, error) {
	f.submitted = append(f.submitted, target)
	if err := f.submitErr[target]; err != nil {
		return nil, err
	}
	return &blockchain.SubmissionAck{BundleHash: "0xbundle", TargetBlock: target}, nil
}

// fakeSync counts syncs and optionally fails.
type fakeSync struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeSync) Sync(_ context.Context, _ []market.Market) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeSync) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSync) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMarkets struct {
	grouped market.GroupedMarkets
}

func (f fakeMarkets) Markets() market.GroupedMarkets { return f.grouped }

// fakeBlocks hands out a caller-controlled channel.
type fakeBlocks struct {
	ch  chan *blockchain.Block
	err error
}

func (f *fakeBlocks) Subscribe(_ context.Context) (<-chan *blockchain.Block, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

// fakeReporter records what the service reported.
type fakeReporter struct {
	mu       sync.Mutex
	blocks   []uint64
	scans    []ScanReport
	outcomes []domain.Outcome
	stopped  bool
}

func (f *fakeReporter) Start(context.Context) error { return nil }

func (f *fakeReporter) ReportBlock(b *blockchain.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, b.Number)
}

func (f *fakeReporter) ReportScan(r ScanReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, r)
}

func (f *fakeReporter) ReportOutcome(o domain.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
}

func (f *fakeReporter) UpdateConnectionStatus(string, bool, time.Duration) {}

func (f *fakeReporter) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeReporter) snapshot() ([]uint64, []ScanReport, []domain.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.blocks...),
		append([]ScanReport(nil), f.scans...),
		append([]domain.Outcome(nil), f.outcomes...)
}
