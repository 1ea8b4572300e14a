package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
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

var errRPC = errors.New("rpc unavailable")

// fakeNode answers the gas and nonce calls the builder and oracle make.
type fakeNode struct {
	mu sync.Mutex

	price       *big.Int
	priceErr    error
	priceCalls  int
	gas         uint64
	gasErr      error
	estimates   []ethereum.CallMsg
	nonce       uint64
	nonceErr    error
	nonceLookup []common.Address
}

func (f *fakeNode) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return new(big.Int).Set(f.price), nil
}

func (f *fakeNode) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimates = append(f.estimates, msg)
	return f.gas, f.gasErr
}

func (f *fakeNode) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonceLookup = append(f.nonceLookup, account)
	return f.nonce, f.nonceErr
}
