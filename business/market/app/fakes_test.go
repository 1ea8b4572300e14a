package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/simple-arbitrage/business/market/domain"
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

// fakeReader serves reserves from a map, or a fixed error.
type fakeReader struct {
	reserves map[common.Address]domain.Reserves
	drop     int // trailing results to omit
	err      error
	calls    [][]common.Address
}

func (f *fakeReader) BatchGetReserves(_ context.Context, pairs []common.Address) ([]domain.Reserves, error) {
	f.calls = append(f.calls, pairs)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Reserves, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, f.reserves[p])
	}
	return out[:len(out)-f.drop], nil
}

// fakeSource pages through a fixed listing per factory.
type fakeSource struct {
	pairs map[common.Address][]domain.PairInfo
	calls int
}

func (f *fakeSource) PairsByIndexRange(_ context.Context, factory common.Address, start, stop int64) ([]domain.PairInfo, error) {
	f.calls++
	all := f.pairs[factory]
	if start >= int64(len(all)) {
		return nil, nil
	}
	if stop > int64(len(all)) {
		stop = int64(len(all))
	}
	return all[start:stop], nil
}

type fakeCache struct {
	stored map[common.Address][]domain.PairInfo
}

func (f *fakeCache) GetPairs(_ context.Context, factory common.Address) ([]domain.PairInfo, bool, error) {
	p, ok := f.stored[factory]
	return p, ok, nil
}

func (f *fakeCache) SetPairs(_ context.Context, factory common.Address, pairs []domain.PairInfo) error {
	if f.stored == nil {
		f.stored = make(map[common.Address][]domain.PairInfo)
	}
	f.stored[factory] = pairs
	return nil
}

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func addr(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}
