package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/simple-arbitrage/business/market/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
)

var weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

func TestSynchronizer_Sync(t *testing.T) {
	m1 := domain.NewConstantProductPair(addr(1), addr(100), weth, "UniswapV2")
	m2 := domain.NewConstantProductPair(addr(2), weth, addr(100), "SushiSwap")

	reader := &fakeReader{reserves: map[common.Address]domain.Reserves{
		addr(1): {Reserve0: eth(10), Reserve1: eth(5)},
		addr(2): {Reserve0: eth(7), Reserve1: eth(3)},
	}}
	s := NewSynchronizer(reader, &mockLogger{})

	if err := s.Sync(context.Background(), []domain.Market{m1, m2}); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if len(reader.calls) != 1 || len(reader.calls[0]) != 2 {
		t.Fatalf("expected one batched read of 2 pairs, got %v", reader.calls)
	}

	got, _ := m2.Reserve(weth)
	if got.BigInt().Cmp(eth(7)) != 0 {
		t.Errorf("m2 WETH reserve = %s, want 7e18", got)
	}
	got, _ = m1.Reserve(weth)
	if got.BigInt().Cmp(eth(5)) != 0 {
		t.Errorf("m1 WETH reserve = %s, want 5e18", got)
	}
}

func TestSynchronizer_Failures(t *testing.T) {
	newMarkets := func() []domain.Market {
		return []domain.Market{
			domain.NewConstantProductPair(addr(1), addr(100), weth, "UniswapV2"),
			domain.NewConstantProductPair(addr(2), addr(100), weth, "UniswapV2"),
		}
	}
	full := map[common.Address]domain.Reserves{
		addr(1): {Reserve0: eth(1), Reserve1: eth(1)},
		addr(2): {Reserve0: eth(1), Reserve1: eth(1)},
	}

	tests := []struct {
		name   string
		reader *fakeReader
		want   apperror.Code
	}{
		{
			name:   "count_mismatch",
			reader: &fakeReader{reserves: full, drop: 1},
			want:   apperror.CodeReserveCountMismatch,
		},
		{
			name:   "reader_error",
			reader: &fakeReader{err: errors.New("connection refused")},
			want:   apperror.CodeContractCallFailed,
		},
		{
			name: "negative_reserve",
			reader: &fakeReader{reserves: map[common.Address]domain.Reserves{
				addr(1): {Reserve0: eth(1), Reserve1: eth(1)},
				addr(2): {Reserve0: big.NewInt(-1), Reserve1: eth(1)},
			}},
			want: apperror.CodeInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markets := newMarkets()
			err := NewSynchronizer(tt.reader, &mockLogger{}).Sync(context.Background(), markets)
			if got := apperror.GetCode(err); got != tt.want {
				t.Fatalf("code = %s, want %s (%v)", got, tt.want, err)
			}
			for _, m := range markets {
				if _, err := m.Reserve(weth); apperror.GetCode(err) != apperror.CodeReservesNotLoaded {
					t.Errorf("market %s was written despite failed sync", m.Address().Hex())
				}
			}
		})
	}
}

func TestSynchronizer_EmptyIsNoop(t *testing.T) {
	reader := &fakeReader{}
	if err := NewSynchronizer(reader, &mockLogger{}).Sync(context.Background(), nil); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(reader.calls) != 0 {
		t.Errorf("reader called for empty market list")
	}
}
