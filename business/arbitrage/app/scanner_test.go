package app

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	market "github.com/fd1az/simple-arbitrage/business/market/domain"
)

func crossedMarkets(t *testing.T) market.GroupedMarkets {
	t.Helper()
	a1, a2 := pool(t, 1, tokenA, "550", "100"), pool(t, 2, tokenA, "175", "100")
	b1, b2 := pool(t, 3, tokenB, "20", "10"), pool(t, 4, tokenB, "17.5", "10")
	return market.GroupedMarkets{
		MarketsByToken: map[common.Address][]market.Market{
			tokenA: {a1, a2},
			tokenB: {b1, b2},
		},
		AllMarkets: []market.Market{a1, a2, b1, b2},
	}
}

func TestScanner_RefreshAndScan(t *testing.T) {
	sync := &fakeSync{}
	s, err := NewScanner(sync, evaluator, &mockLogger{})
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	ev, err := s.RefreshAndScan(context.Background(), crossedMarkets(t))
	if err != nil {
		t.Fatalf("RefreshAndScan: %v", err)
	}

	if sync.calls != 1 {
		t.Errorf("sync calls = %d, want 1", sync.calls)
	}
	if len(ev.Ranked) != 2 {
		t.Fatalf("ranked = %d, want 2", len(ev.Ranked))
	}
	if ev.Ranked[0].Token != tokenA || ev.Ranked[1].Token != tokenB {
		t.Errorf("ranking = [%s %s], want [tokenA tokenB]", ev.Ranked[0].Token.Hex(), ev.Ranked[1].Token.Hex())
	}
	if !ev.Ranked[0].Profit.GreaterThan(ev.Ranked[1].Profit) {
		t.Errorf("ranked not sorted by profit descending")
	}
}

func TestScanner_SyncFailure(t *testing.T) {
	s, err := NewScanner(&fakeSync{err: errBoom}, evaluator, &mockLogger{})
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	ev, err := s.RefreshAndScan(context.Background(), crossedMarkets(t))
	if err == nil {
		t.Fatal("expected sync error")
	}
	if len(ev.Ranked) != 0 {
		t.Errorf("ranked = %d after failed sync, want 0", len(ev.Ranked))
	}
}

func TestScanner_NoMarkets(t *testing.T) {
	s, err := NewScanner(&fakeSync{}, evaluator, &mockLogger{})
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	ev, err := s.RefreshAndScan(context.Background(), market.GroupedMarkets{})
	if err != nil {
		t.Fatalf("RefreshAndScan: %v", err)
	}
	if len(ev.Ranked) != 0 || ev.Crossed != 0 {
		t.Errorf("evaluation = %+v, want empty", ev)
	}
}
