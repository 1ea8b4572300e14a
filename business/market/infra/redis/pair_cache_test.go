package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/simple-arbitrage/business/market/domain"
)

func TestPairsKey(t *testing.T) {
	factory := common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	want := "pairs:1:0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
	if got := pairsKey(1, factory); got != want {
		t.Errorf("pairsKey = %q, want %q", got, want)
	}
}

func TestDecodePairs(t *testing.T) {
	stored := []domain.PairInfo{{
		Address: common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"),
		Token0:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		Token1:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
	}}
	data, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := decodePairs(data)
	if err != nil {
		t.Fatalf("decodePairs: %v", err)
	}
	if len(got) != 1 || got[0] != stored[0] {
		t.Errorf("decoded %+v, want %+v", got, stored)
	}

	if _, err := decodePairs([]byte("{not json")); err == nil {
		t.Error("expected error for corrupt entry")
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := New(ctx, "not-a-redis-url"); err == nil {
		t.Error("expected parse error")
	}
}
