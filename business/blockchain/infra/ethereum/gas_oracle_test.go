package ethereum

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
)

func newTestOracle(t *testing.T, node *fakeNode) *GasOracle {
	t.Helper()
	g, err := NewGasOracle(node, DefaultGasOracleConfig(), &mockLogger{})
	if err != nil {
		t.Fatalf("NewGasOracle: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestGasOracle_GetGasPriceCaches(t *testing.T) {
	node := &fakeNode{price: big.NewInt(30_000_000_000)}
	g := newTestOracle(t, node)
	ctx := context.Background()

	for range 3 {
		price, err := g.GetGasPrice(ctx)
		if err != nil {
			t.Fatalf("GetGasPrice: %v", err)
		}
		if price.Gwei() != 30 {
			t.Errorf("price = %v gwei, want 30", price.Gwei())
		}
	}
	if node.priceCalls != 1 {
		t.Errorf("node asked %d times, want 1 (cached)", node.priceCalls)
	}
}

func TestGasOracle_GetGasPriceExpires(t *testing.T) {
	node := &fakeNode{price: big.NewInt(30_000_000_000)}
	g, err := NewGasOracle(node, GasOracleConfig{CacheTTL: time.Millisecond}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewGasOracle: %v", err)
	}
	defer g.Close()

	if _, err := g.GetGasPrice(context.Background()); err != nil {
		t.Fatalf("GetGasPrice: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := g.GetGasPrice(context.Background()); err != nil {
		t.Fatalf("GetGasPrice: %v", err)
	}
	if node.priceCalls != 2 {
		t.Errorf("node asked %d times, want 2 after expiry", node.priceCalls)
	}
}

func TestGasOracle_ClampsToMax(t *testing.T) {
	node := &fakeNode{price: big.NewInt(900_000_000_000)}
	g := newTestOracle(t, node)

	price, err := g.GetGasPrice(context.Background())
	if err != nil {
		t.Fatalf("GetGasPrice: %v", err)
	}
	if price.Gwei() != 500 {
		t.Errorf("price = %v gwei, want clamp at 500", price.Gwei())
	}
}

func TestGasOracle_FeeCap(t *testing.T) {
	g := newTestOracle(t, &fakeNode{price: big.NewInt(25_000_000_000)})

	feeCap, err := g.FeeCap(context.Background())
	if err != nil {
		t.Fatalf("FeeCap: %v", err)
	}
	if feeCap.Cmp(big.NewInt(50_000_000_000)) != 0 {
		t.Errorf("FeeCap = %s, want 2x suggested", feeCap)
	}
}

func TestGasOracle_PriceError(t *testing.T) {
	g := newTestOracle(t, &fakeNode{priceErr: errRPC})

	_, err := g.GetGasPrice(context.Background())
	if code := apperror.GetCode(err); code != apperror.CodeEthereumRPCError {
		t.Errorf("code = %s, want %s", code, apperror.CodeEthereumRPCError)
	}
}

func TestGasOracle_EstimateGas(t *testing.T) {
	tests := []struct {
		name     string
		gas      uint64
		gasErr   error
		want     uint64
		wantCode apperror.Code
	}{
		{name: "raw_estimate", gas: 1_300_000, want: 1_300_000},
		{name: "above_ceiling_unchanged", gas: 1_500_000, want: 1_500_000},
		{name: "revert", gasErr: errRPC, wantCode: apperror.CodeGasEstimationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &fakeNode{gas: tt.gas, gasErr: tt.gasErr}
			g := newTestOracle(t, node)

			tx := &domain.TxRequest{
				From:      common.HexToAddress("0x00000000000000000000000000000000000000aa"),
				To:        common.HexToAddress("0x00000000000000000000000000000000000000e0"),
				Data:      []byte{0xab},
				GasFeeCap: big.NewInt(1),
				GasTipCap: big.NewInt(0),
			}
			got, err := g.EstimateGas(context.Background(), tx)

			if tt.wantCode != "" {
				if code := apperror.GetCode(err); code != tt.wantCode {
					t.Errorf("code = %s, want %s", code, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("EstimateGas: %v", err)
			}
			if got != tt.want {
				t.Errorf("EstimateGas = %d, want %d", got, tt.want)
			}

			msg := node.estimates[0]
			if msg.From != tx.From || *msg.To != tx.To || msg.GasFeeCap != nil || msg.GasTipCap != nil {
				t.Errorf("call msg = %+v, want sender and target without fee fields", msg)
			}
		})
	}
}
