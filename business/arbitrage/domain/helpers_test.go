package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	market "github.com/fd1az/simple-arbitrage/business/market/domain"
)

var (
	weth   = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000b2")

	probe     = decimal.New(1, 16) // 0.01 ETH
	dust      = decimal.New(1, 15) // 0.001 ETH
	evaluator = Evaluator{Quote: weth, Probe: probe, MinProfit: dust}
)

// ether converts a decimal ETH string to wei.
func ether(s string) decimal.Decimal {
	return decimal.RequireFromString(s).Shift(18)
}

// pool creates a loaded pair holding tokenReserve of token and wethReserve of WETH (both in ETH units).
func pool(tb testing.TB, addr int64, token common.Address, tokenReserve, wethReserve string) *market.ConstantProductPair {
	tb.Helper()
	p := market.NewConstantProductPair(common.BigToAddress(decimal.NewFromInt(addr).BigInt()), token, weth, "UniswapV2")
	if err := p.SetReserves(ether(tokenReserve), ether(wethReserve)); err != nil {
		tb.Fatalf("SetReserves: %v", err)
	}
	return p
}

// opaque hides SwapCurve so the solver has to search numerically.
type opaque struct {
	market.Market
}

func assertClose(t *testing.T, name string, got, want decimal.Decimal, relTol string) {
	t.Helper()
	diff := got.Sub(want).Abs()
	limit := want.Abs().Mul(decimal.RequireFromString(relTol))
	if diff.GreaterThan(limit) {
		t.Errorf("%s = %s, want %s (rel tol %s)", name, got, want, relTol)
	}
}

func grouped(byToken map[common.Address][]market.Market) market.GroupedMarkets {
	var all []market.Market
	for _, ms := range byToken {
		all = append(all, ms...)
	}
	return market.GroupedMarkets{MarketsByToken: byToken, AllMarkets: all}
}
