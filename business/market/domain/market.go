// Package domain contains the market abstraction and constant-product pricing.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Protocol labels a market's origin (factory name).
type Protocol string

// Kind identifies the AMM curve family of a market.
type Kind string

const (
	// KindConstantProduct is the x*y=k pricing family (Uniswap V2 and forks).
	KindConstantProduct Kind = "constant_product"
)

// CallData is an ordered list of contract calls, targets[i] receiving payloads[i].
type CallData struct {
	Targets  []common.Address
	Payloads [][]byte
}

// Len returns the number of calls.
func (c CallData) Len() int {
	return len(c.Targets)
}

// Append adds one call to the end of the sequence.
func (c *CallData) Append(target common.Address, payload []byte) {
	c.Targets = append(c.Targets, target)
	c.Payloads = append(c.Payloads, payload)
}

// Market is one trading pair whose price is a function of its pooled reserves.
// Detector and solver only depend on this contract, so new curve families
// plug in without touching them.
type Market interface {
	Address() common.Address
	Tokens() [2]common.Address
	Protocol() Protocol
	Kind() Kind
	HasToken(token common.Address) bool

	// Reserve returns the pooled balance of token.
	Reserve(token common.Address) (decimal.Decimal, error)
	// SetReserves publishes both balances at once, ordered as Tokens().
	SetReserves(reserve0, reserve1 decimal.Decimal) error

	QuoteOut(tokenIn, tokenOut common.Address, amountIn decimal.Decimal) (decimal.Decimal, error)
	QuoteIn(tokenIn, tokenOut common.Address, amountOut decimal.Decimal) (decimal.Decimal, error)
	// SwapOut is the exact on-chain output, in wei, for amountIn wei of tokenIn.
	SwapOut(tokenIn common.Address, amountIn *big.Int) (*big.Int, error)

	// BuildSwapCall encodes a swap of amountIn of tokenIn paying out to recipient.
	BuildSwapCall(tokenIn common.Address, amountIn decimal.Decimal, recipient common.Address) ([]byte, error)
	// BuildRoutedCall encodes a swap whose output lands directly in next.
	BuildRoutedCall(tokenIn common.Address, amountIn decimal.Decimal, next Market) (CallData, error)

	// ReceiveDirectly reports whether token can be sent straight to the market
	// ahead of a swap, without an approval or transfer hop.
	ReceiveDirectly(token common.Address) bool
	// PrepareReceive returns the calls needed before the market can accept amount of token.
	PrepareReceive(token common.Address, amount decimal.Decimal) (CallData, error)
}

// Curve is the swap output as a linear-fractional function of the input:
// out = A*in / (B + C*in).
type Curve struct {
	A decimal.Decimal
	B decimal.Decimal
	C decimal.Decimal
}

// Out evaluates the curve at in.
func (c Curve) Out(in decimal.Decimal) decimal.Decimal {
	den := c.B.Add(c.C.Mul(in))
	if den.IsZero() {
		return decimal.Zero
	}
	return c.A.Mul(in).Div(den)
}

// Then composes c followed by next: next(c(in)).
func (c Curve) Then(next Curve) Curve {
	return Curve{
		A: c.A.Mul(next.A),
		B: c.B.Mul(next.B),
		C: next.B.Mul(c.C).Add(next.C.Mul(c.A)),
	}
}

// CurveQuoter is implemented by markets whose swap output is linear-fractional.
type CurveQuoter interface {
	SwapCurve(tokenIn, tokenOut common.Address) (Curve, error)
}
