package domain

import (
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/simple-arbitrage/internal/apperror"
)

// Constant-product fee: 0.3% of the input, expressed per mille.
var (
	feeMultiplier = decimal.NewFromInt(997)
	feeBase       = decimal.NewFromInt(1000)
)

var _ Market = (*ConstantProductPair)(nil)
var _ CurveQuoter = (*ConstantProductPair)(nil)

type reservePair struct {
	reserve0 decimal.Decimal
	reserve1 decimal.Decimal
}

// ConstantProductPair is a Uniswap V2 style pair charging a 0.3% input fee.
// Reserves are swapped in as one value so readers never observe a torn update.
type ConstantProductPair struct {
	address  common.Address
	tokens   [2]common.Address
	protocol Protocol

	reserves atomic.Pointer[reservePair]
}

// NewConstantProductPair creates a pair with no reserves loaded.
func NewConstantProductPair(address common.Address, token0, token1 common.Address, protocol Protocol) *ConstantProductPair {
	return &ConstantProductPair{
		address:  address,
		tokens:   [2]common.Address{token0, token1},
		protocol: protocol,
	}
}

func (p *ConstantProductPair) Address() common.Address   { return p.address }
func (p *ConstantProductPair) Tokens() [2]common.Address { return p.tokens }
func (p *ConstantProductPair) Protocol() Protocol        { return p.protocol }
func (p *ConstantProductPair) Kind() Kind                { return KindConstantProduct }

// HasToken reports whether token is one of the pair's two tokens.
func (p *ConstantProductPair) HasToken(token common.Address) bool {
	return token == p.tokens[0] || token == p.tokens[1]
}

// Other returns the counterpart of token within the pair.
func (p *ConstantProductPair) Other(token common.Address) (common.Address, error) {
	switch token {
	case p.tokens[0]:
		return p.tokens[1], nil
	case p.tokens[1]:
		return p.tokens[0], nil
	default:
		return common.Address{}, p.unknownToken(token)
	}
}

// SetReserves publishes both balances, ordered as Tokens().
func (p *ConstantProductPair) SetReserves(reserve0, reserve1 decimal.Decimal) error {
	if reserve0.IsNegative() || reserve1.IsNegative() {
		return apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext(fmt.Sprintf("negative reserve on %s", p.address.Hex())))
	}
	p.reserves.Store(&reservePair{reserve0: reserve0, reserve1: reserve1})
	return nil
}

// SetReservesRaw is SetReserves for on-chain integer balances.
func (p *ConstantProductPair) SetReservesRaw(reserve0, reserve1 *big.Int) error {
	if reserve0 == nil || reserve1 == nil {
		return apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext(fmt.Sprintf("nil reserve on %s", p.address.Hex())))
	}
	return p.SetReserves(decimal.NewFromBigInt(reserve0, 0), decimal.NewFromBigInt(reserve1, 0))
}

// Reserve returns the balance of token held by the pair.
func (p *ConstantProductPair) Reserve(token common.Address) (decimal.Decimal, error) {
	r := p.reserves.Load()
	if r == nil {
		return decimal.Zero, apperror.New(apperror.CodeReservesNotLoaded,
			apperror.WithContext(p.address.Hex()))
	}
	switch token {
	case p.tokens[0]:
		return r.reserve0, nil
	case p.tokens[1]:
		return r.reserve1, nil
	default:
		return decimal.Zero, p.unknownToken(token)
	}
}

// reservesFor returns (reserveIn, reserveOut) from a single snapshot.
func (p *ConstantProductPair) reservesFor(tokenIn, tokenOut common.Address) (decimal.Decimal, decimal.Decimal, error) {
	if !p.HasToken(tokenIn) {
		return decimal.Zero, decimal.Zero, p.unknownToken(tokenIn)
	}
	if !p.HasToken(tokenOut) || tokenIn == tokenOut {
		return decimal.Zero, decimal.Zero, p.unknownToken(tokenOut)
	}

	r := p.reserves.Load()
	if r == nil {
		return decimal.Zero, decimal.Zero, apperror.New(apperror.CodeReservesNotLoaded,
			apperror.WithContext(p.address.Hex()))
	}
	if tokenIn == p.tokens[0] {
		return r.reserve0, r.reserve1, nil
	}
	return r.reserve1, r.reserve0, nil
}

// QuoteOut returns the output received for amountIn of tokenIn:
// in*997*Rout / (Rin*1000 + in*997).
func (p *ConstantProductPair) QuoteOut(tokenIn, tokenOut common.Address, amountIn decimal.Decimal) (decimal.Decimal, error) {
	if !amountIn.IsPositive() {
		return decimal.Zero, invalidAmount(amountIn)
	}
	reserveIn, reserveOut, err := p.reservesFor(tokenIn, tokenOut)
	if err != nil {
		return decimal.Zero, err
	}
	return getAmountOut(reserveIn, reserveOut, amountIn), nil
}

// QuoteIn returns the input needed to receive amountOut of tokenOut:
// Rin*out*1000 / ((Rout-out)*997) + 1.
func (p *ConstantProductPair) QuoteIn(tokenIn, tokenOut common.Address, amountOut decimal.Decimal) (decimal.Decimal, error) {
	if !amountOut.IsPositive() {
		return decimal.Zero, invalidAmount(amountOut)
	}
	reserveIn, reserveOut, err := p.reservesFor(tokenIn, tokenOut)
	if err != nil {
		return decimal.Zero, err
	}
	if amountOut.GreaterThanOrEqual(reserveOut) {
		return decimal.Zero, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("want %s of %s, pool holds %s on %s",
				amountOut.String(), tokenOut.Hex(), reserveOut.String(), p.address.Hex())))
	}
	return getAmountIn(reserveIn, reserveOut, amountOut), nil
}

// SwapCurve returns the pair's output curve: A = 997*Rout, B = 1000*Rin, C = 997.
func (p *ConstantProductPair) SwapCurve(tokenIn, tokenOut common.Address) (Curve, error) {
	reserveIn, reserveOut, err := p.reservesFor(tokenIn, tokenOut)
	if err != nil {
		return Curve{}, err
	}
	return Curve{
		A: feeMultiplier.Mul(reserveOut),
		B: feeBase.Mul(reserveIn),
		C: feeMultiplier,
	}, nil
}

// SwapOut returns the wei the pair contract pays out for amountIn wei of
// tokenIn. It is the contract's integer getAmountOut, so a swap asking for
// exactly this much never fails the K check.
func (p *ConstantProductPair) SwapOut(tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	if amountIn == nil {
		return nil, invalidAmount(decimal.Zero)
	}
	if amountIn.Sign() <= 0 {
		return nil, invalidAmount(decimal.NewFromBigInt(amountIn, 0))
	}
	tokenOut, err := p.Other(tokenIn)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := p.reservesFor(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	return getAmountOutWei(reserveIn.BigInt(), reserveOut.BigInt(), amountIn), nil
}

// BuildSwapCall encodes swap(amount0Out, amount1Out, recipient, "") for
// amountIn of tokenIn. amountIn is floored to wei, the amount a transfer can
// actually move, and the output is the pair's own integer quote for it.
func (p *ConstantProductPair) BuildSwapCall(tokenIn common.Address, amountIn decimal.Decimal, recipient common.Address) ([]byte, error) {
	if !amountIn.IsPositive() {
		return nil, invalidAmount(amountIn)
	}
	amountOut, err := p.SwapOut(tokenIn, amountIn.BigInt())
	if err != nil {
		return nil, err
	}

	amount0Out, amount1Out := new(big.Int), new(big.Int)
	if tokenIn == p.tokens[0] {
		amount1Out = amountOut
	} else {
		amount0Out = amountOut
	}

	data, err := pairABI.Pack("swap", amount0Out, amount1Out, recipient, []byte{})
	if err != nil {
		return nil, apperror.New(apperror.CodeSwapEncodingFailed,
			apperror.WithCause(err),
			apperror.WithContext(p.address.Hex()))
	}
	return data, nil
}

// BuildRoutedCall sends the swap output straight into next, saving a transfer hop.
func (p *ConstantProductPair) BuildRoutedCall(tokenIn common.Address, amountIn decimal.Decimal, next Market) (CallData, error) {
	tokenOut, err := p.Other(tokenIn)
	if err != nil {
		return CallData{}, err
	}
	if next == nil || !next.ReceiveDirectly(tokenOut) {
		return CallData{}, apperror.New(apperror.CodeRouteUnsupported,
			apperror.WithContext(fmt.Sprintf("%s cannot receive %s directly", marketAddr(next), tokenOut.Hex())))
	}

	payload, err := p.BuildSwapCall(tokenIn, amountIn, next.Address())
	if err != nil {
		return CallData{}, err
	}

	var calls CallData
	calls.Append(p.address, payload)
	return calls, nil
}

// ReceiveDirectly is true for both pair tokens: pairs settle against balances.
func (p *ConstantProductPair) ReceiveDirectly(token common.Address) bool {
	return p.HasToken(token)
}

// PrepareReceive needs no calls for a pair; it only validates the input.
func (p *ConstantProductPair) PrepareReceive(token common.Address, amount decimal.Decimal) (CallData, error) {
	if !p.HasToken(token) {
		return CallData{}, p.unknownToken(token)
	}
	if !amount.IsPositive() {
		return CallData{}, invalidAmount(amount)
	}
	return CallData{}, nil
}

func (p *ConstantProductPair) unknownToken(token common.Address) error {
	return apperror.New(apperror.CodeUnknownToken,
		apperror.WithContext(fmt.Sprintf("token %s on %s", token.Hex(), p.address.Hex())))
}

func getAmountOut(reserveIn, reserveOut, amountIn decimal.Decimal) decimal.Decimal {
	inWithFee := amountIn.Mul(feeMultiplier)
	numerator := inWithFee.Mul(reserveOut)
	denominator := reserveIn.Mul(feeBase).Add(inWithFee)
	return numerator.Div(denominator)
}

func getAmountOutWei(reserveIn, reserveOut, amountIn *big.Int) *big.Int {
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(1000))
	denominator.Add(denominator, inWithFee)
	return numerator.Quo(numerator, denominator)
}

func getAmountIn(reserveIn, reserveOut, amountOut decimal.Decimal) decimal.Decimal {
	numerator := reserveIn.Mul(amountOut).Mul(feeBase)
	denominator := reserveOut.Sub(amountOut).Mul(feeMultiplier)
	return numerator.Div(denominator).Add(decimal.NewFromInt(1))
}

func invalidAmount(amount decimal.Decimal) error {
	return apperror.New(apperror.CodeInvalidAmount,
		apperror.WithContext("amount must be positive, got "+amount.String()))
}

func marketAddr(m Market) string {
	if m == nil {
		return "<nil>"
	}
	return m.Address().Hex()
}
