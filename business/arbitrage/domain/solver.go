package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	market "github.com/fd1az/simple-arbitrage/business/market/domain"
)

const (
	floatPrec     = 256
	maxIterations = 400
	searchScale   = 6 // decimal places kept on search points, sub-wei
)

var (
	goldenRatio = decimal.RequireFromString("0.6180339887498948482045868343656381")
	oneWei      = decimal.NewFromInt(1)
)

// Trade is the optimal spend for a crossed pair and the profit it yields.
type Trade struct {
	Volume decimal.Decimal
	Profit decimal.Decimal
}

// Profit returns quote received from selling on sellTo what spending volume on
// buyFrom buys, minus volume.
func Profit(buyFrom, sellTo market.Market, token, quote common.Address, volume decimal.Decimal) (decimal.Decimal, error) {
	tokens, err := buyFrom.QuoteOut(quote, token, volume)
	if err != nil {
		return decimal.Zero, err
	}
	proceeds, err := sellTo.QuoteOut(token, quote, tokens)
	if err != nil {
		return decimal.Zero, err
	}
	return proceeds.Sub(volume), nil
}

// Solve finds the spend maximising Profit. ok is false when no positive
// stationary point exists. Markets exposing a swap curve are solved in closed
// form; others fall back to a golden-section search bounded by the buy
// market's quote reserve.
func Solve(buyFrom, sellTo market.Market, token, quote common.Address) (Trade, bool, error) {
	buyCurve, buyOK := buyFrom.(market.CurveQuoter)
	sellCurve, sellOK := sellTo.(market.CurveQuoter)
	if buyOK && sellOK {
		return solveClosedForm(buyCurve, sellCurve, buyFrom, sellTo, token, quote)
	}
	return solveGoldenSection(buyFrom, sellTo, token, quote)
}

// solveClosedForm composes both curves into out = A*x/(B + C*x). Setting the
// derivative of out - x to zero gives C²x² + 2BCx + B² - AB = 0, whose roots
// are (-B ± sqrt(AB))/C. Only a positive root is admissible, which requires A > B.
func solveClosedForm(buyCurve, sellCurve market.CurveQuoter, buyFrom, sellTo market.Market, token, quote common.Address) (Trade, bool, error) {
	c1, err := buyCurve.SwapCurve(quote, token)
	if err != nil {
		return Trade{}, false, err
	}
	c2, err := sellCurve.SwapCurve(token, quote)
	if err != nil {
		return Trade{}, false, err
	}
	k := c1.Then(c2)
	if !k.C.IsPositive() || !k.A.GreaterThan(k.B) {
		return Trade{}, false, nil
	}

	var best *Trade
	for _, root := range quadraticRoots(
		k.C.Mul(k.C),
		k.B.Mul(k.C).Mul(decimal.NewFromInt(2)),
		k.B.Mul(k.B).Sub(k.A.Mul(k.B)),
	) {
		if !root.IsPositive() {
			continue
		}
		profit, err := Profit(buyFrom, sellTo, token, quote, root)
		if err != nil {
			return Trade{}, false, err
		}
		if best == nil || profit.GreaterThan(best.Profit) {
			best = &Trade{Volume: root, Profit: profit}
		}
	}
	if best == nil {
		return Trade{}, false, nil
	}
	return *best, true, nil
}

// quadraticRoots returns the real roots of a*x² + b*x + c.
func quadraticRoots(a, b, c decimal.Decimal) []decimal.Decimal {
	if a.IsZero() {
		if b.IsZero() {
			return nil
		}
		return []decimal.Decimal{c.Neg().Div(b)}
	}

	fa, fb, fc := toFloat(a), toFloat(b), toFloat(c)

	disc := newFloat().Mul(fb, fb)
	disc.Sub(disc, newFloat().Mul(newFloat().Mul(big.NewFloat(4), fa), fc))
	if disc.Sign() < 0 {
		return nil
	}
	sq := newFloat().Sqrt(disc)
	twoA := newFloat().Mul(big.NewFloat(2), fa)
	negB := newFloat().Neg(fb)

	r1 := newFloat().Quo(newFloat().Add(negB, sq), twoA)
	r2 := newFloat().Quo(newFloat().Sub(negB, sq), twoA)
	return []decimal.Decimal{fromFloat(r1), fromFloat(r2)}
}

// solveGoldenSection searches (0, quote reserve of buyFrom] for the maximum of
// the concave profit curve, narrowing the bracket to one wei.
func solveGoldenSection(buyFrom, sellTo market.Market, token, quote common.Address) (Trade, bool, error) {
	hi, err := buyFrom.Reserve(quote)
	if err != nil {
		return Trade{}, false, err
	}
	if !hi.IsPositive() {
		return Trade{}, false, nil
	}
	lo := decimal.Zero

	profitAt := func(x decimal.Decimal) (decimal.Decimal, error) {
		if !x.IsPositive() {
			return decimal.Zero, nil
		}
		return Profit(buyFrom, sellTo, token, quote, x)
	}

	x1 := hi.Sub(hi.Sub(lo).Mul(goldenRatio)).Round(searchScale)
	x2 := lo.Add(hi.Sub(lo).Mul(goldenRatio)).Round(searchScale)
	f1, err := profitAt(x1)
	if err != nil {
		return Trade{}, false, err
	}
	f2, err := profitAt(x2)
	if err != nil {
		return Trade{}, false, err
	}

	for i := 0; i < maxIterations && hi.Sub(lo).GreaterThan(oneWei); i++ {
		if f1.LessThan(f2) {
			lo, x1, f1 = x1, x2, f2
			x2 = lo.Add(hi.Sub(lo).Mul(goldenRatio)).Round(searchScale)
			if f2, err = profitAt(x2); err != nil {
				return Trade{}, false, err
			}
		} else {
			hi, x2, f2 = x2, x1, f1
			x1 = hi.Sub(hi.Sub(lo).Mul(goldenRatio)).Round(searchScale)
			if f1, err = profitAt(x1); err != nil {
				return Trade{}, false, err
			}
		}
	}

	volume := lo.Add(hi).Div(decimal.NewFromInt(2))
	profit, err := profitAt(volume)
	if err != nil {
		return Trade{}, false, err
	}
	if !volume.IsPositive() || !profit.IsPositive() {
		return Trade{}, false, nil
	}
	return Trade{Volume: volume, Profit: profit}, true, nil
}

func newFloat() *big.Float {
	return new(big.Float).SetPrec(floatPrec)
}

func toFloat(d decimal.Decimal) *big.Float {
	f, _ := newFloat().SetString(d.String())
	return f
}

func fromFloat(f *big.Float) decimal.Decimal {
	d, err := decimal.NewFromString(f.Text('f', 24))
	if err != nil {
		return decimal.Zero
	}
	return d
}
