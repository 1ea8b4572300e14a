package domain

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	market "github.com/fd1az/simple-arbitrage/business/market/domain"
)

// Evaluator scores every token's crossed pairs and ranks the best per token.
type Evaluator struct {
	Quote     common.Address
	Probe     decimal.Decimal // reference volume for the crossing probe
	MinProfit decimal.Decimal // dust threshold, exclusive
}

// Evaluation is the outcome of one scan over the grouped markets.
type Evaluation struct {
	// Ranked holds at most one entry per token, sorted by profit descending.
	Ranked   []CrossedMarketDetails
	Crossed  int // candidate pairs solved
	Failures []MarketFailure
}

// Evaluate finds, per token, the crossed pair with the strictly highest
// profit (ties keep the first) and keeps it when the profit clears MinProfit.
// Tokens are visited in address order so results are deterministic.
func (e Evaluator) Evaluate(grouped market.GroupedMarkets) Evaluation {
	var ev Evaluation

	for _, token := range grouped.Tokens() {
		priced, failed := PriceMarkets(grouped.MarketsByToken[token], token, e.Quote, e.Probe)
		ev.Failures = append(ev.Failures, failed...)

		pairs := CrossedPairs(priced)
		ev.Crossed += len(pairs)

		best, failed := e.bestCrossed(pairs, token)
		ev.Failures = append(ev.Failures, failed...)

		if best != nil && best.Profit.GreaterThan(e.MinProfit) {
			ev.Ranked = append(ev.Ranked, *best)
		}
	}

	SortByProfit(ev.Ranked)
	return ev
}

func (e Evaluator) bestCrossed(pairs []CrossedPair, token common.Address) (*CrossedMarketDetails, []MarketFailure) {
	var best *CrossedMarketDetails
	var failed []MarketFailure

	for _, p := range pairs {
		trade, ok, err := Solve(p.BuyFrom, p.SellTo, token, e.Quote)
		if err != nil {
			failed = append(failed, MarketFailure{Market: p.BuyFrom, Token: token, Err: err})
			continue
		}
		if !ok {
			continue
		}
		if best == nil || trade.Profit.GreaterThan(best.Profit) {
			best = &CrossedMarketDetails{
				Profit:  trade.Profit,
				Volume:  trade.Volume,
				Token:   token,
				BuyFrom: p.BuyFrom,
				SellTo:  p.SellTo,
			}
		}
	}
	return best, failed
}

// SortByProfit orders results by descending profit, keeping input order on ties.
func SortByProfit(results []CrossedMarketDetails) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Profit.GreaterThan(results[j].Profit)
	})
}
