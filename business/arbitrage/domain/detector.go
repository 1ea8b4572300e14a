package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	market "github.com/fd1az/simple-arbitrage/business/market/domain"
)

// PricedMarket is a market probed at the reference volume.
//   - BuyPrice: tokens needed to receive the probe amount of quote.
//   - SellPrice: tokens received for the probe amount of quote.
type PricedMarket struct {
	Market    market.Market
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
}

// MarketFailure records a market that could not be priced or solved.
type MarketFailure struct {
	Market market.Market
	Token  common.Address
	Err    error
}

// PriceMarkets probes every market for token at the probe volume of quote.
// Markets that fail to price are returned separately and take no further part.
func PriceMarkets(markets []market.Market, token, quote common.Address, probe decimal.Decimal) ([]PricedMarket, []MarketFailure) {
	priced := make([]PricedMarket, 0, len(markets))
	var failed []MarketFailure

	for _, m := range markets {
		buy, err := m.QuoteIn(token, quote, probe)
		if err != nil {
			failed = append(failed, MarketFailure{Market: m, Token: token, Err: err})
			continue
		}
		sell, err := m.QuoteOut(quote, token, probe)
		if err != nil {
			failed = append(failed, MarketFailure{Market: m, Token: token, Err: err})
			continue
		}
		priced = append(priced, PricedMarket{Market: m, BuyPrice: buy, SellPrice: sell})
	}
	return priced, failed
}

// CrossedPairs returns every ordered pair where spending quote on one market
// yields more tokens than the other market charges for the same quote amount.
// The token is bought where it is cheap (high SellPrice) and sold where the
// BuyPrice is low. Cost is O(n^2) in the number of markets.
func CrossedPairs(priced []PricedMarket) []CrossedPair {
	var pairs []CrossedPair
	for i, sellTo := range priced {
		for j, buyFrom := range priced {
			if i == j {
				continue
			}
			if buyFrom.SellPrice.GreaterThan(sellTo.BuyPrice) {
				pairs = append(pairs, CrossedPair{BuyFrom: buyFrom.Market, SellTo: sellTo.Market})
			}
		}
	}
	return pairs
}
