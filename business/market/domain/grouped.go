package domain

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// GroupedMarkets indexes the tracked markets by their non-quote token.
// Membership is fixed after load; only reserves change.
type GroupedMarkets struct {
	MarketsByToken map[common.Address][]Market
	AllMarkets     []Market
}

// Tokens returns the grouped tokens in ascending address order.
func (g GroupedMarkets) Tokens() []common.Address {
	tokens := make([]common.Address, 0, len(g.MarketsByToken))
	for token := range g.MarketsByToken {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return bytes.Compare(tokens[i][:], tokens[j][:]) < 0
	})
	return tokens
}

// Len returns the number of tracked markets.
func (g GroupedMarkets) Len() int {
	return len(g.AllMarkets)
}

// GroupByToken groups markets trading against quote by their other token,
// dropping tokens traded on fewer than minMarkets venues. Markets that do not
// hold quote are ignored. Input order is kept within each group.
func GroupByToken(markets []Market, quote common.Address, minMarkets int) GroupedMarkets {
	byToken := make(map[common.Address][]Market)
	for _, m := range markets {
		other, ok := otherToken(m, quote)
		if !ok {
			continue
		}
		byToken[other] = append(byToken[other], m)
	}

	for token, ms := range byToken {
		if len(ms) < minMarkets {
			delete(byToken, token)
		}
	}

	all := make([]Market, 0, len(markets))
	for _, m := range markets {
		if other, ok := otherToken(m, quote); ok {
			if _, kept := byToken[other]; kept {
				all = append(all, m)
			}
		}
	}

	return GroupedMarkets{MarketsByToken: byToken, AllMarkets: all}
}

// FilterByQuoteReserve keeps markets holding at least minReserve of quote.
// Markets without loaded reserves are dropped.
func FilterByQuoteReserve(markets []Market, quote common.Address, minReserve decimal.Decimal) []Market {
	kept := make([]Market, 0, len(markets))
	for _, m := range markets {
		reserve, err := m.Reserve(quote)
		if err != nil {
			continue
		}
		if reserve.GreaterThanOrEqual(minReserve) {
			kept = append(kept, m)
		}
	}
	return kept
}

func otherToken(m Market, quote common.Address) (common.Address, bool) {
	tokens := m.Tokens()
	switch quote {
	case tokens[0]:
		return tokens[1], true
	case tokens[1]:
		return tokens[0], true
	default:
		return common.Address{}, false
	}
}
