// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	market "github.com/fd1az/simple-arbitrage/business/market/domain"
)

// CrossedPair is a candidate: the token is cheap on BuyFrom and rich on SellTo.
type CrossedPair struct {
	BuyFrom market.Market
	SellTo  market.Market
}

// CrossedMarketDetails is a scored opportunity for one token.
// Profit and Volume are quote-token amounts in wei. Markets are shared, not owned.
type CrossedMarketDetails struct {
	Profit  decimal.Decimal
	Volume  decimal.Decimal
	Token   common.Address
	BuyFrom market.Market
	SellTo  market.Market
}

func (c CrossedMarketDetails) String() string {
	return fmt.Sprintf("token %s profit %s volume %s buy %s (%s) sell %s (%s)",
		c.Token.Hex(),
		c.Profit.Shift(-18).StringFixed(6),
		c.Volume.Shift(-18).StringFixed(6),
		c.BuyFrom.Protocol(), c.BuyFrom.Address().Hex(),
		c.SellTo.Protocol(), c.SellTo.Address().Hex(),
	)
}
