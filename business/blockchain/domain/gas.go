package domain

import (
	"math/big"
	"time"
)

// GasPrice is a suggested fee per gas.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{
		Wei:       new(big.Int).Set(wei),
		Timestamp: time.Now(),
	}
}

// Gwei returns the price in gwei, for display and metrics only.
func (g *GasPrice) Gwei() float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(g.Wei), big.NewFloat(1e9)).Float64()
	return f
}
