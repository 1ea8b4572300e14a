// Package asset describes ERC-20 tokens for display: symbols, names and
// decimal scaling of raw on-chain amounts.
package asset

import "github.com/ethereum/go-ethereum/common"

// Asset is the display metadata of a token. The address is its identity.
type Asset struct {
	address  common.Address
	symbol   string
	name     string
	decimals uint8
}

// NewToken creates an Asset.
func NewToken(address common.Address, symbol, name string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}

	return &Asset{
		address:  address,
		symbol:   symbol,
		name:     name,
		decimals: decimals,
	}
}

func (a *Asset) Address() common.Address { return a.address }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Decimals() uint8         { return a.decimals }

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

func (a *Asset) String() string {
	return a.symbol
}

// Equals compares two Assets by address.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.address == other.address
}
