package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PairInfo is a pair as listed by its factory.
type PairInfo struct {
	Address common.Address `json:"address"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`
}

// Reserves is one on-chain reserve reading, ordered as the pair's tokens.
type Reserves struct {
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
}

var knownFactories = map[common.Address]Protocol{
	common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"): "UniswapV2",
	common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"): "SushiSwap",
	common.HexToAddress("0x9DEB29c9a4c7A88a3C0257393b7f3335338D9A9D"): "CroDefiSwap",
	common.HexToAddress("0xbdda21dd8da31d5bee0c9bb886c044ebb9b8906a"): "Zeus",
	common.HexToAddress("0x0388c1e0f210abae597b7de712b9510c6c36c857"): "Lua",
}

// ProtocolForFactory names the exchange behind a factory address.
func ProtocolForFactory(factory common.Address) Protocol {
	if p, ok := knownFactories[factory]; ok {
		return p
	}
	return Protocol("V2Fork-" + strings.ToLower(factory.Hex()[2:8]))
}
