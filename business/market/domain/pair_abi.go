package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// PairABI holds the subset of the Uniswap V2 pair interface used to build swaps.
const PairABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amount0Out", "type": "uint256"},
			{"internalType": "uint256", "name": "amount1Out", "type": "uint256"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "bytes", "name": "data", "type": "bytes"}
		],
		"name": "swap",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var pairABI = mustParseABI(PairABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("invalid pair ABI: " + err.Error())
	}
	return parsed
}
