// Package uniswap reads Uniswap V2 style pairs through the UniswapFlashQuery helper contract.
package uniswap

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// FlashQueryABI is the read-only helper that lists factory pairs and batches getReserves.
const FlashQueryABI = `[
	{
		"inputs": [
			{"internalType": "contract UniswapV2Factory", "name": "_uniswapFactory", "type": "address"},
			{"internalType": "uint256", "name": "_start", "type": "uint256"},
			{"internalType": "uint256", "name": "_stop", "type": "uint256"}
		],
		"name": "getPairsByIndexRange",
		"outputs": [
			{"internalType": "address[3][]", "name": "", "type": "address[3][]"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "contract IUniswapV2Pair[]", "name": "_pairs", "type": "address[]"}
		],
		"name": "getReservesByPairs",
		"outputs": [
			{"internalType": "uint256[3][]", "name": "", "type": "uint256[3][]"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

const (
	methodPairsByIndexRange = "getPairsByIndexRange"
	methodReservesByPairs   = "getReservesByPairs"
)

func parseFlashQueryABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(FlashQueryABI))
}
