package ethereum

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BundleExecutorABI is the entry point of the on-chain bundle executor. It
// moves _wethAmountToFirstMarket to the first target, runs every payload
// and pays _ethAmountToCoinbase to the block producer, reverting unless the
// contract ends with more WETH than it started with.
const BundleExecutorABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "_wethAmountToFirstMarket", "type": "uint256"},
			{"internalType": "uint256", "name": "_ethAmountToCoinbase", "type": "uint256"},
			{"internalType": "address[]", "name": "_targets", "type": "address[]"},
			{"internalType": "bytes[]", "name": "_payloads", "type": "bytes[]"}
		],
		"name": "uniswapWeth",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

const methodUniswapWeth = "uniswapWeth"

func parseBundleExecutorABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(BundleExecutorABI))
}
