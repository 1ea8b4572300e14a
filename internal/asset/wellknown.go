package asset

import "github.com/ethereum/go-ethereum/common"

// Well-known token addresses on Ethereum mainnet
var (
	AddrWETH = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWBTC = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")

	// Stablecoins
	AddrUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDT = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAI  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")

	AddrLINK = common.HexToAddress("0x514910771AF9Ca656af840dff83E8264EcF986CA")
	AddrUNI  = common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984")
	AddrMKR  = common.HexToAddress("0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2")
)

var (
	WETH = NewToken(AddrWETH, "WETH", "Wrapped Ether", 18)
	WBTC = NewToken(AddrWBTC, "WBTC", "Wrapped Bitcoin", 8)
	USDC = NewToken(AddrUSDC, "USDC", "USD Coin", 6)
	USDT = NewToken(AddrUSDT, "USDT", "Tether USD", 6)
	DAI  = NewToken(AddrDAI, "DAI", "Dai Stablecoin", 18)
	LINK = NewToken(AddrLINK, "LINK", "ChainLink Token", 18)
	UNI  = NewToken(AddrUNI, "UNI", "Uniswap", 18)
	MKR  = NewToken(AddrMKR, "MKR", "Maker", 18)
)

// DefaultRegistry returns a registry pre-populated with well-known mainnet tokens.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{WETH, WBTC, USDC, USDT, DAI, LINK, UNI, MKR} {
		r.Register(a)
	}
	return r
}
