// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/simple-arbitrage/business/blockchain/app"
	"github.com/fd1az/simple-arbitrage/business/blockchain/infra/ethereum"
	"github.com/fd1az/simple-arbitrage/business/blockchain/infra/flashbots"
	"github.com/fd1az/simple-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
	TxBuilder         = di.NewToken[*ethereum.TxBuilder]("blockchain.TxBuilder")
	Relay             = di.NewToken[*flashbots.Relay]("blockchain.Relay")
)

// Private dependency tokens - internal to blockchain module
var (
	BlockSubscriber = di.NewToken[*ethereum.Subscriber]("blockchain:blockSubscriber")
	GasOracle       = di.NewToken[*ethereum.GasOracle]("blockchain:gasOracle")
	Wallet          = di.NewToken[*ethereum.Wallet]("blockchain:wallet")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetTxBuilder(c di.ServiceRegistry) *ethereum.TxBuilder {
	return di.GetToken(c, TxBuilder)
}

func GetRelay(c di.ServiceRegistry) *flashbots.Relay {
	return di.GetToken(c, Relay)
}

func GetBlockSubscriber(c di.ServiceRegistry) *ethereum.Subscriber {
	return di.GetToken(c, BlockSubscriber)
}

func GetGasOracle(c di.ServiceRegistry) *ethereum.GasOracle {
	return di.GetToken(c, GasOracle)
}

func GetWallet(c di.ServiceRegistry) *ethereum.Wallet {
	return di.GetToken(c, Wallet)
}
