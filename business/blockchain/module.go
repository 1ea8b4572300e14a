// Package blockchain implements the blockchain bounded context: block feed,
// gas pricing, transaction building and the bundle relay.
package blockchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/simple-arbitrage/business/blockchain/app"
	blockchainDI "github.com/fd1az/simple-arbitrage/business/blockchain/di"
	"github.com/fd1az/simple-arbitrage/business/blockchain/infra/ethereum"
	"github.com/fd1az/simple-arbitrage/business/blockchain/infra/flashbots"
	"github.com/fd1az/simple-arbitrage/internal/config"
	"github.com/fd1az/simple-arbitrage/internal/di"
	"github.com/fd1az/simple-arbitrage/internal/logger"
	"github.com/fd1az/simple-arbitrage/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.BlockSubscriber, func(sr di.ServiceRegistry) *ethereum.Subscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		subCfg := ethereum.DefaultSubscriberConfig(cfg.Ethereum.WebSocketURL, cfg.Ethereum.HTTPURL)
		if cfg.Ethereum.PollInterval > 0 {
			subCfg.PollInterval = cfg.Ethereum.PollInterval
		}
		sub, err := ethereum.NewSubscriber(subCfg, log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) *ethereum.GasOracle {
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		oracle, err := ethereum.NewGasOracle(client, ethereum.DefaultGasOracleConfig(), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, blockchainDI.Wallet, func(sr di.ServiceRegistry) *ethereum.Wallet {
		cfg := sr.Get("config").(*config.Config)

		w, err := ethereum.NewWallet(cfg.Wallet.PrivateKey, chainID(cfg))
		if err != nil {
			panic("failed to load executor wallet: " + err.Error())
		}
		return w
	})

	di.RegisterToken(c, blockchainDI.TxBuilder, func(sr di.ServiceRegistry) *ethereum.TxBuilder {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		b, err := ethereum.NewTxBuilder(chainID(cfg), blockchainDI.GetWallet(sr).Address(),
			client, blockchainDI.GetGasOracle(sr), log)
		if err != nil {
			panic("failed to create tx builder: " + err.Error())
		}
		return b
	})

	di.RegisterToken(c, blockchainDI.Relay, func(sr di.ServiceRegistry) *flashbots.Relay {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		r, err := flashbots.NewRelay(flashbots.Config{
			RelayURL:          cfg.Flashbots.RelayURL,
			SigningKey:        cfg.Flashbots.SigningKey,
			RequestsPerSecond: cfg.Flashbots.RequestsPerSecond,
			Timeout:           cfg.Flashbots.Timeout,
		}, blockchainDI.GetWallet(sr), log)
		if err != nil {
			panic("failed to create flashbots relay: " + err.Error())
		}
		return r
	})

	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(blockchainDI.GetBlockSubscriber(sr), blockchainDI.GetGasOracle(sr))
	})

	return nil
}

func chainID(cfg *config.Config) *big.Int {
	return new(big.Int).SetUint64(cfg.Ethereum.ChainID)
}

// Startup resolves the wallets and logs the chain head. The block feed is
// opened later by whoever subscribes.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	services := mono.Services()

	wallet := blockchainDI.GetWallet(services)
	relay := blockchainDI.GetRelay(services)
	log.Info(ctx, "wallets loaded",
		"executor", wallet.Address().Hex(),
		"relay_signer", relay.AuthAddress().Hex(),
		"bundle_executor", mono.Config().Wallet.BundleExecutor().Hex(),
	)

	svc := blockchainDI.GetBlockchainService(services)
	head, err := svc.LatestBlock(ctx)
	if err != nil {
		log.Warn(ctx, "chain head unavailable", "error", err)
	} else {
		log.Info(ctx, "blockchain module started", "head", head.Number)
	}

	if price, err := svc.GetGasPrice(ctx); err == nil {
		log.Info(ctx, "gas price", "gwei", price.Gwei())
	}
	return nil
}
