// Package arbitrage implements the arbitrage bounded context: crossed-market
// detection, trade sizing and bundle execution on every new block.
package arbitrage

import (
	"context"

	"github.com/fd1az/simple-arbitrage/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/simple-arbitrage/business/arbitrage/di"
	"github.com/fd1az/simple-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/simple-arbitrage/business/arbitrage/infra"
	blockchainDI "github.com/fd1az/simple-arbitrage/business/blockchain/di"
	marketDI "github.com/fd1az/simple-arbitrage/business/market/di"
	"github.com/fd1az/simple-arbitrage/internal/asset"
	"github.com/fd1az/simple-arbitrage/internal/config"
	"github.com/fd1az/simple-arbitrage/internal/di"
	"github.com/fd1az/simple-arbitrage/internal/logger"
	"github.com/fd1az/simple-arbitrage/internal/monolith"
)

// Module implements the arbitrage bounded context. It depends on the
// blockchain and market modules being registered first.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		tokens := sr.Get("assetRegistry").(*asset.Registry)

		if cfg.Arbitrage.TUIMode {
			return infra.NewTUIReporter(tokens)
		}
		return infra.NewConsoleReporter(tokens)
	})

	di.RegisterToken(c, arbitrageDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		evaluator := domain.Evaluator{
			Quote:     cfg.Markets.QuoteTokenAddress(),
			Probe:     cfg.Arbitrage.ProbeVolumeWei(),
			MinProfit: cfg.Arbitrage.MinProfitWei(),
		}
		s, err := app.NewScanner(marketDI.GetSynchronizer(sr), evaluator, log)
		if err != nil {
			panic("failed to create scanner: " + err.Error())
		}
		return s
	})

	di.RegisterToken(c, arbitrageDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		e, err := app.NewExecutor(app.ExecutorConfig{
			BundleExecutor: cfg.Wallet.BundleExecutor(),
			QuoteToken:     cfg.Markets.QuoteTokenAddress(),
			GasCeiling:     cfg.Arbitrage.GasCeiling,
		}, blockchainDI.GetTxBuilder(sr), blockchainDI.GetRelay(sr), log)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return e
	})

	di.RegisterToken(c, arbitrageDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewService(
			app.ServiceConfig{
				MinerRewardPercentage: cfg.Arbitrage.MinerRewardPercentage,
				CycleTimeout:          cfg.Arbitrage.ScanTimeout,
				MaxFailedCycles:       cfg.Arbitrage.MaxFailedCycles,
			},
			blockchainDI.GetBlockchainService(sr),
			marketDI.GetRegistry(sr),
			arbitrageDI.GetScanner(sr),
			arbitrageDI.GetExecutor(sr),
			arbitrageDI.GetReporter(sr),
			log,
		)
	})

	return nil
}

// Startup resolves the service graph and starts the reporter. The block loop
// itself is run by main.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	services := mono.Services()

	if err := arbitrageDI.GetReporter(services).Start(ctx); err != nil {
		return err
	}
	arbitrageDI.GetService(services)

	mono.Logger().Info(ctx, "arbitrage module started",
		"miner_reward_percentage", mono.Config().Arbitrage.MinerRewardPercentage,
		"min_profit_eth", mono.Config().Arbitrage.MinProfitETH,
	)
	return nil
}
