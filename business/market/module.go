// Package market implements the market bounded context: pair discovery,
// reserve synchronisation and constant-product pricing.
package market

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/simple-arbitrage/business/market/app"
	marketDI "github.com/fd1az/simple-arbitrage/business/market/di"
	"github.com/fd1az/simple-arbitrage/business/market/infra/redis"
	"github.com/fd1az/simple-arbitrage/business/market/infra/uniswap"
	"github.com/fd1az/simple-arbitrage/internal/config"
	"github.com/fd1az/simple-arbitrage/internal/di"
	"github.com/fd1az/simple-arbitrage/internal/logger"
	"github.com/fd1az/simple-arbitrage/internal/monolith"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketDI.FlashQuery, func(sr di.ServiceRegistry) *uniswap.FlashQuery {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		q, err := uniswap.NewFlashQuery(client, uniswap.Config{
			Address:   cfg.Markets.QueryContractAddress(),
			BatchSize: cfg.Markets.ReserveBatchSize,
			Workers:   cfg.Markets.ReserveWorkers,
		}, log)
		if err != nil {
			panic("failed to create flash query: " + err.Error())
		}
		return q
	})

	di.RegisterToken(c, marketDI.Synchronizer, func(sr di.ServiceRegistry) *app.Synchronizer {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewSynchronizer(marketDI.GetFlashQuery(sr), log)
	})

	di.RegisterToken(c, marketDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		regCfg := app.RegistryConfig{
			QuoteToken:      cfg.Markets.QuoteTokenAddress(),
			Factories:       cfg.Markets.FactoryAddresses(),
			Blacklist:       cfg.Markets.BlacklistAddresses(),
			MinQuoteReserve: cfg.Markets.MinQuoteReserveWei(),
			PageSize:        int64(cfg.Markets.PageSize),
			MaxPages:        cfg.Markets.MaxPages,
		}
		return app.NewRegistry(regCfg, marketDI.GetFlashQuery(sr), pairCache(cfg, log),
			marketDI.GetSynchronizer(sr), log)
	})

	return nil
}

// pairCache connects the optional Redis listing cache. A nil interface is
// returned when it is disabled or unreachable.
func pairCache(cfg *config.Config, log logger.LoggerInterface) app.PairCache {
	if cfg.Cache.RedisURL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := redis.New(ctx, cfg.Cache.RedisURL)
	if err != nil {
		log.Warn(ctx, "pair cache disabled", "error", err)
		return nil
	}
	return redis.NewPairCache(client, cfg.Ethereum.ChainID, cfg.Cache.PairsTTL)
}

// Startup discovers markets and performs the initial reserve sync.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	grouped, err := marketDI.GetRegistry(mono.Services()).Load(ctx)
	if err != nil {
		log.Error(ctx, "market discovery failed", "error", err)
		return err
	}

	log.Info(ctx, "market module started",
		"tokens", len(grouped.MarketsByToken),
		"markets", grouped.Len(),
	)
	return nil
}
