// Package monolith wires shared infrastructure and runs modules in order.
package monolith

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/simple-arbitrage/internal/asset"
	"github.com/fd1az/simple-arbitrage/internal/config"
	"github.com/fd1az/simple-arbitrage/internal/di"
	"github.com/fd1az/simple-arbitrage/internal/logger"
)

const dialTimeout = 10 * time.Second

// Monolith is what modules see during Startup.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module is one bounded context: it registers factories, then starts.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	ethClient *ethclient.Client
	assets    *asset.Registry
	container di.Container
}

// New dials the execution node, checks it serves the configured chain and
// registers the shared services every module resolves by name.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, cfg.Ethereum.HTTPURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Ethereum.HTTPURL, err)
	}
	if err := verifyChain(dialCtx, client, cfg.Ethereum.ChainID); err != nil {
		client.Close()
		return nil, err
	}
	log.Info(ctx, "execution node connected", "chain_id", cfg.Ethereum.ChainID)

	a := &app{
		config:    cfg,
		logger:    log,
		ethClient: client,
		assets:    asset.DefaultRegistry(),
		container: di.NewContainer(),
	}
	a.container.Register("config", cfg)
	a.container.Register("logger", log)
	a.container.Register("ethClient", client)
	a.container.Register("assetRegistry", a.assets)
	return a, nil
}

type chainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// verifyChain fails when the node reports a chain other than want. A zero
// want skips the check.
func verifyChain(ctx context.Context, c chainIDReader, want uint64) error {
	if want == 0 {
		return nil
	}
	got, err := c.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	if !got.IsUint64() || got.Uint64() != want {
		return fmt.Errorf("node serves chain %s, config expects %d", got, want)
	}
	return nil
}

func (a *app) Config() *config.Config         { return a.config }
func (a *app) Logger() logger.LoggerInterface { return a.logger }
func (a *app) EthClient() *ethclient.Client   { return a.ethClient }
func (a *app) AssetRegistry() *asset.Registry { return a.assets }
func (a *app) Services() di.ServiceRegistry   { return a.container }

// RegisterModules lets each module add its factories. Registration is
// lazy so order only matters for Startup.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %T: %w", m, err)
		}
	}
	return nil
}

// StartModules runs Startup in the given order and stops at the first failure.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the shared node connection.
func (a *app) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}
