package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
	"github.com/fd1az/simple-arbitrage/internal/cache"
	"github.com/fd1az/simple-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/simple-arbitrage/internal/logger"
)

const gasPriceKey = "current"

// GasClient is the subset of ethclient.Client the oracle needs.
type GasClient interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL      time.Duration // how long a suggested price is reused
	MaxGasPrice   *big.Int      // suggested prices are clamped to this
	FeeMultiplier int64         // fee cap = suggested price * multiplier
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	maxGas, _ := new(big.Int).SetString("500000000000", 10) // 500 gwei

	return GasOracleConfig{
		CacheTTL:      12 * time.Second, // ~1 block
		MaxGasPrice:   maxGas,
		FeeMultiplier: 2,
	}
}

type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	estimateGas     metric.Int64Counter
	estimateErrors  metric.Int64Counter
	cacheHits       metric.Int64Counter
}

// GasOracle prices transactions against the connected node.
type GasOracle struct {
	config GasOracleConfig
	client GasClient
	logger logger.LoggerInterface

	priceCache *cache.Cache[string, *domain.GasPrice]
	cb         *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(client GasClient, cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	if cfg.FeeMultiplier <= 0 {
		cfg.FeeMultiplier = 1
	}

	g := &GasOracle{
		config:     cfg,
		client:     client,
		logger:     log,
		priceCache: cache.New[string, *domain.GasPrice](time.Minute),
		cb:         circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-oracle")),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetches from the node"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current suggested gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateGas, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateErrors, err = meter.Int64Counter(
		"gas_estimate_errors_total",
		metric.WithDescription("Gas estimations that failed or reverted"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	return err
}

// GetGasPrice retrieves the current gas price, reusing it for CacheTTL.
func (g *GasOracle) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	if price, found := g.priceCache.Get(ctx, gasPriceKey); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	g.metrics.gasPriceFetches.Add(ctx, 1)

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		g.logger.Warn(ctx, "gas price exceeds max, clamping", "wei", wei.String())
		wei = g.config.MaxGasPrice
	}

	price := domain.NewGasPrice(wei)
	g.priceCache.Set(ctx, gasPriceKey, price, g.config.CacheTTL)
	g.metrics.gasPriceGwei.Record(ctx, price.Gwei())

	span.SetAttributes(attribute.Float64("gwei", price.Gwei()))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// FeeCap returns the max fee per gas for a transaction targeting one of the
// next couple of blocks. The priority fee stays zero: the coinbase transfer
// is the bid.
func (g *GasOracle) FeeCap(ctx context.Context) (*big.Int, error) {
	price, err := g.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Mul(price.Wei, big.NewInt(g.config.FeeMultiplier)), nil
}

// EstimateGas returns the node's raw estimate for tx. No margin is added.
func (g *GasOracle) EstimateGas(ctx context.Context, tx *domain.TxRequest) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(
			attribute.String("to", tx.To.Hex()),
			attribute.Int("data_len", len(tx.Data)),
		),
	)
	defer span.End()

	g.metrics.estimateGas.Add(ctx, 1)

	// Fee fields are left out so the node does not check the sender can
	// afford gas * fee cap.
	msg := tx.CallMsg()
	msg.GasFeeCap, msg.GasTipCap = nil, nil

	gas, err := g.client.EstimateGas(ctx, msg)
	if err != nil {
		g.metrics.estimateErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("failed to estimate gas for %s", tx.To.Hex())))
	}

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")

	return gas, nil
}

// Close stops the price cache janitor.
func (g *GasOracle) Close() error {
	g.priceCache.Close()
	return nil
}
