package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/simple-arbitrage/business/arbitrage/domain"
	market "github.com/fd1az/simple-arbitrage/business/market/domain"
	"github.com/fd1az/simple-arbitrage/internal/logger"
)

type scannerMetrics struct {
	scanDuration   metric.Float64Histogram
	crossedMarkets metric.Int64Counter
	bestProfit     metric.Float64Gauge
	pricingErrors  metric.Int64Counter
}

// Scanner refreshes reserves and ranks crossed markets.
type Scanner struct {
	sync      MarketSynchronizer
	evaluator domain.Evaluator
	logger    logger.LoggerInterface

	tracer  trace.Tracer
	metrics *scannerMetrics
}

// NewScanner creates a Scanner.
func NewScanner(sync MarketSynchronizer, evaluator domain.Evaluator, log logger.LoggerInterface) (*Scanner, error) {
	s := &Scanner{
		sync:      sync,
		evaluator: evaluator,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return s, nil
}

func (s *Scanner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &scannerMetrics{}

	s.metrics.scanDuration, err = meter.Float64Histogram(
		"arbitrage_scan_duration_ms",
		metric.WithDescription("Reserve refresh plus evaluation time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	s.metrics.crossedMarkets, err = meter.Int64Counter(
		"arbitrage_crossed_markets_total",
		metric.WithDescription("Ranked crossed-market opportunities found"),
	)
	if err != nil {
		return err
	}

	s.metrics.bestProfit, err = meter.Float64Gauge(
		"arbitrage_best_profit_eth",
		metric.WithDescription("Profit of the top ranked opportunity in the last cycle"),
	)
	if err != nil {
		return err
	}

	s.metrics.pricingErrors, err = meter.Int64Counter(
		"arbitrage_pricing_errors_total",
		metric.WithDescription("Markets skipped because they could not be priced or solved"),
	)
	return err
}

// RefreshAndScan syncs every tracked market, then evaluates them. The
// evaluation's Ranked list is sorted by profit descending. A failed sync
// returns an error and no evaluation.
func (s *Scanner) RefreshAndScan(ctx context.Context, grouped market.GroupedMarkets) (domain.Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "arbitrage.refresh_and_scan",
		trace.WithAttributes(
			attribute.Int("markets", grouped.Len()),
			attribute.Int("tokens", len(grouped.MarketsByToken)),
		),
	)
	defer span.End()

	start := time.Now()

	if err := s.sync.Sync(ctx, grouped.AllMarkets); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.Evaluation{}, err
	}

	ev := s.evaluator.Evaluate(grouped)

	for _, f := range ev.Failures {
		s.logger.Debug(ctx, "market skipped",
			"market", f.Market.Address().Hex(),
			"token", f.Token.Hex(),
			"error", f.Err,
		)
	}
	for _, c := range ev.Ranked {
		s.logger.Info(ctx, "crossed market",
			"token", c.Token.Hex(),
			"buy_from", c.BuyFrom.Address().Hex(),
			"buy_protocol", string(c.BuyFrom.Protocol()),
			"sell_to", c.SellTo.Address().Hex(),
			"sell_protocol", string(c.SellTo.Protocol()),
			"profit_eth", toETH(c.Profit),
			"volume_eth", toETH(c.Volume),
		)
	}

	s.metrics.scanDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	s.metrics.crossedMarkets.Add(ctx, int64(len(ev.Ranked)))
	s.metrics.pricingErrors.Add(ctx, int64(len(ev.Failures)))
	if len(ev.Ranked) > 0 {
		best, _ := ev.Ranked[0].Profit.Shift(-18).Float64()
		s.metrics.bestProfit.Record(ctx, best)
	}

	span.SetAttributes(
		attribute.Int("crossed_pairs", ev.Crossed),
		attribute.Int("ranked", len(ev.Ranked)),
	)
	span.SetStatus(codes.Ok, "")
	return ev, nil
}

func toETH(wei decimal.Decimal) string {
	return wei.Shift(-18).StringFixed(6)
}
