package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/simple-arbitrage/business/market/app"
	"github.com/fd1az/simple-arbitrage/business/market/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
	"github.com/fd1az/simple-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/simple-arbitrage/internal/logger"
)

const (
	tracerName = "github.com/fd1az/simple-arbitrage/business/market/infra/uniswap"
	meterName  = "github.com/fd1az/simple-arbitrage/business/market/infra/uniswap"
)

var (
	_ app.PairSource    = (*FlashQuery)(nil)
	_ app.ReserveReader = (*FlashQuery)(nil)
)

// ContractCaller is the subset of ethclient.Client used for eth_call.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Config holds the flash query settings.
type Config struct {
	Address   common.Address
	BatchSize int // pairs per getReservesByPairs call
	Workers   int // concurrent batches
}

type queryMetrics struct {
	calls        metric.Int64Counter
	callErrors   metric.Int64Counter
	batchLatency metric.Float64Histogram
}

// FlashQuery implements PairSource and ReserveReader.
type FlashQuery struct {
	client ContractCaller
	cfg    Config
	abi    abi.ABI
	cb     *circuitbreaker.CircuitBreaker[[]byte]
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *queryMetrics
}

// NewFlashQuery creates a FlashQuery calling through client.
func NewFlashQuery(client ContractCaller, cfg Config, log logger.LoggerInterface) (*FlashQuery, error) {
	parsed, err := parseFlashQueryABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse flash query ABI: %w", err)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	q := &FlashQuery{
		client: client,
		cfg:    cfg,
		abi:    parsed,
		cb:     circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("flash-query")),
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	if err := q.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return q, nil
}

func (q *FlashQuery) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	q.metrics = &queryMetrics{}

	q.metrics.calls, err = meter.Int64Counter(
		"flash_query_calls_total",
		metric.WithDescription("Total flash query contract calls"),
	)
	if err != nil {
		return err
	}

	q.metrics.callErrors, err = meter.Int64Counter(
		"flash_query_errors_total",
		metric.WithDescription("Total failed flash query contract calls"),
	)
	if err != nil {
		return err
	}

	q.metrics.batchLatency, err = meter.Float64Histogram(
		"reserve_refresh_duration_ms",
		metric.WithDescription("Time to read reserves for all tracked markets"),
		metric.WithUnit("ms"),
	)
	return err
}

// PairsByIndexRange lists factory pairs [start, stop) as (token0, token1, pair).
func (q *FlashQuery) PairsByIndexRange(ctx context.Context, factory common.Address, start, stop int64) ([]domain.PairInfo, error) {
	ctx, span := q.tracer.Start(ctx, "uniswap.pairs_by_index_range",
		trace.WithAttributes(
			attribute.String("factory", factory.Hex()),
			attribute.Int64("start", start),
			attribute.Int64("stop", stop),
		),
	)
	defer span.End()

	out, err := q.call(ctx, methodPairsByIndexRange, factory, big.NewInt(start), big.NewInt(stop))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rows, ok := out[0].([][3]common.Address)
	if !ok {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("unexpected %s output %T", methodPairsByIndexRange, out[0])))
	}

	pairs := make([]domain.PairInfo, len(rows))
	for i, row := range rows {
		pairs[i] = domain.PairInfo{Token0: row[0], Token1: row[1], Address: row[2]}
	}
	span.SetAttributes(attribute.Int("pairs", len(pairs)))
	return pairs, nil
}

// BatchGetReserves reads reserves for pairs, splitting into concurrent batches.
// The result is returned only when every batch succeeded.
func (q *FlashQuery) BatchGetReserves(ctx context.Context, pairs []common.Address) ([]domain.Reserves, error) {
	ctx, span := q.tracer.Start(ctx, "uniswap.batch_get_reserves",
		trace.WithAttributes(attribute.Int("pairs", len(pairs))))
	defer span.End()

	start := time.Now()
	result := make([]domain.Reserves, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.cfg.Workers)

	for lo := 0; lo < len(pairs); lo += q.cfg.BatchSize {
		hi := min(lo+q.cfg.BatchSize, len(pairs))
		g.Go(func() error {
			return q.readBatch(gctx, pairs[lo:hi], result[lo:hi])
		})
	}

	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	q.metrics.batchLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (q *FlashQuery) readBatch(ctx context.Context, pairs []common.Address, dst []domain.Reserves) error {
	out, err := q.call(ctx, methodReservesByPairs, pairs)
	if err != nil {
		return err
	}

	rows, ok := out[0].([][3]*big.Int)
	if !ok {
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("unexpected %s output %T", methodReservesByPairs, out[0])))
	}
	if len(rows) != len(pairs) {
		return apperror.New(apperror.CodeReserveCountMismatch,
			apperror.WithContext(fmt.Sprintf("requested %d, got %d", len(pairs), len(rows))))
	}

	for i, row := range rows {
		dst[i] = domain.Reserves{
			Reserve0:           row[0],
			Reserve1:           row[1],
			BlockTimestampLast: uint32(row[2].Uint64()),
		}
	}
	return nil
}

func (q *FlashQuery) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := q.abi.Pack(method, args...)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("encode "+method))
	}

	q.metrics.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))

	raw, err := q.cb.Execute(func() ([]byte, error) {
		return q.client.CallContract(ctx, ethereum.CallMsg{To: &q.cfg.Address, Data: data}, nil)
	})
	if err != nil {
		q.metrics.callErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		if apperror.GetCode(err) == apperror.CodeCircuitOpen {
			return nil, err
		}
		return nil, apperror.External(apperror.CodeContractCallFailed, method, err)
	}

	out, err := q.abi.Unpack(method, raw)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("decode "+method))
	}
	if len(out) != 1 {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("%s returned %d values", method, len(out))))
	}
	return out, nil
}
