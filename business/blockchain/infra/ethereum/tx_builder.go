package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
	"github.com/fd1az/simple-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/simple-arbitrage/internal/logger"
)

// NonceSource is the subset of ethclient.Client used to pick nonces.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// FeeSource prices transactions.
type FeeSource interface {
	FeeCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, tx *domain.TxRequest) (uint64, error)
}

// TxBuilder turns bundle executor multi-calls into unsigned transactions.
type TxBuilder struct {
	chainID *big.Int
	from    common.Address
	nonces  NonceSource
	fees    FeeSource
	abi     abi.ABI
	cb      *circuitbreaker.CircuitBreaker[uint64]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewTxBuilder creates a TxBuilder sending from the given account.
func NewTxBuilder(chainID *big.Int, from common.Address, nonces NonceSource, fees FeeSource, log logger.LoggerInterface) (*TxBuilder, error) {
	parsed, err := parseBundleExecutorABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse bundle executor ABI: %w", err)
	}

	return &TxBuilder{
		chainID: chainID,
		from:    from,
		nonces:  nonces,
		fees:    fees,
		abi:     parsed,
		cb:      circuitbreaker.New[uint64](circuitbreaker.DefaultConfig("eth-nonce")),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// BuildTransaction encodes call as uniswapWeth on call.Executor and fills
// nonce, chain id and fee fields. Gas is left for the caller to set.
func (b *TxBuilder) BuildTransaction(ctx context.Context, call domain.MultiCall) (*domain.TxRequest, error) {
	ctx, span := b.tracer.Start(ctx, "tx.build",
		trace.WithAttributes(
			attribute.String("executor", call.Executor.Hex()),
			attribute.Int("targets", len(call.Targets)),
		),
	)
	defer span.End()

	if len(call.Targets) != len(call.Payloads) {
		err := apperror.New(apperror.CodeTransactionBuildFailed,
			apperror.WithContext(fmt.Sprintf("%d targets for %d payloads", len(call.Targets), len(call.Payloads))))
		span.RecordError(err)
		return nil, err
	}

	data, err := b.abi.Pack(methodUniswapWeth, orZero(call.Volume), orZero(call.MinerReward), call.Targets, call.Payloads)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeTransactionBuildFailed,
			apperror.WithCause(err),
			apperror.WithContext("pack uniswapWeth"))
	}

	nonce, err := b.cb.Execute(func() (uint64, error) {
		return b.nonces.PendingNonceAt(ctx, b.from)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "nonce failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("pending nonce"))
	}

	feeCap, err := b.fees.FeeCap(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("nonce", int64(nonce)))
	span.SetStatus(codes.Ok, "built")

	return &domain.TxRequest{
		ChainID:   b.chainID,
		From:      b.from,
		To:        call.Executor,
		Data:      data,
		Value:     new(big.Int),
		Nonce:     nonce,
		GasTipCap: new(big.Int),
		GasFeeCap: feeCap,
	}, nil
}

// EstimateGas returns the raw node estimate for tx.
func (b *TxBuilder) EstimateGas(ctx context.Context, tx *domain.TxRequest) (uint64, error) {
	return b.fees.EstimateGas(ctx, tx)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
