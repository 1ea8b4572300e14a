package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/simple-arbitrage/business/market/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
	"github.com/fd1az/simple-arbitrage/internal/logger"
)

const tracerName = "market"

// Synchronizer refreshes market reserves from the chain.
type Synchronizer struct {
	reader ReserveReader
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewSynchronizer creates a Synchronizer reading through reader.
func NewSynchronizer(reader ReserveReader, log logger.LoggerInterface) *Synchronizer {
	return &Synchronizer{
		reader: reader,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
}

// Sync reads reserves for markets in one batch and publishes them.
// Nothing is written unless the whole batch is valid, and every market is
// updated before Sync returns.
func (s *Synchronizer) Sync(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "market.sync_reserves",
		trace.WithAttributes(attribute.Int("markets", len(markets))))
	defer span.End()

	start := time.Now()

	addrs := make([]common.Address, len(markets))
	for i, m := range markets {
		addrs[i] = m.Address()
	}

	reserves, err := s.reader.BatchGetReserves(ctx, addrs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return apperror.Wrap(err, apperror.CodeContractCallFailed, "batch reserves read")
	}
	if len(reserves) != len(markets) {
		span.SetStatus(codes.Error, "reserve count mismatch")
		return apperror.New(apperror.CodeReserveCountMismatch,
			apperror.WithContext(fmt.Sprintf("requested %d, got %d", len(markets), len(reserves))))
	}

	for i, r := range reserves {
		if r.Reserve0 == nil || r.Reserve1 == nil || r.Reserve0.Sign() < 0 || r.Reserve1.Sign() < 0 {
			return apperror.New(apperror.CodeInvalidAmount,
				apperror.WithContext("bad reserves for "+addrs[i].Hex()))
		}
	}

	for i, r := range reserves {
		if err := markets[i].SetReserves(decimal.NewFromBigInt(r.Reserve0, 0), decimal.NewFromBigInt(r.Reserve1, 0)); err != nil {
			return err
		}
	}

	span.SetStatus(codes.Ok, "")
	s.logger.Debug(ctx, "reserves synced",
		"markets", len(markets),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
