// Package app contains the market application services and ports.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/simple-arbitrage/business/market/domain"
)

// ReserveReader reads reserves for many pairs in one round trip.
// The result is positional: result[i] belongs to pairs[i].
type ReserveReader interface {
	BatchGetReserves(ctx context.Context, pairs []common.Address) ([]domain.Reserves, error)
}

// PairSource lists the pairs created by a factory, by index range [start, stop).
type PairSource interface {
	PairsByIndexRange(ctx context.Context, factory common.Address, start, stop int64) ([]domain.PairInfo, error)
}

// PairCache stores complete factory listings between runs.
type PairCache interface {
	GetPairs(ctx context.Context, factory common.Address) ([]domain.PairInfo, bool, error)
	SetPairs(ctx context.Context, factory common.Address, pairs []domain.PairInfo) error
}
