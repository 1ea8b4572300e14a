// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
)

// BlockSubscriber defines the interface for subscribing to new blocks.
type BlockSubscriber interface {
	// Subscribe starts listening for new blocks and returns a channel of blocks.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock retrieves the most recent block.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// State returns the current connection state.
	State() domain.ConnectionState

	// Healthy reports whether blocks are flowing.
	Healthy(ctx context.Context) (bool, string)
}

// GasOracle prices transactions.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// FeeCap returns the max fee per gas for the next blocks.
	FeeCap(ctx context.Context) (*big.Int, error)

	// EstimateGas returns the raw gas estimate for a transaction.
	EstimateGas(ctx context.Context, tx *domain.TxRequest) (uint64, error)
}
