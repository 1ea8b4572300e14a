package app

import (
	"context"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
)

// BlockchainService is the blockchain context's face to other modules.
type BlockchainService struct {
	subscriber BlockSubscriber
	gasOracle  GasOracle
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(subscriber BlockSubscriber, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		subscriber: subscriber,
		gasOracle:  gasOracle,
	}
}

// Subscribe starts the block subscription and returns the channel.
func (s *BlockchainService) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	return s.subscriber.Subscribe(ctx)
}

// LatestBlock returns the chain head.
func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.subscriber.LatestBlock(ctx)
}

// GetGasPrice retrieves the current gas price.
func (s *BlockchainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx)
}

// ConnectionState returns the current connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}

// Healthy reports the block feed health.
func (s *BlockchainService) Healthy(ctx context.Context) (bool, string) {
	return s.subscriber.Healthy(ctx)
}
