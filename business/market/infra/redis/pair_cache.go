package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/fd1az/simple-arbitrage/business/market/app"
	"github.com/fd1az/simple-arbitrage/business/market/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
)

var _ app.PairCache = (*PairCache)(nil)

// PairCache stores each factory's pair listing as one JSON string.
//
// Key schema:
//
//	pairs:{chainID}:{factory} - JSON array of PairInfo
type PairCache struct {
	rdb     *redis.Client
	chainID uint64
	ttl     time.Duration
}

// NewPairCache creates a PairCache backed by the given Client.
func NewPairCache(c *Client, chainID uint64, ttl time.Duration) *PairCache {
	return &PairCache{rdb: c.rdb, chainID: chainID, ttl: ttl}
}

func pairsKey(chainID uint64, factory common.Address) string {
	return fmt.Sprintf("pairs:%d:%s", chainID, factory.Hex())
}

// GetPairs returns the cached listing; ok is false on a miss.
func (pc *PairCache) GetPairs(ctx context.Context, factory common.Address) ([]domain.PairInfo, bool, error) {
	data, err := pc.rdb.Get(ctx, pairsKey(pc.chainID, factory)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, apperror.New(apperror.CodePairCacheError,
			apperror.WithCause(err),
			apperror.WithContext("get "+factory.Hex()))
	}

	pairs, err := decodePairs(data)
	if err != nil {
		return nil, false, apperror.New(apperror.CodePairCacheError,
			apperror.WithCause(err),
			apperror.WithContext("decode "+factory.Hex()))
	}
	return pairs, true, nil
}

// SetPairs stores the listing with the configured TTL.
func (pc *PairCache) SetPairs(ctx context.Context, factory common.Address, pairs []domain.PairInfo) error {
	data, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("redis: marshal pairs %s: %w", factory.Hex(), err)
	}
	if err := pc.rdb.Set(ctx, pairsKey(pc.chainID, factory), data, pc.ttl).Err(); err != nil {
		return apperror.New(apperror.CodePairCacheError,
			apperror.WithCause(err),
			apperror.WithContext("set "+factory.Hex()))
	}
	return nil
}

func decodePairs(data []byte) ([]domain.PairInfo, error) {
	var pairs []domain.PairInfo
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}
