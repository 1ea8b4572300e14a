package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/simple-arbitrage/business/market/domain"
	"github.com/fd1az/simple-arbitrage/internal/logger"
)

// RegistryConfig controls market discovery and filtering.
type RegistryConfig struct {
	QuoteToken      common.Address
	Factories       []common.Address
	Blacklist       []common.Address
	MinQuoteReserve decimal.Decimal
	PageSize        int64
	MaxPages        int
}

// Registry discovers pairs, groups them by token and keeps the liquid ones.
type Registry struct {
	cfg    RegistryConfig
	source PairSource
	cache  PairCache
	sync   *Synchronizer
	logger logger.LoggerInterface

	mu      sync.RWMutex
	grouped domain.GroupedMarkets
}

// NewRegistry creates a Registry. cache may be nil.
func NewRegistry(cfg RegistryConfig, source PairSource, cache PairCache, syncer *Synchronizer, log logger.LoggerInterface) *Registry {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 100
	}
	return &Registry{
		cfg:    cfg,
		source: source,
		cache:  cache,
		sync:   syncer,
		logger: log,
	}
}

// Load runs discovery: list pairs per factory, group by token, sync reserves,
// drop pools below the quote reserve floor and regroup.
func (r *Registry) Load(ctx context.Context) (domain.GroupedMarkets, error) {
	var discovered []domain.Market
	for _, factory := range r.cfg.Factories {
		pairs, err := r.factoryPairs(ctx, factory)
		if err != nil {
			return domain.GroupedMarkets{}, err
		}
		markets := r.quoteMarkets(factory, pairs)
		r.logger.Info(ctx, "pairs from exchange",
			"factory", factory.Hex(),
			"protocol", string(domain.ProtocolForFactory(factory)),
			"listed", len(pairs),
			"quote_pairs", len(markets),
		)
		discovered = append(discovered, markets...)
	}

	candidates := domain.GroupByToken(discovered, r.cfg.QuoteToken, 2)
	if err := r.sync.Sync(ctx, candidates.AllMarkets); err != nil {
		return domain.GroupedMarkets{}, err
	}

	liquid := domain.FilterByQuoteReserve(candidates.AllMarkets, r.cfg.QuoteToken, r.cfg.MinQuoteReserve)
	grouped := domain.GroupByToken(liquid, r.cfg.QuoteToken, 2)

	r.logger.Info(ctx, "markets loaded",
		"discovered", len(discovered),
		"crossable", candidates.Len(),
		"liquid", len(liquid),
		"tokens", len(grouped.MarketsByToken),
		"markets", grouped.Len(),
	)

	r.mu.Lock()
	r.grouped = grouped
	r.mu.Unlock()

	return grouped, nil
}

// Markets returns the result of the last Load.
func (r *Registry) Markets() domain.GroupedMarkets {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grouped
}

func (r *Registry) factoryPairs(ctx context.Context, factory common.Address) ([]domain.PairInfo, error) {
	if r.cache != nil {
		pairs, ok, err := r.cache.GetPairs(ctx, factory)
		if err != nil {
			r.logger.Warn(ctx, "pair cache read failed", "factory", factory.Hex(), "error", err)
		} else if ok {
			r.logger.Debug(ctx, "pair cache hit", "factory", factory.Hex(), "pairs", len(pairs))
			return pairs, nil
		}
	}

	var all []domain.PairInfo
	for page := 0; page < r.cfg.MaxPages; page++ {
		start := int64(page) * r.cfg.PageSize
		pairs, err := r.source.PairsByIndexRange(ctx, factory, start, start+r.cfg.PageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, pairs...)
		if int64(len(pairs)) < r.cfg.PageSize {
			break
		}
	}

	if r.cache != nil {
		if err := r.cache.SetPairs(ctx, factory, all); err != nil {
			r.logger.Warn(ctx, "pair cache write failed", "factory", factory.Hex(), "error", err)
		}
	}
	return all, nil
}

func (r *Registry) quoteMarkets(factory common.Address, pairs []domain.PairInfo) []domain.Market {
	protocol := domain.ProtocolForFactory(factory)
	markets := make([]domain.Market, 0, len(pairs))
	for _, p := range pairs {
		var token common.Address
		switch r.cfg.QuoteToken {
		case p.Token0:
			token = p.Token1
		case p.Token1:
			token = p.Token0
		default:
			continue
		}
		if r.blacklisted(token) {
			continue
		}
		markets = append(markets, domain.NewConstantProductPair(p.Address, p.Token0, p.Token1, protocol))
	}
	return markets
}

func (r *Registry) blacklisted(token common.Address) bool {
	for _, b := range r.cfg.Blacklist {
		if b == token {
			return true
		}
	}
	return false
}
