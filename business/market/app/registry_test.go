package app

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/simple-arbitrage/business/market/domain"
)

var (
	factoryUni   = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	factorySushi = common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac")

	tokA        = addr(0xa)
	tokB        = addr(0xb)
	tokC        = addr(0xc)
	tokD        = addr(0xd)
	tokE        = addr(0xe)
	blacklisted = addr(0xbad)
)

func registryFixture() (*fakeSource, *fakeReader) {
	source := &fakeSource{pairs: map[common.Address][]domain.PairInfo{
		factoryUni: {
			{Address: addr(11), Token0: tokA, Token1: weth},
			{Address: addr(12), Token0: weth, Token1: tokB},
			{Address: addr(13), Token0: tokC, Token1: tokD},
			{Address: addr(14), Token0: blacklisted, Token1: weth},
		},
		factorySushi: {
			{Address: addr(21), Token0: tokA, Token1: weth},
			{Address: addr(22), Token0: tokB, Token1: weth},
			{Address: addr(23), Token0: tokE, Token1: weth},
		},
	}}

	reader := &fakeReader{reserves: map[common.Address]domain.Reserves{
		addr(11): {Reserve0: eth(500), Reserve1: eth(5)},
		addr(12): {Reserve0: eth(3), Reserve1: eth(90)},
		addr(21): {Reserve0: eth(210), Reserve1: eth(2)},
		addr(22): {Reserve0: eth(40), Reserve1: eth(0)},
	}}
	return source, reader
}

func newTestRegistry(source PairSource, reader ReserveReader, cache PairCache, pageSize int64, maxPages int) *Registry {
	cfg := RegistryConfig{
		QuoteToken:      weth,
		Factories:       []common.Address{factoryUni, factorySushi},
		Blacklist:       []common.Address{blacklisted},
		MinQuoteReserve: decimal.New(1, 18),
		PageSize:        pageSize,
		MaxPages:        maxPages,
	}
	return NewRegistry(cfg, source, cache, NewSynchronizer(reader, &mockLogger{}), &mockLogger{})
}

func TestRegistry_Load(t *testing.T) {
	source, reader := registryFixture()
	r := newTestRegistry(source, reader, nil, 2, 100)

	grouped, err := r.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(grouped.MarketsByToken) != 1 {
		t.Fatalf("tokens = %v, want only tokA", grouped.Tokens())
	}
	marketsA := grouped.MarketsByToken[tokA]
	if len(marketsA) != 2 || marketsA[0].Address() != addr(11) || marketsA[1].Address() != addr(21) {
		t.Errorf("tokA markets = %v", marketsA)
	}
	if grouped.Len() != 2 {
		t.Errorf("AllMarkets = %d, want filtered set of 2", grouped.Len())
	}
	if marketsA[1].Protocol() != "SushiSwap" {
		t.Errorf("protocol = %s, want SushiSwap", marketsA[1].Protocol())
	}

	// tokE has a single market and is never synced; tokB is synced then dropped.
	if len(reader.calls) != 1 || len(reader.calls[0]) != 4 {
		t.Errorf("sync read = %v, want one batch of the 4 crossable pairs", reader.calls)
	}

	// 4 pairs at page size 2: two full pages and one empty page, then 2+1 for sushi.
	if source.calls != 5 {
		t.Errorf("source calls = %d, want 5", source.calls)
	}

	if r.Markets().Len() != 2 {
		t.Errorf("Markets() not updated after Load")
	}
}

func TestRegistry_MaxPagesCapsDiscovery(t *testing.T) {
	source, reader := registryFixture()
	r := newTestRegistry(source, reader, nil, 2, 1)

	grouped, err := r.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if source.calls != 2 {
		t.Errorf("source calls = %d, want one page per factory", source.calls)
	}
	// Uni page 1 holds addr(11) and addr(12); sushi page 1 holds addr(21) and addr(22).
	if grouped.Len() != 2 {
		t.Errorf("markets = %d, want 2", grouped.Len())
	}
}

func TestRegistry_UsesPairCache(t *testing.T) {
	source, reader := registryFixture()
	cache := &fakeCache{}

	first := newTestRegistry(source, reader, cache, 100, 100)
	if _, err := first.Load(context.Background()); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	if len(cache.stored) != 2 {
		t.Fatalf("cache holds %d factories, want 2", len(cache.stored))
	}

	callsBefore := source.calls
	second := newTestRegistry(source, reader, cache, 100, 100)
	grouped, err := second.Load(context.Background())
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if source.calls != callsBefore {
		t.Errorf("source queried %d times despite warm cache", source.calls-callsBefore)
	}
	if grouped.Len() != 2 {
		t.Errorf("markets = %d, want 2", grouped.Len())
	}
}
