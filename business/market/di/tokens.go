// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/simple-arbitrage/business/market/app"
	"github.com/fd1az/simple-arbitrage/business/market/infra/uniswap"
	"github.com/fd1az/simple-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Registry     = di.NewToken[*app.Registry]("market.Registry")
	Synchronizer = di.NewToken[*app.Synchronizer]("market.Synchronizer")
)

// Private dependency tokens - internal to market module
var (
	FlashQuery = di.NewToken[*uniswap.FlashQuery]("market:flashQuery")
)

func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetSynchronizer(c di.ServiceRegistry) *app.Synchronizer {
	return di.GetToken(c, Synchronizer)
}

func GetFlashQuery(c di.ServiceRegistry) *uniswap.FlashQuery {
	return di.GetToken(c, FlashQuery)
}
