// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/simple-arbitrage/business/arbitrage/app"
	"github.com/fd1az/simple-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("arbitrage.Service")
)

// Private dependency tokens - internal to arbitrage module
var (
	Scanner  = di.NewToken[*app.Scanner]("arbitrage:scanner")
	Executor = di.NewToken[*app.Executor]("arbitrage:executor")
	Reporter = di.NewToken[app.Reporter]("arbitrage:reporter")
)

func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}

func GetScanner(c di.ServiceRegistry) *app.Scanner {
	return di.GetToken(c, Scanner)
}

func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
