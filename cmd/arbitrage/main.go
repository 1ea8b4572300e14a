// Package main is the entry point for the arbitrage bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/simple-arbitrage/business/arbitrage"
	arbitrageApp "github.com/fd1az/simple-arbitrage/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/simple-arbitrage/business/arbitrage/di"
	"github.com/fd1az/simple-arbitrage/business/blockchain"
	blockchainDI "github.com/fd1az/simple-arbitrage/business/blockchain/di"
	blockchainDomain "github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/business/market"
	marketDI "github.com/fd1az/simple-arbitrage/business/market/di"
	"github.com/fd1az/simple-arbitrage/internal/apm"
	"github.com/fd1az/simple-arbitrage/internal/config"
	"github.com/fd1az/simple-arbitrage/internal/di"
	"github.com/fd1az/simple-arbitrage/internal/health"
	"github.com/fd1az/simple-arbitrage/internal/logger"
	"github.com/fd1az/simple-arbitrage/internal/metrics"
	"github.com/fd1az/simple-arbitrage/internal/monolith"
	"github.com/fd1az/simple-arbitrage/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const connectionPollInterval = 5 * time.Second

// step pairs a module with the startup line the TUI shows for it.
type step struct {
	name   string
	module monolith.Module
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("simple-arbitrage %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, cancel, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Arbitrage.TUIMode = tuiMode

	var out io.Writer = os.Stderr
	if tuiMode {
		// Log lines would corrupt the alt screen.
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, traceID)
	log.Info(ctx, "starting arbitrage bot",
		"version", version,
		"environment", cfg.App.Environment,
	)

	if cfg.Telemetry.Enabled {
		tp, err := apm.NewTraceProvider(ctx, apm.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			Exporter:    apm.Exporter(cfg.Telemetry.TraceExporter),
			Endpoint:    cfg.Telemetry.TraceEndpoint,
			SampleRatio: cfg.Telemetry.SampleRatio,
		}, log)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		defer tp.Stop()

		mp, err := metrics.NewProvider(ctx, metrics.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Prometheus:   true,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure: true,
		})
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mp.Shutdown(shutdownCtx)
		}()

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		addr, err := mp.Serve(":" + strconv.Itoa(port))
		if err != nil {
			return err
		}
		log.Info(ctx, "prometheus metrics server started", "addr", addr)
	}

	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	steps := []step{
		{name: "ethereum", module: &blockchain.Module{}}, // block feed, tx builder, relay
		{name: "markets", module: &market.Module{}},      // discovery and initial reserve sync
		{name: "flashbots", module: &arbitrage.Module{}}, // scanner, executor, service
	}
	modules := make([]monolith.Module, len(steps))
	for i, s := range steps {
		modules[i] = s.module
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	healthServer := health.NewServer(cfg.Health.Port, version)
	registerHealthChecks(healthServer, mono.Services())
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer healthServer.Stop(context.Background())

	if tuiMode {
		return runTUI(ctx, cancel, func() error {
			ui.Send(ui.StartupMsg{Step: "config", Status: "done", Message: "Configuration loaded"})
			if err := startSteps(ctx, mono, steps, ui.Send); err != nil {
				return err
			}
			return runBot(ctx, mono, log)
		})
	}

	if err := startSteps(ctx, mono, steps, func(tea.Msg) {}); err != nil {
		return err
	}
	log.Info(ctx, "all modules started, watching blocks")
	return runBot(ctx, mono, log)
}

// startSteps starts modules in order, announcing each one.
func startSteps(ctx context.Context, mono monolith.Monolith, steps []step, send func(tea.Msg)) error {
	for _, s := range steps {
		send(ui.StartupMsg{Step: s.name, Status: "connecting"})
		if err := s.module.Startup(ctx, mono); err != nil {
			send(ui.StartupMsg{Step: s.name, Status: "failed", Message: err.Error()})
			return fmt.Errorf("failed to start %s: %w", s.name, err)
		}
		send(ui.StartupMsg{Step: s.name, Status: "done"})
	}
	return nil
}

// runBot runs the block loop until ctx is done.
func runBot(ctx context.Context, mono monolith.Monolith, log logger.LoggerInterface) error {
	services := mono.Services()
	svc := arbitrageDI.GetService(services)
	reporter := arbitrageDI.GetReporter(services)
	defer reporter.Stop()
	defer blockchainDI.GetBlockSubscriber(services).Close()
	defer blockchainDI.GetGasOracle(services).Close()

	go watchConnections(ctx, services, reporter)

	err := svc.Run(ctx)
	log.Info(context.Background(), "block loop stopped",
		"cycles", svc.Cycles(),
		"last_block", svc.LastBlock(),
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchConnections mirrors the block feed state onto the reporter. The relay
// has no persistent connection; it is shown as up once its keys loaded.
func watchConnections(ctx context.Context, services di.ServiceRegistry, reporter arbitrageApp.Reporter) {
	chain := blockchainDI.GetBlockchainService(services)
	reporter.UpdateConnectionStatus(ui.ConnFlashbots, true, 0)

	ticker := time.NewTicker(connectionPollInterval)
	defer ticker.Stop()

	for {
		reporter.UpdateConnectionStatus(ui.ConnEthereum, chain.ConnectionState() == blockchainDomain.StateConnected, 0)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func registerHealthChecks(s *health.Server, services di.ServiceRegistry) {
	s.RegisterCheck("block_feed", func(ctx context.Context) (bool, string) {
		return blockchainDI.GetBlockchainService(services).Healthy(ctx)
	})
	s.RegisterCheck("markets", func(_ context.Context) (bool, string) {
		n := marketDI.GetRegistry(services).Markets().Len()
		return n > 0, fmt.Sprintf("%d markets tracked", n)
	})
}

func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func runTUI(ctx context.Context, cancel context.CancelFunc, bot func() error) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// The welcome screen shows immediately; modules load once it completes.
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		err := bot()
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
		}
		errCh <- err
	}()

	_, err := p.Run()
	// Quitting the UI stops the bot.
	cancel()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		return nil
	}
}
