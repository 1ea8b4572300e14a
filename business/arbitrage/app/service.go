package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	blockchain "github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
	"github.com/fd1az/simple-arbitrage/internal/logger"
)

// DefaultCycleTimeout bounds one refresh, scan and execute cycle.
const DefaultCycleTimeout = 10 * time.Second

// DefaultMaxFailedCycles is used when ServiceConfig.MaxFailedCycles is unset.
const DefaultMaxFailedCycles = 3

// ErrSubscriptionClosed is returned by Run when the block feed ends.
var ErrSubscriptionClosed = errors.New("block subscription closed")

// ServiceConfig holds the per-cycle knobs.
type ServiceConfig struct {
	MinerRewardPercentage int64
	CycleTimeout          time.Duration
	// MaxFailedCycles is how many cycles in a row may fail on an unreachable
	// chain reader before Run gives up.
	MaxFailedCycles int
}

// Service drives one arbitrage cycle per new block.
type Service struct {
	cfg      ServiceConfig
	blocks   BlockSource
	markets  MarketSource
	scanner  *Scanner
	executor *Executor
	reporter Reporter
	logger   logger.LoggerInterface

	lastBlock atomic.Uint64
	cycles    atomic.Int64

	failedCycles int // consecutive, touched only by Run's goroutine
}

// NewService creates a Service.
func NewService(
	cfg ServiceConfig,
	blocks BlockSource,
	markets MarketSource,
	scanner *Scanner,
	executor *Executor,
	reporter Reporter,
	log logger.LoggerInterface,
) *Service {
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = DefaultCycleTimeout
	}
	if cfg.MaxFailedCycles <= 0 {
		cfg.MaxFailedCycles = DefaultMaxFailedCycles
	}
	return &Service{
		cfg:      cfg,
		blocks:   blocks,
		markets:  markets,
		scanner:  scanner,
		executor: executor,
		reporter: reporter,
		logger:   log,
	}
}

// LastBlock is the number of the most recently handled block.
func (s *Service) LastBlock() uint64 { return s.lastBlock.Load() }

// Cycles is the number of completed cycles.
func (s *Service) Cycles() int64 { return s.cycles.Load() }

// Run handles blocks until ctx is cancelled. Blocks that arrive while a cycle
// is running are coalesced so only the newest one is handled next. A cycle
// that fails on its inputs is logged and the loop moves on; a capability
// failure (see fatalCycleError) ends Run with that error.
func (s *Service) Run(ctx context.Context) error {
	feed, err := s.blocks.Subscribe(ctx)
	if err != nil {
		return err
	}

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	mailbox := newLatestBlock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-readCtx.Done():
				return
			case b, ok := <-feed:
				if !ok {
					return
				}
				if stale := mailbox.put(b); stale != nil {
					s.logger.Debug(ctx, "block superseded", "block", stale.Number, "by", b.Number)
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-mailbox.ch:
			if err := s.handleBlock(ctx, b); err != nil {
				return s.stop(ctx, err)
			}
		case <-done:
			// drain a block delivered just before the feed closed
			select {
			case b := <-mailbox.ch:
				if err := s.handleBlock(ctx, b); err != nil {
					return s.stop(ctx, err)
				}
			default:
			}
			if ctx.Err() != nil {
				return nil
			}
			return ErrSubscriptionClosed
		}
	}
}

// stop turns a fatal cycle error into Run's result. Shutdown wins over errors
// caused by the cancellation itself.
func (s *Service) stop(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	s.logger.Error(ctx, "stopping arbitrage loop", apperror.LogArgs(err)...)
	return err
}

// handleBlock runs one cycle. It returns an error only when the loop must stop.
func (s *Service) handleBlock(ctx context.Context, b *blockchain.Block) error {
	cycleID := uuid.NewString()
	start := time.Now()

	s.lastBlock.Store(b.Number)
	s.reporter.ReportBlock(b)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CycleTimeout)
	defer cancel()

	grouped := s.markets.Markets()
	ev, err := s.scanner.RefreshAndScan(ctx, grouped)
	if err != nil {
		s.logger.Error(ctx, "refresh and scan failed",
			append([]any{"cycle_id", cycleID, "block", b.Number}, apperror.LogArgs(err)...)...)
		return s.fatalCycleError(err)
	}

	s.reporter.ReportScan(ScanReport{
		CycleID:     cycleID,
		BlockNumber: b.Number,
		Markets:     grouped.Len(),
		Tokens:      len(grouped.MarketsByToken),
		Crossed:     ev.Crossed,
		Ranked:      ev.Ranked,
		Duration:    time.Since(start),
	})

	outcome, execErr := s.executor.ExecuteBest(ctx, ev.Ranked, b.Number, s.cfg.MinerRewardPercentage)
	if execErr != nil {
		s.logger.Error(ctx, "execution failed",
			append([]any{"cycle_id", cycleID, "block", b.Number}, apperror.LogArgs(execErr)...)...)
	}
	s.reporter.ReportOutcome(outcome)
	s.cycles.Add(1)

	s.logger.Info(ctx, "cycle complete",
		"cycle_id", cycleID,
		"block", b.Number,
		"state", string(outcome.State),
		"reason", outcome.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s.fatalCycleError(execErr)
}

// fatalCycleError decides whether a cycle error ends the loop.
//
// A broken connection, key or miner-reward setting cannot recover by waiting
// for the next block and stops the loop at once. An unreachable chain reader
// (failed or rejected contract calls, an open breaker) stops it after
// MaxFailedCycles cycles in a row. Anything else, such as a reserve count
// mismatch or a reverted simulation, only costs this cycle.
func (s *Service) fatalCycleError(err error) error {
	if err == nil {
		s.failedCycles = 0
		return nil
	}

	switch apperror.GetCode(err) {
	case apperror.CodeEthereumConnectionFailed,
		apperror.CodeInvalidKey,
		apperror.CodeBundleSigningFailed,
		apperror.CodeInvalidMinerRewardShare,
		apperror.CodeConfigurationError:
		return err
	case apperror.CodeContractCallFailed,
		apperror.CodeEthereumRPCError,
		apperror.CodeCircuitOpen:
		s.failedCycles++
		if s.failedCycles >= s.cfg.MaxFailedCycles {
			return apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("chain reader failed %d cycles in a row", s.failedCycles)))
		}
		return nil
	default:
		s.failedCycles = 0
		return nil
	}
}

// latestBlock is a one-slot mailbox that keeps only the newest block.
type latestBlock struct {
	ch chan *blockchain.Block
}

func newLatestBlock() *latestBlock {
	return &latestBlock{ch: make(chan *blockchain.Block, 1)}
}

// put replaces any waiting block with b and returns the replaced one. It must
// only be called from a single goroutine.
func (l *latestBlock) put(b *blockchain.Block) *blockchain.Block {
	var stale *blockchain.Block
	select {
	case stale = <-l.ch:
	default:
	}
	l.ch <- b
	return stale
}
