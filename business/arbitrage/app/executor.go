package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/simple-arbitrage/business/arbitrage/domain"
	blockchain "github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
	"github.com/fd1az/simple-arbitrage/internal/logger"
)

const (
	tracerName = "github.com/fd1az/simple-arbitrage/business/arbitrage/app"
	meterName  = "github.com/fd1az/simple-arbitrage/business/arbitrage/app"
)

// DefaultGasCeiling rejects estimates above this as suspiciously large.
const DefaultGasCeiling uint64 = 1_400_000

// ExecutorConfig holds bundle execution settings.
type ExecutorConfig struct {
	BundleExecutor common.Address
	QuoteToken     common.Address
	GasCeiling     uint64
}

// Executor takes the best ranked opportunity through estimate, simulate and submit.
type Executor struct {
	cfg    ExecutorConfig
	chain  ChainWriter
	relay  BundleRelay
	logger logger.LoggerInterface

	tracer     trace.Tracer
	executions metric.Int64Counter
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig, chain ChainWriter, relay BundleRelay, log logger.LoggerInterface) (*Executor, error) {
	if cfg.GasCeiling == 0 {
		cfg.GasCeiling = DefaultGasCeiling
	}

	executions, err := otel.Meter(meterName).Int64Counter(
		"arbitrage_executions_total",
		metric.WithDescription("Execution cycles by final state"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return &Executor{
		cfg:        cfg,
		chain:      chain,
		relay:      relay,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
		executions: executions,
	}, nil
}

// ExecuteBest walks ranked in order. Candidates whose call cannot be built or
// whose gas estimate fails or exceeds the ceiling are skipped. The first
// candidate that passes is signed and simulated against blockNumber+1; a
// simulation error or revert aborts the cycle. A clean simulation is submitted
// for blockNumber+1 and blockNumber+2 and the cycle ends. At most one
// opportunity is submitted per call.
func (e *Executor) ExecuteBest(ctx context.Context, ranked []domain.CrossedMarketDetails, blockNumber uint64, minerRewardPercentage int64) (domain.Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "arbitrage.execute_best",
		trace.WithAttributes(
			attribute.Int64("block", int64(blockNumber)),
			attribute.Int("candidates", len(ranked)),
		),
	)
	defer span.End()

	outcome := domain.NewOutcome(blockNumber)
	defer func() {
		span.SetAttributes(attribute.String("state", string(outcome.State)))
		e.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(outcome.State))))
	}()

	if len(ranked) == 0 {
		outcome.Reason = "no opportunity"
		e.logger.Info(ctx, "no crossed markets", "block", blockNumber)
		return *outcome, nil
	}
	if minerRewardPercentage < 0 || minerRewardPercentage > 100 {
		outcome.Reason = "invalid miner reward percentage"
		return *outcome, apperror.New(apperror.CodeInvalidMinerRewardShare,
			apperror.WithContext(fmt.Sprintf("%d", minerRewardPercentage)))
	}

	for i := range ranked {
		candidate := ranked[i]

		tx, gas, reason, err := e.prepare(ctx, candidate, minerRewardPercentage)
		if err != nil {
			outcome.Skip(candidate, reason, err)
			e.logger.Warn(ctx, "candidate aborted",
				"token", candidate.Token.Hex(),
				"reason", reason,
				"error", err,
			)
			continue
		}

		outcome.Candidate = &candidate
		outcome.GasEstimate = gas
		outcome.MinerReward = minerReward(candidate.Profit, minerRewardPercentage)
		outcome.Advance(domain.StateGasEstimated)

		err = e.simulateAndSubmit(ctx, outcome, tx)
		return *outcome, err
	}

	// Every candidate ended in its own estimation abort; the cycle follows.
	outcome.Advance(domain.StateGasEstimated)
	outcome.Abort("no candidate passed gas estimation")
	return *outcome, nil
}

// prepare builds the transaction for candidate and checks its gas estimate.
// A non-nil error carries a short reason for the skip.
func (e *Executor) prepare(ctx context.Context, c domain.CrossedMarketDetails, pct int64) (*blockchain.TxRequest, uint64, string, error) {
	call, err := e.buildCall(c, pct)
	if err != nil {
		return nil, 0, "call building failed", err
	}

	tx, err := e.chain.BuildTransaction(ctx, call)
	if err != nil {
		return nil, 0, "transaction build failed", err
	}

	gas, err := e.chain.EstimateGas(ctx, tx)
	if err != nil {
		return nil, 0, "gas estimation failed", err
	}
	if gas > e.cfg.GasCeiling {
		return nil, gas, "gas estimate suspiciously large", apperror.New(apperror.CodeGasLimitExceeded,
			apperror.WithContext(fmt.Sprintf("estimate %d above ceiling %d", gas, e.cfg.GasCeiling)))
	}

	tx.Gas = gas
	return tx, gas, "", nil
}

// buildCall routes the buy swap output straight into the sell market, then
// sells the intermediate tokens back to the bundle executor. Amounts are
// whole wei throughout: the executor transfers the floored volume and each
// leg asks for exactly what the pair pays for its floored input.
func (e *Executor) buildCall(c domain.CrossedMarketDetails, pct int64) (blockchain.MultiCall, error) {
	quote := e.cfg.QuoteToken
	volume := c.Volume.Floor()

	calls, err := c.BuyFrom.BuildRoutedCall(quote, volume, c.SellTo)
	if err != nil {
		return blockchain.MultiCall{}, err
	}
	intermediate, err := c.BuyFrom.SwapOut(quote, volume.BigInt())
	if err != nil {
		return blockchain.MultiCall{}, err
	}
	sell, err := c.SellTo.BuildSwapCall(c.Token, decimal.NewFromBigInt(intermediate, 0), e.cfg.BundleExecutor)
	if err != nil {
		return blockchain.MultiCall{}, err
	}
	calls.Append(c.SellTo.Address(), sell)

	return blockchain.MultiCall{
		Executor:    e.cfg.BundleExecutor,
		Volume:      volume.BigInt(),
		MinerReward: minerReward(c.Profit, pct),
		Targets:     calls.Targets,
		Payloads:    calls.Payloads,
	}, nil
}

func (e *Executor) simulateAndSubmit(ctx context.Context, outcome *domain.Outcome, tx *blockchain.TxRequest) error {
	candidate := outcome.Candidate
	target := outcome.BlockNumber + 1

	bundle, err := e.relay.Sign(ctx, tx)
	if err != nil {
		outcome.Abort("bundle signing failed")
		return apperror.Wrap(err, apperror.CodeBundleSigningFailed, "sign bundle")
	}

	sim, err := e.relay.Simulate(ctx, bundle, target)
	if err != nil {
		outcome.Abort("simulation error")
		e.logger.Error(ctx, "simulation error, skipping cycle",
			"token", candidate.Token.Hex(),
			"target_block", target,
			"error", err,
		)
		return nil
	}
	if sim.Failed() {
		reason := "simulation error: " + sim.Error
		if sim.FirstRevert != nil {
			reason = "simulation reverted: " + sim.FirstRevert.Revert + sim.FirstRevert.Error
		}
		outcome.Abort(reason)
		e.logger.Error(ctx, "simulation failed, skipping cycle",
			"token", candidate.Token.Hex(),
			"target_block", target,
			"reason", reason,
		)
		return nil
	}

	outcome.Advance(domain.StateSimulated)
	outcome.CoinbaseDiff = sim.CoinbaseDiff
	outcome.GasPrice = sim.EffectiveGasPrice()
	e.logger.Info(ctx, "submitting bundle",
		"token", candidate.Token.Hex(),
		"coinbase_diff", bigString(sim.CoinbaseDiff),
		"effective_gas_price_gwei", decimal.NewFromBigInt(outcome.GasPrice, -9).StringFixed(3),
		"total_gas_used", sim.TotalGasUsed,
	)

	for _, block := range []uint64{outcome.BlockNumber + 1, outcome.BlockNumber + 2} {
		sub := domain.Submission{TargetBlock: block}
		ack, err := e.relay.Submit(ctx, bundle, block)
		if err != nil {
			sub.Err = err
			e.logger.Warn(ctx, "bundle submission failed", "target_block", block, "error", err)
		} else {
			sub.BundleHash = ack.BundleHash
			e.logger.Info(ctx, "bundle submitted", "target_block", block, "bundle_hash", ack.BundleHash)
		}
		outcome.Submissions = append(outcome.Submissions, sub)
	}

	if outcome.Accepted() == 0 {
		outcome.Abort("relay rejected every submission")
		return nil
	}
	outcome.Advance(domain.StateSubmitted)
	return nil
}

// minerReward is profit * pct / 100, truncated to wei.
func minerReward(profit decimal.Decimal, pct int64) *big.Int {
	return profit.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100)).BigInt()
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
