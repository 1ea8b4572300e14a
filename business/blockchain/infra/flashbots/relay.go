// Package flashbots talks to a Flashbots-compatible bundle relay.
package flashbots

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
	"github.com/fd1az/simple-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/simple-arbitrage/internal/httpclient"
	"github.com/fd1az/simple-arbitrage/internal/logger"
	"github.com/fd1az/simple-arbitrage/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/simple-arbitrage/business/blockchain/infra/flashbots"
	meterName  = "github.com/fd1az/simple-arbitrage/business/blockchain/infra/flashbots"

	// DefaultRelayURL is the mainnet Flashbots relay.
	DefaultRelayURL = "https://relay.flashbots.net"

	// SignatureHeader authenticates the searcher to the relay.
	SignatureHeader = "X-Flashbots-Signature"

	methodCallBundle = "eth_callBundle"
	methodSendBundle = "eth_sendBundle"

	defaultTimeout = 5 * time.Second
)

// TxSigner signs executor transactions.
type TxSigner interface {
	SignTx(req *domain.TxRequest) (*types.Transaction, error)
}

// Config holds relay settings.
type Config struct {
	RelayURL          string
	SigningKey        string // hex key identifying the searcher, not the executor wallet
	RequestsPerSecond float64
	Timeout           time.Duration
}

type relayMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// Relay signs, simulates and submits bundles.
type Relay struct {
	cfg      Config
	client   *httpclient.Client
	signer   TxSigner
	authKey  *ecdsa.PrivateKey
	authAddr common.Address
	limiter  *ratelimit.Limiter
	cb       *circuitbreaker.CircuitBreaker[*httpclient.Response]
	logger   logger.LoggerInterface
	nextID   atomic.Uint64

	tracer  trace.Tracer
	metrics *relayMetrics
}

// NewRelay creates a Relay. signer signs bundle transactions; cfg.SigningKey
// signs request bodies.
func NewRelay(cfg Config, signer TxSigner, log logger.LoggerInterface) (*Relay, error) {
	if cfg.RelayURL == "" {
		cfg.RelayURL = DefaultRelayURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}

	authKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.SigningKey, "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidKey,
			apperror.WithCause(err),
			apperror.WithContext("relay signing key"))
	}

	tracer := otel.Tracer(tracerName)
	client, err := httpclient.New(
		httpclient.WithName("flashbots"),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeader("Accept", "application/json"),
		httpclient.WithHeader("Content-Type", "application/json"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	r := &Relay{
		cfg:      cfg,
		client:   client,
		signer:   signer,
		authKey:  authKey,
		authAddr: crypto.PubkeyToAddress(authKey.PublicKey),
		limiter:  ratelimit.NewWithBurst(cfg.RequestsPerSecond, 2),
		cb:       circuitbreaker.New[*httpclient.Response](circuitbreaker.DefaultConfig("flashbots-relay")),
		logger:   log,
		tracer:   tracer,
	}
	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return r, nil
}

func (r *Relay) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &relayMetrics{}

	r.metrics.requests, err = meter.Int64Counter(
		"relay_requests_total",
		metric.WithDescription("Relay JSON-RPC requests by method and result"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	r.metrics.latency, err = meter.Float64Histogram(
		"relay_request_duration_ms",
		metric.WithDescription("Relay JSON-RPC round trip"),
		metric.WithUnit("ms"),
	)
	return err
}

// AuthAddress is the searcher identity the relay sees.
func (r *Relay) AuthAddress() common.Address {
	return r.authAddr
}

// Sign signs tx with the executor wallet and wraps it as a one-transaction bundle.
func (r *Relay) Sign(ctx context.Context, tx *domain.TxRequest) (*domain.SignedBundle, error) {
	_, span := r.tracer.Start(ctx, "flashbots.sign")
	defer span.End()

	signed, err := r.signer.SignTx(tx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeBundleSigningFailed,
			apperror.WithCause(err),
			apperror.WithContext("encode signed transaction"))
	}

	span.SetAttributes(attribute.String("tx_hash", signed.Hash().Hex()))
	return &domain.SignedBundle{
		Transactions: [][]byte{raw},
		Hashes:       []common.Hash{signed.Hash()},
	}, nil
}

// Simulate dry-runs bundle on top of the latest state as if mined in targetBlock.
func (r *Relay) Simulate(ctx context.Context, bundle *domain.SignedBundle, targetBlock uint64) (*domain.SimulationResult, error) {
	ctx, span := r.tracer.Start(ctx, "flashbots.simulate",
		trace.WithAttributes(attribute.Int64("target_block", int64(targetBlock))),
	)
	defer span.End()

	params := callBundleParams{
		Txs:              rawTxs(bundle),
		BlockNumber:      hexutil.Uint64(targetBlock),
		StateBlockNumber: "latest",
	}

	var result callBundleResult
	if err := r.call(ctx, methodCallBundle, params, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "simulate failed")
		return nil, apperror.New(apperror.CodeBundleSimulationFailed,
			apperror.WithCause(err),
			apperror.WithContext(methodCallBundle))
	}

	sim, err := result.toSimulation()
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeBundleSimulationFailed,
			apperror.WithCause(err),
			apperror.WithContext("decode "+methodCallBundle))
	}

	span.SetAttributes(
		attribute.Bool("failed", sim.Failed()),
		attribute.Int64("total_gas_used", int64(sim.TotalGasUsed)),
	)
	span.SetStatus(codes.Ok, "simulated")
	return sim, nil
}

// Submit asks the relay to include bundle in targetBlock.
func (r *Relay) Submit(ctx context.Context, bundle *domain.SignedBundle, targetBlock uint64) (*domain.SubmissionAck, error) {
	ctx, span := r.tracer.Start(ctx, "flashbots.submit",
		trace.WithAttributes(attribute.Int64("target_block", int64(targetBlock))),
	)
	defer span.End()

	params := sendBundleParams{
		Txs:         rawTxs(bundle),
		BlockNumber: hexutil.Uint64(targetBlock),
	}

	var result sendBundleResult
	if err := r.call(ctx, methodSendBundle, params, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return nil, apperror.New(apperror.CodeBundleSubmissionFailed,
			apperror.WithCause(err),
			apperror.WithContext(methodSendBundle))
	}

	span.SetAttributes(attribute.String("bundle_hash", result.BundleHash))
	span.SetStatus(codes.Ok, "submitted")
	return &domain.SubmissionAck{BundleHash: result.BundleHash, TargetBlock: targetBlock}, nil
}

// call sends one signed JSON-RPC request and decodes its result into out.
func (r *Relay) call(ctx context.Context, method string, params any, out any) (err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		attrs := metric.WithAttributes(attribute.String("method", method), attribute.String("status", status))
		r.metrics.requests.Add(ctx, 1, attrs)
		r.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}()

	if err := r.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      r.nextID.Add(1),
		Method:  method,
		Params:  []any{params},
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	signature, err := r.signature(body)
	if err != nil {
		return err
	}

	resp, err := r.cb.Execute(func() (*httpclient.Response, error) {
		resp, err := r.client.Post(ctx, r.cfg.RelayURL, body,
			httpclient.Header(SignatureHeader, signature),
			httpclient.Label("rpc.method", method))
		if err != nil {
			return nil, err
		}
		// Only server-side failures count against the breaker.
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.String())
		}
		return resp, nil
	})
	if err != nil {
		return apperror.New(apperror.CodeRelayRPCError, apperror.WithCause(err))
	}

	var envelope rpcResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return apperror.New(apperror.CodeRelayRPCError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	if envelope.Error != nil {
		return apperror.New(apperror.CodeRelayRPCError, apperror.WithCause(envelope.Error))
	}
	if resp.IsError() {
		return apperror.New(apperror.CodeRelayRPCError,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return apperror.New(apperror.CodeRelayRPCError,
			apperror.WithCause(err),
			apperror.WithContext("decode result"))
	}
	return nil
}

// signature builds the X-Flashbots-Signature value for body: the searcher
// address and a personal_sign of the hex keccak256 of the body.
func (r *Relay) signature(body []byte) (string, error) {
	digest := crypto.Keccak256Hash(body).Hex()
	sig, err := crypto.Sign(accounts.TextHash([]byte(digest)), r.authKey)
	if err != nil {
		return "", apperror.New(apperror.CodeBundleSigningFailed,
			apperror.WithCause(err),
			apperror.WithContext("sign relay request"))
	}
	return r.authAddr.Hex() + ":" + hexutil.Encode(sig), nil
}
