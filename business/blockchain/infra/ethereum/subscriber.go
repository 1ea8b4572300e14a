// Package ethereum adapts an execution node to the blockchain context: block
// heads, gas prices, nonces, signing and transaction assembly.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
	"github.com/fd1az/simple-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/simple-arbitrage/internal/logger"
)

const (
	tracerName = "github.com/fd1az/simple-arbitrage/business/blockchain/infra/ethereum"
	meterName  = tracerName
)

// SubscriberConfig holds the head feed endpoints and timings.
type SubscriberConfig struct {
	WSURL           string
	HTTPURL         string
	PollInterval    time.Duration // HTTP polling period
	ReconnectDelay  time.Duration // pause after the stream drops
	WSRetryInterval time.Duration // how often polling tries to get the stream back
	BufferSize      int
}

// DefaultSubscriberConfig polls about once per slot and retries the stream
// every minute while polling.
func DefaultSubscriberConfig(wsURL, httpURL string) SubscriberConfig {
	return SubscriberConfig{
		WSURL:           wsURL,
		HTTPURL:         httpURL,
		PollInterval:    12 * time.Second,
		ReconnectDelay:  5 * time.Second,
		WSRetryInterval: time.Minute,
		BufferSize:      16,
	}
}

// headSource is the part of ethclient.Client the feed needs.
type headSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	Close()
}

type dialFunc func(ctx context.Context, url string) (headSource, error)

func dialNode(ctx context.Context, url string) (headSource, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// feedMode is what the supervisor is doing right now.
type feedMode int

const (
	modeDown feedMode = iota
	modeStream
	modePoll
)

type subscriberMetrics struct {
	blocksReceived  metric.Int64Counter
	blocksDropped   metric.Int64Counter
	subscribeErrors metric.Int64Counter
	connectionState metric.Int64Gauge
	blockLag        metric.Float64Histogram
	pollFallbacks   metric.Int64Counter
}

// Subscriber feeds new block heads. A newHeads stream is preferred; HTTP
// polling covers the gaps while the stream is down. A single supervisor
// goroutine owns the switching, so at most one source emits at a time.
type Subscriber struct {
	cfg    SubscriberConfig
	logger logger.LoggerInterface
	dial   dialFunc

	// startMu is held for all of Subscribe and for Close's teardown, so one
	// supervisor at most is ever started and Close never races a dial.
	startMu sync.Mutex

	mu        sync.Mutex // guards the fields below
	ws        headSource
	http      headSource
	state     domain.ConnectionState
	usingHTTP bool
	started   bool
	cancel    context.CancelFunc

	lastBlock  atomic.Uint64
	reconnects atomic.Int32

	blocks    chan *domain.Block
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool

	httpCB  *circuitbreaker.CircuitBreaker[*types.Header]
	tracer  trace.Tracer
	metrics *subscriberMetrics
}

// NewSubscriber builds a Subscriber. Nothing is dialed until Subscribe or
// LatestBlock.
func NewSubscriber(cfg SubscriberConfig, log logger.LoggerInterface) (*Subscriber, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	s := &Subscriber{
		cfg:    cfg,
		logger: log,
		dial:   dialNode,
		state:  domain.StateDisconnected,
		blocks: make(chan *domain.Block, cfg.BufferSize),
		tracer: otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("eth-http")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	s.httpCB = circuitbreaker.New[*types.Header](cbCfg)
	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	m := &subscriberMetrics{}
	var err error

	if m.blocksReceived, err = meter.Int64Counter("eth_blocks_received_total",
		metric.WithDescription("Block heads delivered to consumers")); err != nil {
		return err
	}
	if m.blocksDropped, err = meter.Int64Counter("eth_blocks_dropped_total",
		metric.WithDescription("Block heads dropped because the consumer lagged")); err != nil {
		return err
	}
	if m.subscribeErrors, err = meter.Int64Counter("eth_subscribe_errors_total",
		metric.WithDescription("Head stream and poll failures")); err != nil {
		return err
	}
	if m.connectionState, err = meter.Int64Gauge("eth_connection_state",
		metric.WithDescription("0 down, 1 connecting, 2 connected, 3 reconnecting")); err != nil {
		return err
	}
	if m.blockLag, err = meter.Float64Histogram("eth_block_lag_ms",
		metric.WithDescription("Delay between block timestamp and receipt"),
		metric.WithUnit("ms")); err != nil {
		return err
	}
	if m.pollFallbacks, err = meter.Int64Counter("eth_http_fallback_total",
		metric.WithDescription("Switches from the head stream to HTTP polling")); err != nil {
		return err
	}

	s.metrics = m
	return nil
}

// Subscribe connects and starts the feed. The returned channel is closed by
// Close. Calling Subscribe again, concurrently or not, returns the same
// channel; callers that arrive while the first one is dialing wait for it.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "eth.subscribe")
	defer span.End()

	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.closed.Load() {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("subscriber is closed"))
	}

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		return s.blocks, nil
	}

	s.setState(domain.StateConnecting)
	mode, err := s.connect(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no endpoint reachable")
		s.setState(domain.StateDisconnected)
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("neither ws nor http endpoint reachable"))
	}

	// The feed outlives this call's span but not the caller's context.
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.started = true
	s.cancel = cancel
	s.mu.Unlock()

	s.enter(mode)
	span.SetAttributes(attribute.Bool("polling", mode == modePoll))

	s.wg.Add(1)
	go s.supervise(runCtx, mode)
	return s.blocks, nil
}

// connect tries the stream first and HTTP second.
func (s *Subscriber) connect(ctx context.Context) (feedMode, error) {
	wsErr := s.dialWS(ctx)
	if wsErr == nil {
		return modeStream, nil
	}
	s.logger.Warn(ctx, "ws unavailable, trying http", "error", wsErr)

	if err := s.dialHTTP(ctx); err != nil {
		return modeDown, errors.Join(wsErr, err)
	}
	s.metrics.pollFallbacks.Add(ctx, 1)
	return modePoll, nil
}

func (s *Subscriber) supervise(ctx context.Context, mode feedMode) {
	defer s.wg.Done()

	for ctx.Err() == nil {
		switch mode {
		case modeStream:
			mode = s.stream(ctx)
		case modePoll:
			mode = s.poll(ctx)
		default:
			mode = s.reconnect(ctx)
		}
		if ctx.Err() == nil {
			s.enter(mode)
		}
	}
}

// stream pumps newHeads until the subscription fails.
func (s *Subscriber) stream(ctx context.Context) feedMode {
	s.mu.Lock()
	client := s.ws
	s.mu.Unlock()
	if client == nil {
		return modeDown
	}

	heads := make(chan *types.Header, s.cfg.BufferSize)
	sub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		s.logger.Error(ctx, "newHeads subscription failed", "error", err)
		s.metrics.subscribeErrors.Add(ctx, 1)
		s.dropWS()
		return modeDown
	}
	s.logger.Info(ctx, "streaming block heads over ws")

	for {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
			return modeDown
		case err := <-sub.Err():
			s.logger.Warn(ctx, "head stream ended", "error", err)
			s.metrics.subscribeErrors.Add(ctx, 1)
			sub.Unsubscribe()
			s.dropWS()
			return modeDown
		case h := <-heads:
			if h != nil {
				s.emit(ctx, h, "ws")
			}
		}
	}
}

// poll reads the latest head every PollInterval and periodically tries to
// get the stream back.
func (s *Subscriber) poll(ctx context.Context) feedMode {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var retry <-chan time.Time
	if s.cfg.WSURL != "" && s.cfg.WSRetryInterval > 0 {
		t := time.NewTicker(s.cfg.WSRetryInterval)
		defer t.Stop()
		retry = t.C
	}

	s.logger.Info(ctx, "polling block heads over http", "interval", s.cfg.PollInterval)
	s.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return modeDown
		case <-ticker.C:
			s.pollOnce(ctx)
		case <-retry:
			if err := s.dialWS(ctx); err == nil {
				s.logger.Info(ctx, "ws endpoint back, leaving http polling")
				return modeStream
			}
		}
	}
}

func (s *Subscriber) pollOnce(ctx context.Context) {
	s.mu.Lock()
	client := s.http
	s.mu.Unlock()
	if client == nil {
		return
	}

	h, err := s.httpCB.Execute(func() (*types.Header, error) {
		return client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn(ctx, "poll latest head failed", "error", err)
			s.metrics.subscribeErrors.Add(ctx, 1)
		}
		return
	}
	if h.Number.Uint64() <= s.lastBlock.Load() {
		return
	}
	s.emit(ctx, h, "http")
}

// reconnect waits ReconnectDelay, then tries the stream and then polling.
func (s *Subscriber) reconnect(ctx context.Context) feedMode {
	s.reconnects.Add(1)

	select {
	case <-ctx.Done():
		return modeDown
	case <-time.After(s.cfg.ReconnectDelay):
	}

	if err := s.dialWS(ctx); err == nil {
		return modeStream
	} else if s.cfg.WSURL != "" {
		s.logger.Warn(ctx, "ws reconnect failed", "error", err)
	}

	if err := s.dialHTTP(ctx); err != nil {
		s.logger.Error(ctx, "http fallback unavailable", "error", err)
		return modeDown
	}
	s.metrics.pollFallbacks.Add(ctx, 1)
	return modePoll
}

func (s *Subscriber) dialWS(ctx context.Context) error {
	if s.cfg.WSURL == "" {
		return errors.New("ws url not configured")
	}
	c, err := s.dial(ctx, s.cfg.WSURL)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}

	s.mu.Lock()
	old := s.ws
	s.ws = c
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// dialHTTP is a no-op once an HTTP client exists.
func (s *Subscriber) dialHTTP(ctx context.Context) error {
	if s.cfg.HTTPURL == "" {
		return errors.New("http url not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http != nil {
		return nil
	}
	c, err := s.dial(ctx, s.cfg.HTTPURL)
	if err != nil {
		return fmt.Errorf("dial http: %w", err)
	}
	s.http = c
	return nil
}

func (s *Subscriber) dropWS() {
	s.mu.Lock()
	c := s.ws
	s.ws = nil
	s.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// emit forwards a head without blocking. When the consumer lags the new
// head is dropped; the consumer coalesces to the latest anyway.
func (s *Subscriber) emit(ctx context.Context, h *types.Header, via string) {
	block := toBlock(h)
	s.lastBlock.Store(block.Number)
	s.metrics.blockLag.Record(ctx, float64(time.Since(block.Timestamp).Milliseconds()))

	select {
	case s.blocks <- block:
		s.metrics.blocksReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("via", via)))
		s.logger.Debug(ctx, "block head", "number", block.Number, "via", via)
	default:
		s.metrics.blocksDropped.Add(ctx, 1)
		s.logger.Warn(ctx, "block head dropped, consumer behind", "number", block.Number)
	}
}

func toBlock(h *types.Header) *domain.Block {
	return &domain.Block{
		Number:     h.Number.Uint64(),
		Hash:       h.Hash(),
		ParentHash: h.ParentHash,
		Timestamp:  time.Unix(int64(h.Time), 0),
		GasLimit:   h.GasLimit,
		GasUsed:    h.GasUsed,
		BaseFee:    h.BaseFee,
	}
}

// LatestBlock reads the chain head from the stream client when it is live
// and from HTTP otherwise, dialing HTTP on first use.
func (s *Subscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "eth.latest_block")
	defer span.End()

	s.mu.Lock()
	ws, polling := s.ws, s.usingHTTP
	s.mu.Unlock()

	if ws != nil && !polling {
		if h, err := ws.HeaderByNumber(ctx, nil); err == nil {
			return toBlock(h), nil
		}
	}

	if err := s.dialHTTP(ctx); err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("no ethereum client connected"))
	}
	s.mu.Lock()
	client := s.http
	s.mu.Unlock()

	h, err := s.httpCB.Execute(func() (*types.Header, error) {
		return client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeBlockNotFound,
			apperror.WithCause(err),
			apperror.WithContext("latest block"))
	}
	return toBlock(h), nil
}

// enter records the externally visible state for a feed mode.
func (s *Subscriber) enter(mode feedMode) {
	s.mu.Lock()
	s.usingHTTP = mode == modePoll
	s.mu.Unlock()

	if mode == modeDown {
		s.setState(domain.StateReconnecting)
		return
	}
	s.setState(domain.StateConnected)
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	var v int64
	switch state {
	case domain.StateConnecting:
		v = 1
	case domain.StateConnected:
		v = 2
	case domain.StateReconnecting:
		v = 3
	}
	s.metrics.connectionState.Record(context.Background(), v)
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status is a point-in-time snapshot for the dashboard.
func (s *Subscriber) Status() domain.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ConnectionStatus{
		State:      s.state,
		LastBlock:  s.lastBlock.Load(),
		LastUpdate: time.Now(),
		Reconnects: int(s.reconnects.Load()),
		UsingHTTP:  s.usingHTTP,
	}
}

// BlockNumber returns the number of the last head seen.
func (s *Subscriber) BlockNumber() uint64 {
	return s.lastBlock.Load()
}

// Healthy reports whether heads are flowing, for the health server.
func (s *Subscriber) Healthy(_ context.Context) (bool, string) {
	st := s.Status()
	if st.State != domain.StateConnected {
		return false, string(st.State)
	}
	msg := fmt.Sprintf("last block %d, %d reconnects", st.LastBlock, st.Reconnects)
	if st.UsingHTTP {
		msg = "polling over http, " + msg
	}
	return true, msg
}

// Close stops the supervisor, closes both clients and then the block
// channel. It is safe to call more than once.
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		s.startMu.Lock()
		defer s.startMu.Unlock()
		s.closed.Store(true)

		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.wg.Wait()

		s.mu.Lock()
		ws, http := s.ws, s.http
		s.ws, s.http = nil, nil
		s.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		if http != nil {
			http.Close()
		}

		close(s.blocks)
		s.setState(domain.StateDisconnected)
		s.logger.Info(context.Background(), "ethereum subscriber closed")
	})
	return nil
}
