package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
)

func newTestSubscriber(t *testing.T, cfg SubscriberConfig) *Subscriber {
	t.Helper()
	s, err := NewSubscriber(cfg, &mockLogger{})
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	return s
}

func TestSubscriber_Emit(t *testing.T) {
	s := newTestSubscriber(t, DefaultSubscriberConfig("", ""))

	header := &types.Header{
		Number:   big.NewInt(19_000_000),
		Time:     uint64(time.Now().Unix()),
		GasLimit: 30_000_000,
		GasUsed:  12_000_000,
		BaseFee:  big.NewInt(15_000_000_000),
	}
	s.emit(context.Background(), header, "ws")

	select {
	case b := <-s.blocks:
		if b.Number != 19_000_000 || b.Hash != header.Hash() || b.BaseFee.Int64() != 15_000_000_000 {
			t.Errorf("block = %+v", b)
		}
	default:
		t.Fatal("no block emitted")
	}
	if s.BlockNumber() != 19_000_000 {
		t.Errorf("BlockNumber = %d", s.BlockNumber())
	}
}

func TestSubscriber_DropsWhenBufferFull(t *testing.T) {
	cfg := DefaultSubscriberConfig("", "")
	cfg.BufferSize = 1
	s := newTestSubscriber(t, cfg)

	for n := int64(1); n <= 3; n++ {
		s.emit(context.Background(), &types.Header{Number: big.NewInt(n)}, "http")
	}

	if got := len(s.blocks); got != 1 {
		t.Fatalf("buffered %d blocks, want 1", got)
	}
	if b := <-s.blocks; b.Number != 1 {
		t.Errorf("buffered block %d, want the first", b.Number)
	}
	if s.BlockNumber() != 3 {
		t.Errorf("BlockNumber = %d, want 3", s.BlockNumber())
	}
}

func TestSubscriber_SubscribeWithoutEndpoints(t *testing.T) {
	s := newTestSubscriber(t, DefaultSubscriberConfig("", ""))

	_, err := s.Subscribe(context.Background())
	if code := apperror.GetCode(err); code != apperror.CodeEthereumConnectionFailed {
		t.Errorf("code = %s, want %s", code, apperror.CodeEthereumConnectionFailed)
	}
	if s.State() != domain.StateDisconnected {
		t.Errorf("State = %s, want disconnected", s.State())
	}
	if ok, _ := s.Healthy(context.Background()); ok {
		t.Error("Healthy() = true while disconnected")
	}
}

func TestSubscriber_Close(t *testing.T) {
	s := newTestSubscriber(t, DefaultSubscriberConfig("", ""))

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, ok := <-s.blocks; ok {
		t.Error("blocks channel still open")
	}
	if _, err := s.Subscribe(context.Background()); err == nil {
		t.Error("Subscribe after Close succeeded")
	}
}

// fakeHeads serves an increasing chain head. When stream is set,
// SubscribeNewHead pushes heads until the subscription is closed.
type fakeHeads struct {
	mu     sync.Mutex
	head   int64
	stream bool
	closed bool
}

func (f *fakeHeads) next() *types.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head++
	return &types.Header{Number: big.NewInt(f.head), Time: uint64(time.Now().Unix())}
}

func (f *fakeHeads) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return f.next(), nil
}

func (f *fakeHeads) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	if !f.stream {
		return nil, errors.New("notifications not supported")
	}
	sub := &fakeSub{errc: make(chan error), quit: make(chan struct{})}
	go func() {
		t := time.NewTicker(5 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-sub.quit:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				select {
				case ch <- f.next():
				case <-sub.quit:
					return
				}
			}
		}
	}()
	return sub, nil
}

func (f *fakeHeads) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

type fakeSub struct {
	errc chan error
	quit chan struct{}
	once sync.Once
}

func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.quit) }) }
func (s *fakeSub) Err() <-chan error { return s.errc }

func dialerFor(sources map[string]headSource) dialFunc {
	return func(_ context.Context, url string) (headSource, error) {
		if src, ok := sources[url]; ok {
			return src, nil
		}
		return nil, errors.New("connection refused")
	}
}

func waitBlocks(t *testing.T, ch <-chan *domain.Block, n int) []*domain.Block {
	t.Helper()
	var got []*domain.Block
	deadline := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case b := <-ch:
			got = append(got, b)
		case <-deadline:
			t.Fatalf("received %d blocks, want %d", len(got), n)
		}
	}
	return got
}

func TestSubscriber_StreamsOverWS(t *testing.T) {
	cfg := DefaultSubscriberConfig("ws://node", "http://node")
	s := newTestSubscriber(t, cfg)
	ws := &fakeHeads{stream: true}
	s.dial = dialerFor(map[string]headSource{"ws://node": ws})
	defer s.Close()

	ch, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	got := waitBlocks(t, ch, 3)

	for i := 1; i < len(got); i++ {
		if got[i].Number <= got[i-1].Number {
			t.Errorf("heads not increasing: %d then %d", got[i-1].Number, got[i].Number)
		}
	}
	st := s.Status()
	if st.State != domain.StateConnected || st.UsingHTTP {
		t.Errorf("status = %+v, want connected over ws", st)
	}
}

func TestSubscriber_ConcurrentSubscribeStartsOneFeed(t *testing.T) {
	s := newTestSubscriber(t, DefaultSubscriberConfig("ws://node", ""))
	ws := &fakeHeads{stream: true}

	var (
		mu    sync.Mutex
		dials int
	)
	gate := make(chan struct{})
	s.dial = func(ctx context.Context, url string) (headSource, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		<-gate // hold every caller inside connect until all have arrived
		return ws, nil
	}
	defer s.Close()

	const callers = 8
	chans := make([]<-chan *domain.Block, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chans[i], errs[i] = s.Subscribe(context.Background())
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("Subscribe[%d]: %v", i, errs[i])
		}
		if chans[i] != chans[0] {
			t.Errorf("Subscribe[%d] returned a different channel", i)
		}
	}
	mu.Lock()
	got := dials
	mu.Unlock()
	if got != 1 {
		t.Errorf("dialed %d times, want 1", got)
	}
	waitBlocks(t, chans[0], 2)
}

func TestSubscriber_FallsBackToPolling(t *testing.T) {
	cfg := DefaultSubscriberConfig("ws://down", "http://node")
	cfg.PollInterval = 5 * time.Millisecond
	s := newTestSubscriber(t, cfg)
	s.dial = dialerFor(map[string]headSource{"http://node": &fakeHeads{}})
	defer s.Close()

	ch, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitBlocks(t, ch, 2)

	if ok, msg := s.Healthy(context.Background()); !ok {
		t.Errorf("Healthy() = false: %s", msg)
	}
	if !s.Status().UsingHTTP {
		t.Error("UsingHTTP = false while polling")
	}
}

func TestSubscriber_CloseStopsFeed(t *testing.T) {
	cfg := DefaultSubscriberConfig("ws://node", "")
	s := newTestSubscriber(t, cfg)
	ws := &fakeHeads{stream: true}
	s.dial = dialerFor(map[string]headSource{"ws://node": ws})

	ch, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitBlocks(t, ch, 1)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for range ch {
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if !ws.closed {
		t.Error("ws client not closed")
	}
}

func TestSubscriber_LatestBlockDialsHTTP(t *testing.T) {
	s := newTestSubscriber(t, DefaultSubscriberConfig("", "http://node"))
	s.dial = dialerFor(map[string]headSource{"http://node": &fakeHeads{head: 41}})
	defer s.Close()

	b, err := s.LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("LatestBlock: %v", err)
	}
	if b.Number != 42 {
		t.Errorf("Number = %d, want 42", b.Number)
	}
}
