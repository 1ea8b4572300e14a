package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/simple-arbitrage/internal/apperror"
)

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.FailureThreshold = 3
	cfg.Timeout = time.Hour

	var transitions []gobreaker.State
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}

	cb := New[int](cfg)
	boom := errors.New("rpc down")

	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected underlying error, got %v", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	called := false
	_, err := cb.Execute(func() (int, error) {
		called = true
		return 1, nil
	})
	if called {
		t.Error("fn must not run while open")
	}
	if apperror.GetCode(err) != apperror.CodeCircuitOpen {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeCircuitOpen)
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("transitions = %v", transitions)
	}
}

func TestCircuitBreaker_CancellationDoesNotTrip(t *testing.T) {
	cfg := DefaultConfig("cancel")
	cfg.FailureThreshold = 1
	cb := New[string](cfg)

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (string, error) { return "", context.Canceled })
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
}

func TestCircuitBreaker_PassesResult(t *testing.T) {
	cb := New[string](DefaultConfig("ok"))

	got, err := cb.Execute(func() (string, error) { return "0xabc", nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0xabc" {
		t.Errorf("got %q", got)
	}
	if cb.Name() != "ok" {
		t.Errorf("name = %q", cb.Name())
	}
}
