// Package circuitbreaker wraps sony/gobreaker with typed results and app error codes.
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/simple-arbitrage/internal/apperror"
)

// Config configures a breaker.
type Config struct {
	Name             string
	MaxRequests      uint32        // allowed through while half-open
	Interval         time.Duration // closed-state counter reset period
	Timeout          time.Duration // open -> half-open delay
	FailureThreshold uint32        // consecutive failures that trip the breaker
	OnStateChange    func(name string, from, to gobreaker.State)
}

// DefaultConfig trips after 5 consecutive failures and probes again after 30s.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// CircuitBreaker is a typed breaker.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New builds a breaker from cfg.
func New[T any](cfg Config) *CircuitBreaker[T] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
		// Caller cancellation says nothing about the remote's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker. Rejections come back as CodeCircuitOpen.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	res, err := c.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, apperror.New(apperror.CodeCircuitOpen,
			apperror.WithCause(err),
			apperror.WithContext(c.cb.Name()))
	}
	return res, err
}

// State reports the current breaker state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}

// Name returns the breaker name.
func (c *CircuitBreaker[T]) Name() string {
	return c.cb.Name()
}
