// Package resilience provides fault tolerance helpers for external service calls.
package resilience

import (
	"context"
	"errors"
	"net"
	"time"

	"complaint_server/pkg/logger"

	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig holds configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	Name                string
	ConsecutiveFailures uint32        // trip after more than this many failures in a row
	MinRequests         uint32        // requests needed before the ratio rule applies
	FailureRatio        float64       // trip when failures/requests reaches this
	Interval            time.Duration // closed-state counter reset
	Timeout             time.Duration // open-state duration before half-open
	MaxHalfOpenRequests uint32
}

// DefaultCircuitBreakerConfig returns the settings used for classifier APIs.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                name,
		ConsecutiveFailures: 5,
		MinRequests:         10,
		FailureRatio:        0.6,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 3,
	}
}

// NewCircuitBreaker builds a gobreaker circuit from cfg.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxHalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio)
		},
		// a caller hanging up says nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	})
}

// IsCircuitOpen reports whether err came from a breaker refusing the call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// IsTimeout reports deadline and network timeouts.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
