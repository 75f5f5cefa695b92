package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/predictarena-go/internal/utils"
)

// BreakerState is the state of a circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling the upstream while the breaker is open.
var ErrCircuitOpen = utils.New(utils.KindUpstreamUnavailable, "market data provider circuit is open").WithCode("circuit_open")

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"` // consecutive failures before opening
	SuccessThreshold int           `mapstructure:"success_threshold"` // half-open successes before closing
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`      // wait before probing again
	MaxProbes        int           `mapstructure:"max_probes"`        // concurrent calls allowed while half-open

	// IsSuccessful decides whether a call's error counts against the
	// upstream. Defaults to nil errors and caller cancellation.
	IsSuccessful func(err error) bool `mapstructure:"-"`
}

// CircuitBreakerStats holds counters for the circuit breaker
type CircuitBreakerStats struct {
	TotalRequests      int64     `json:"total_requests"`
	RejectedRequests   int64     `json:"rejected_requests"`
	SuccessfulRequests int64     `json:"successful_requests"`
	FailedRequests     int64     `json:"failed_requests"`
	LastFailureTime    time.Time `json:"last_failure_time"`
	StateChanges       int64     `json:"state_changes"`
}

// CircuitBreaker guards calls to the market data provider. The lock is held
// only while admitting a call and while recording its result, never during it.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	logger *logrus.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	inFlight  int
	openedAt  time.Time
	stats     CircuitBreakerStats
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig, logger *logrus.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	if config.MaxProbes <= 0 {
		config.MaxProbes = 1
	}
	if config.IsSuccessful == nil {
		config.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		}
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		logger: logger,
		now:    time.Now,
		state:  BreakerClosed,
	}
}

// Execute runs fn unless the breaker is open. Errors accepted by
// IsSuccessful are returned but recorded as successes.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	cb.record(!cb.config.IsSuccessful(err), err)
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.TotalRequests++
	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.config.OpenTimeout {
		cb.transition(BreakerHalfOpen)
	}

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if cb.inFlight < cb.config.MaxProbes {
			cb.inFlight++
			return true
		}
	}

	cb.stats.RejectedRequests++
	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"state":           cb.state.String(),
	}).Debug("Circuit breaker rejected request")
	return false
}

func (cb *CircuitBreaker) record(failed bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	probing := cb.state == BreakerHalfOpen
	if probing && cb.inFlight > 0 {
		cb.inFlight--
	}

	if !failed {
		cb.stats.SuccessfulRequests++
		cb.failures = 0
		if probing {
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				cb.transition(BreakerClosed)
			}
		}
		return
	}

	cb.stats.FailedRequests++
	cb.stats.LastFailureTime = cb.now()
	cb.failures++
	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"state":           cb.state.String(),
		"failure_count":   cb.failures,
		"error":           err,
	}).Warn("Circuit breaker recorded upstream failure")

	if probing || cb.failures >= cb.config.FailureThreshold {
		cb.transition(BreakerOpen)
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to BreakerState) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.stats.StateChanges++
	cb.successes = 0
	switch to {
	case BreakerOpen:
		cb.openedAt = cb.now()
		cb.inFlight = 0
	case BreakerClosed:
		cb.failures = 0
		cb.inFlight = 0
	}

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"old_state":       from.String(),
		"new_state":       to.String(),
	}).Info("Circuit breaker state changed")
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the counters.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(BreakerClosed)
	cb.failures = 0
}
