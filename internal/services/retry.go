package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/predictarena-go/internal/utils"
	"github.com/irfndi/predictarena-go/pkg/quotes"
)

// RetryPolicy configures exponential backoff for upstream calls. The zero
// value performs a single attempt.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryPolicy suits market data lookups made on the request path.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    2,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// Retry runs operation until it succeeds, returns a permanent error, or the
// policy is exhausted. The last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, logger *logrus.Logger, operationName string, operation func(context.Context) error) error {
	delay := policy.InitialDelay
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 0 && logger != nil {
				logger.WithFields(logrus.Fields{
					"operation": operationName,
					"attempts":  attempt + 1,
					"duration":  time.Since(start),
				}).Info("Operation recovered after retry")
			}
			return nil
		}
		lastErr = err

		if attempt == policy.MaxRetries || !retryable(ctx, err) {
			break
		}

		if logger != nil {
			logger.WithFields(logrus.Fields{
				"operation": operationName,
				"attempt":   attempt + 1,
				"error":     err.Error(),
				"delay":     delay,
			}).Warn("Operation failed, retrying")
		}

		timer := time.NewTimer(policy.backoff(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}

		delay = policy.next(delay)
	}

	return lastErr
}

func (p RetryPolicy) backoff(delay time.Duration) time.Duration {
	if !p.JitterEnabled || delay <= 0 {
		return delay
	}
	// +/- 12.5%
	jitter := time.Duration(float64(delay) * 0.25 * (rand.Float64() - 0.5))
	return delay + jitter
}

func (p RetryPolicy) next(delay time.Duration) time.Duration {
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay = time.Duration(float64(delay) * factor)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// retryable reports whether err is worth another attempt. An open circuit
// and a cancelled caller are final, as is anything symbolScoped.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	return !symbolScoped(err)
}

// symbolScoped reports whether err concerns the request rather than the
// provider: an unknown symbol, a missing series, a caller cancellation or a
// typed non-upstream error.
func symbolScoped(err error) bool {
	if errors.Is(err, quotes.ErrNoData) || errors.Is(err, quotes.ErrSymbolRequired) || errors.Is(err, context.Canceled) {
		return true
	}
	var typed *utils.Error
	if errors.As(err, &typed) {
		return typed.Kind != utils.KindUpstreamUnavailable
	}
	return false
}

// ProviderResponded is the market data breaker's IsSuccessful: the provider
// answered, even if it had nothing for the symbol asked.
func ProviderResponded(err error) bool {
	return err == nil || symbolScoped(err)
}
