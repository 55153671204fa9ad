package translate

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// Limited wraps a Translator with a request rate limit and retries for
// transient failures.
type Limited struct {
	next      Translator
	limiter   *rate.Limiter
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
	sleep     func(context.Context, time.Duration) error
}

// NewRateLimiter allows ratePerMin calls per minute, unlimited when <= 0.
// One limiter is meant to be shared by every translator of a process.
func NewRateLimiter(ratePerMin int) *rate.Limiter {
	if ratePerMin <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(ratePerMin)/60.0), 1)
}

// NewLimited makes up to attempts tries per call, each gated by limiter.
func NewLimited(next Translator, limiter *rate.Limiter, attempts int) *Limited {
	if limiter == nil {
		limiter = NewRateLimiter(0)
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Limited{
		next:      next,
		limiter:   limiter,
		attempts:  attempts,
		baseDelay: time.Second,
		maxDelay:  10 * time.Second,
		sleep:     sleepContext,
	}
}

// WithBackoff overrides the retry delays
func (l *Limited) WithBackoff(base, limit time.Duration) *Limited {
	l.baseDelay = base
	l.maxDelay = limit
	return l
}

func (l *Limited) Name() string {
	return l.next.Name()
}

func (l *Limited) Translate(ctx context.Context, text, credential string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < l.attempts; attempt++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", failure(l.Name(), 0, err)
		}

		out, err := l.next.Translate(ctx, text, credential)
		if err == nil {
			return out, nil
		}
		lastErr = err

		var te *TranslationError
		if !errors.As(err, &te) || !te.Temporary() || attempt == l.attempts-1 {
			break
		}

		delay := l.baseDelay << uint(attempt) // 1s, 2s, 4s...
		if delay > l.maxDelay {
			delay = l.maxDelay
		}
		log.Printf("[translate] %s call failed (%v), retrying in %s (attempt %d/%d)",
			l.Name(), err, delay, attempt+2, l.attempts)
		if err := l.sleep(ctx, delay); err != nil {
			return "", failure(l.Name(), 0, err)
		}
	}
	return "", lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
