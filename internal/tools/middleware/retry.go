package middleware

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"finwiz/internal/tools"
	"finwiz/pkg/errors"
)

// Retry retries tool execution on error with exponential backoff. The final
// error from the last attempt is returned. This is the inner retry for flaky
// endpoints; whole task invocations are retried separately by the crew
// coordinator.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

// Wrap adds retry semantics to a tool.
func (m Retry) Wrap(t tools.Tool) tools.Tool {
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	return tools.New(t.Name(), t.Description(), func(ctx context.Context, args map[string]interface{}) (string, error) {
		backoff := m.Backoff

		var result string
		var err error
		for i := 0; i < attempts; i++ {
			result, err = t.Execute(ctx, args)
			if err == nil {
				return result, nil
			}

			if backoff > 0 && i < attempts-1 {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
			}
		}

		return result, err
	})
}

// Timeout bounds each tool execution with a wall-clock deadline, surfaced as
// a timeout error so callers treat it like any other tool failure.
type Timeout struct {
	Limit time.Duration
}

// Wrap adds a per-call deadline to a tool.
func (m Timeout) Wrap(t tools.Tool) tools.Tool {
	if m.Limit <= 0 {
		return t
	}

	return tools.New(t.Name(), t.Description(), func(ctx context.Context, args map[string]interface{}) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, m.Limit)
		defer cancel()

		result, err := t.Execute(ctx, args)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return "", errors.Wrapf(errors.ErrTimeout, "tool %s", t.Name())
		}
		return result, err
	})
}

// RateLimit throttles tool executions so outbound API quotas are respected.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Wrap adds rate limiting to a tool.
func (m RateLimit) Wrap(t tools.Tool) tools.Tool {
	if m.RPS <= 0 {
		return t
	}
	burst := m.Burst
	if burst <= 0 {
		burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(m.RPS), burst)

	return tools.New(t.Name(), t.Description(), func(ctx context.Context, args map[string]interface{}) (string, error) {
		if err := limiter.Wait(ctx); err != nil {
			return "", errors.Wrap(err, "rate limit wait")
		}
		return t.Execute(ctx, args)
	})
}

// Chain applies middlewares outermost-first.
func Chain(t tools.Tool, wrappers ...interface{ Wrap(tools.Tool) tools.Tool }) tools.Tool {
	for i := len(wrappers) - 1; i >= 0; i-- {
		t = wrappers[i].Wrap(t)
	}
	return t
}
