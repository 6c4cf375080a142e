package middleware

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwiz/internal/tools"
	"finwiz/pkg/errors"
)

func flaky(failures int32) (tools.Tool, *int32) {
	var calls int32
	tool := tools.New("flaky", "", func(ctx context.Context, args map[string]interface{}) (string, error) {
		n := atomic.AddInt32(&calls, 1)
		if n <= failures {
			return "", errors.Wrap(errors.ErrTool, "transient")
		}
		return "ok", nil
	})
	return tool, &calls
}

func TestRetryRecoversTransientFailure(t *testing.T) {
	tool, calls := flaky(2)
	wrapped := Retry{Attempts: 3, Backoff: time.Millisecond}.Wrap(tool)

	out, err := wrapped.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestRetryExhausted(t *testing.T) {
	tool, calls := flaky(10)
	wrapped := Retry{Attempts: 3, Backoff: time.Millisecond}.Wrap(tool)

	_, err := wrapped.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrTool)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	tool, calls := flaky(10)
	wrapped := Retry{Attempts: 5, Backoff: 50 * time.Millisecond}.Wrap(tool)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := wrapped.Execute(ctx, nil)
	assert.Error(t, err)
	assert.Less(t, atomic.LoadInt32(calls), int32(5))
}

func TestTimeoutMapsDeadline(t *testing.T) {
	slow := tools.New("slow", "", func(ctx context.Context, args map[string]interface{}) (string, error) {
		select {
		case <-time.After(time.Second):
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	wrapped := Timeout{Limit: 20 * time.Millisecond}.Wrap(slow)

	_, err := wrapped.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrTimeout)
}

func TestRateLimitDelaysSecondCall(t *testing.T) {
	tool := tools.New("fast", "", func(ctx context.Context, args map[string]interface{}) (string, error) {
		return "ok", nil
	})
	wrapped := RateLimit{RPS: 20, Burst: 1}.Wrap(tool)

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := wrapped.Execute(context.Background(), nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestChainOrder(t *testing.T) {
	tool, calls := flaky(1)
	wrapped := Chain(tool,
		Retry{Attempts: 2, Backoff: time.Millisecond},
		Timeout{Limit: time.Second},
	)

	out, err := wrapped.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}
