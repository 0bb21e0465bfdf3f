// Retrying provider wrapper.
//
// Information Hiding:
// - Retry strategy and backoff algorithm hidden behind the Provider
//   interface; callers see one call, not the attempts.

package llm

import (
	"context"
	"math/rand"
	"time"
)

// Retrying wraps a Provider and retries failed generation calls with
// jittered exponential backoff. Title generation uses it to smooth
// over transient upstream errors.
type Retrying struct {
	inner       Provider
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// WithRetry wraps the provider with bounded retries. maxAttempts
// values below one are treated as a single attempt.
func WithRetry(inner Provider, maxAttempts int) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrying{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   time.Second,
		maxDelay:    4 * time.Second,
	}
}

// Name returns the wrapped provider's name.
func (r *Retrying) Name() string {
	return r.inner.Name()
}

// Model returns the wrapped provider's model.
func (r *Retrying) Model() string {
	return r.inner.Model()
}

// Generate retries the wrapped Generate call.
func (r *Retrying) Generate(ctx context.Context, messages []Message, systemInstruction string) (Response, error) {
	return r.do(ctx, func() (Response, error) {
		return r.inner.Generate(ctx, messages, systemInstruction)
	})
}

// GenerateWithTools retries the wrapped GenerateWithTools call.
func (r *Retrying) GenerateWithTools(ctx context.Context, messages []Message, systemInstruction string, tools []ToolDefinition) (Response, error) {
	return r.do(ctx, func() (Response, error) {
		return r.inner.GenerateWithTools(ctx, messages, systemInstruction, tools)
	})
}

func (r *Retrying) do(ctx context.Context, call func() (Response, error)) (Response, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}

		response, err := call()
		if err == nil {
			return response, nil
		}
		lastErr = err
	}

	return Response{}, lastErr
}

// backoff returns a random delay between baseDelay and the
// exponentially grown ceiling, capped at maxDelay.
func (r *Retrying) backoff(attempt int) time.Duration {
	ceiling := r.baseDelay * time.Duration(1<<(attempt-1))
	if ceiling > r.maxDelay {
		ceiling = r.maxDelay
	}
	if ceiling <= r.baseDelay {
		return r.baseDelay
	}
	return r.baseDelay + time.Duration(rand.Int63n(int64(ceiling-r.baseDelay)))
}

// Verify Retrying implements Provider
var _ Provider = (*Retrying)(nil)
