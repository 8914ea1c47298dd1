package llm

import (
	"context"
	"sync"
	"time"
)

// refillPoll is how often a blocked request re-checks the bucket.
const refillPoll = 100 * time.Millisecond

// RateLimitedProvider paces completion calls with a token bucket so that
// answer generation stays under the vendor's requests-per-minute quota.
// Requests beyond the budget block until a slot frees or their context
// is cancelled; nothing is ever dropped.
type RateLimitedProvider struct {
	inner Provider
	rpm   int

	mu         sync.Mutex
	budget     int
	lastRefill time.Time
}

// NewRateLimitedProvider wraps inner, allowing at most rpm completions
// per minute. The bucket starts full.
func NewRateLimitedProvider(inner Provider, rpm int) Provider {
	return &RateLimitedProvider{
		inner:      inner,
		rpm:        rpm,
		budget:     rpm,
		lastRefill: time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.inner.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.reserve(ctx); err != nil {
		return nil, err
	}
	return r.inner.Complete(ctx, req)
}

// reserve takes one slot from the bucket, blocking until one is
// available or the context ends.
func (r *RateLimitedProvider) reserve(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()

		refill := int(now.Sub(r.lastRefill).Seconds() * float64(r.rpm) / 60.0)
		if refill > 0 {
			r.budget += refill
			if r.budget > r.rpm {
				r.budget = r.rpm
			}
			r.lastRefill = now
		}

		if r.budget > 0 {
			r.budget--
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(refillPoll):
		}
	}
}
