package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited wraps a TextGenerator with a requests-per-minute budget.
// Free tiers of both providers allow about 15 requests per minute.
type RateLimited struct {
	next    TextGenerator
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute calls per minute with a burst of one.
// A non-positive perMinute disables limiting.
func NewRateLimited(next TextGenerator, perMinute int) *RateLimited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

// GenerateContent waits for a token, then delegates. Waiting honours ctx.
func (r *RateLimited) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ContentResponse{}, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.GenerateContent(ctx, prompt)
}

// Share wraps another generator behind the same budget, so providers sharing
// one API key also share one quota.
func (r *RateLimited) Share(next TextGenerator) *RateLimited {
	return &RateLimited{next: next, limiter: r.limiter}
}

// Close closes the wrapped generator when it holds resources.
func (r *RateLimited) Close() error {
	if c, ok := r.next.(Closer); ok {
		return c.Close()
	}
	return nil
}
