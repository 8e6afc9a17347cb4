package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateBudget paces GitHub API calls against the rate limit the API reports.
//
// It starts optimistic and is corrected by Observe from the
// X-RateLimit-Remaining, X-RateLimit-Reset and Retry-After headers. When the
// budget is exhausted Acquire blocks until the reset time (or ctx is done).
type RateBudget struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	cooldown  time.Time
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewRateBudget(initial int) *RateBudget {
	return &RateBudget{
		remaining: initial,
		reset:     time.Now().Add(time.Hour),
		now:       time.Now,
		sleep:     sleepContext,
	}
}

func (b *RateBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Acquire reserves one request.
func (b *RateBudget) Acquire(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("Acquire: nil context")
	}
	if b == nil {
		return nil
	}
	for {
		b.mu.Lock()
		now := b.now()
		var wait time.Duration
		switch {
		case now.Before(b.cooldown):
			wait = b.cooldown.Sub(now)
		case b.remaining > 0:
			b.remaining--
			b.mu.Unlock()
			return nil
		case !now.Before(b.reset):
			// The window rolled over; let one request through to learn the new limit.
			b.remaining = 0
			b.reset = now.Add(time.Minute)
			b.mu.Unlock()
			return nil
		default:
			wait = b.reset.Sub(now)
		}
		b.mu.Unlock()

		if err := b.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Observe updates the budget from response headers.
func (b *RateBudget) Observe(resp *http.Response) {
	if b == nil || resp == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			if until := b.now().Add(time.Duration(seconds) * time.Second); until.After(b.cooldown) {
				b.cooldown = until
			}
		}
	}
	if v := resp.Header.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			b.remaining = n
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil && unix > 0 {
			b.reset = time.Unix(unix, 0)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
