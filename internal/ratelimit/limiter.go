// Package ratelimit counts calls per coarse time bucket against a ceiling and
// paces sequential calls to a minimum interval.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"autodraft/internal/domain"
)

const (
	bucketLayout = "2006010215"
	bucketTTL    = time.Hour
)

// Store persists RateWindowState. TakeIfBelow must read and increment
// atomically: it increments the bucket and reports true only when the count
// before the increment was below ceiling.
type Store interface {
	Count(ctx context.Context, key string) (int, error)
	TakeIfBelow(ctx context.Context, key string, ceiling int, ttl time.Duration) (bool, error)
}

// Limiter enforces an hourly call ceiling for one scope (e.g. "generation").
type Limiter struct {
	store   Store
	scope   string
	ceiling int
	now     func() time.Time
}

type Option func(*Limiter)

// WithClock overrides the time source used to derive bucket keys.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter. A ceiling <= 0 disables limiting.
func New(store Store, scope string, ceiling int, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: store must not be nil")
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, errors.New("ratelimit: scope must not be empty")
	}
	l := &Limiter{store: store, scope: scope, ceiling: ceiling, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// BucketKey returns the hour bucket key for t, e.g. "generation#2026101815".
func (l *Limiter) BucketKey(t time.Time) string {
	return l.scope + "#" + t.UTC().Format(bucketLayout)
}

// Take increments bucketKey when it is below the ceiling.
func (l *Limiter) Take(ctx context.Context, bucketKey string) (bool, error) {
	if l.ceiling <= 0 {
		return true, nil
	}
	ok, err := l.store.TakeIfBelow(ctx, bucketKey, l.ceiling, bucketTTL)
	if err != nil {
		return false, fmt.Errorf("ratelimit: take %q: %w", bucketKey, err)
	}
	return ok, nil
}

// Check takes from the current hour bucket and returns a RATE_LIMITED error
// once the ceiling has been reached.
func (l *Limiter) Check(ctx context.Context) error {
	key := l.BucketKey(l.now())
	ok, err := l.Take(ctx, key)
	if err != nil {
		return domain.NewError(domain.ErrorInternal, "rate_store_error", err)
	}
	if !ok {
		return domain.RateLimitError("hourly_limit_exceeded",
			fmt.Errorf("rate limit of %d calls per hour reached, try again later", l.ceiling))
	}
	return nil
}

// Current returns the count recorded in the current hour bucket.
func (l *Limiter) Current(ctx context.Context) (domain.RateWindowState, error) {
	now := l.now()
	key := l.BucketKey(now)
	n, err := l.store.Count(ctx, key)
	if err != nil {
		return domain.RateWindowState{}, fmt.Errorf("ratelimit: count %q: %w", key, err)
	}
	return domain.RateWindowState{
		BucketKey: key,
		Count:     n,
		ExpiresAt: now.UTC().Truncate(time.Hour).Add(bucketTTL),
	}, nil
}

// Ceiling returns the configured per-hour ceiling.
func (l *Limiter) Ceiling() int {
	return l.ceiling
}
