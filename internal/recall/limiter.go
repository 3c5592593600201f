// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recall

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter caps concurrent vector-store calls across every engine that
// shares it. A slot stays taken until the store call returns, even when
// the request that made it has already timed out. It is the only state
// shared between recall requests.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter allows up to n concurrent calls. n <= 0 means unlimited.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		return &Limiter{}
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil || l.sem == nil {
		return ctx.Err()
	}
	return l.sem.Acquire(ctx, 1)
}

// Release returns a slot taken by Acquire.
func (l *Limiter) Release() {
	if l == nil || l.sem == nil {
		return
	}
	l.sem.Release(1)
}
