package ai

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Guard bounds outbound provider calls. A nil Guard, or one built with zero
// limits, runs calls unbounded and without a deadline.
type Guard struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

func NewGuard(maxConcurrent int, timeout time.Duration) *Guard {
	g := &Guard{timeout: timeout}
	if maxConcurrent > 0 {
		g.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return g
}

// Do runs fn once a slot is free. Waiting for a slot honours ctx; the timeout
// only applies to fn itself.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer g.sem.Release(1)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return fn(ctx)
}

type guardedProvider struct {
	guard *Guard
	next  Provider
}

// Guarded wraps p so every Chat call goes through g.
func Guarded(p Provider, g *Guard) Provider {
	if g == nil {
		return p
	}
	return &guardedProvider{guard: g, next: p}
}

func (p *guardedProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	var reply string
	err := p.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		reply, err = p.next.Chat(ctx, messages)
		return err
	})
	return reply, err
}
