// Package singleflight serializes batch jobs so at most one runs at a time.
package singleflight

import (
	"context"
	"time"

	"go.uber.org/atomic"
)

// Guard is held by exactly one job at a time.
type Guard interface {
	// TryAcquire returns false without blocking when the guard is held.
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Poll intervals used by Acquire while the guard is held elsewhere.
const (
	MinRetryInterval = 100 * time.Millisecond
	MaxRetryInterval = 5 * time.Second
)

// Acquire blocks until g is taken or ctx ends. The retry interval doubles
// from MinRetryInterval up to MaxRetryInterval.
func Acquire(ctx context.Context, g Guard) error {
	return acquire(ctx, g, MinRetryInterval, MaxRetryInterval)
}

func acquire(ctx context.Context, g Guard, wait, max time.Duration) error {
	for {
		ok, err := g.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if wait *= 2; wait > max {
			wait = max
		}
	}
}

// Local is an in-process guard.
type Local struct {
	held atomic.Bool
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) TryAcquire(context.Context) (bool, error) {
	return l.held.CompareAndSwap(false, true), nil
}

func (l *Local) Release(context.Context) error {
	l.held.Store(false)
	return nil
}
