package singleflight

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Exclusive(t *testing.T) {
	g := NewLocal()
	ctx := context.Background()

	ok, err := g.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = g.TryAcquire(ctx)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx))
	ok, _ = g.TryAcquire(ctx)
	assert.True(t, ok)
}

func TestLocal_ConcurrentAcquireHasSingleWinner(t *testing.T) {
	g := NewLocal()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := g.TryAcquire(context.Background()); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	g := NewLocal()
	ctx := context.Background()
	require.NoError(t, Acquire(ctx, g))

	done := make(chan error, 1)
	go func() { done <- acquire(ctx, g, time.Millisecond, 5*time.Millisecond) }()

	select {
	case err := <-done:
		t.Fatalf("acquired a held guard: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, g.Release(ctx))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("guard not acquired after release")
	}
	ok, _ := g.TryAcquire(ctx)
	assert.False(t, ok)
}

func TestAcquire_StopsWithContext(t *testing.T) {
	g := NewLocal()
	ok, _ := g.TryAcquire(context.Background())
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := acquire(ctx, g, time.Millisecond, 2*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
