package render

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(dest string) Key {
	return Key{Source: "world.zip", Dest: dest, Template: "map.conf", Dimension: Overworld}
}

func TestCoalesceConcurrentRequests(t *testing.T) {
	var executions atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	c := NewCoalescer(RunnerFunc(func(ctx context.Context, key Key) error {
		executions.Add(1)
		close(entered)
		<-release
		return &Error{Kind: FailureRendering}
	}), nil)

	const waiters = 8
	results := make([]error, waiters+1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = c.Render(context.Background(), testKey("artifacts/world"))
	}()

	// Join only after the owner is inside the runner so every request
	// coalesces onto the same execution.
	<-entered
	for i := 1; i <= waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Render(context.Background(), testKey("artifacts/world"))
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), executions.Load(), "exactly one pipeline execution")
	for i, err := range results {
		require.Error(t, err, "result %d", i)
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, FailureRendering, kind)
		// Identical value, not just an equivalent one.
		assert.Same(t, results[0], err)
	}
	assert.Zero(t, c.Inflight())
}

func TestCoalesceDistinctKeysRunConcurrently(t *testing.T) {
	var executions atomic.Int32
	c := NewCoalescer(RunnerFunc(func(ctx context.Context, key Key) error {
		executions.Add(1)
		return nil
	}), nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Render(context.Background(), testKey(fmt.Sprintf("artifacts/world-%d", i)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(4), executions.Load())
}

func TestSequentialRendersRunAgain(t *testing.T) {
	var executions atomic.Int32
	c := NewCoalescer(RunnerFunc(func(ctx context.Context, key Key) error {
		executions.Add(1)
		return nil
	}), nil)

	require.NoError(t, c.Render(context.Background(), testKey("artifacts/world")))
	require.NoError(t, c.Render(context.Background(), testKey("artifacts/world")))

	// No in-flight entry survives completion, so the second call owns a
	// fresh execution.
	assert.Equal(t, int32(2), executions.Load())
}

func TestWaiterContextCancellation(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	c := NewCoalescer(RunnerFunc(func(ctx context.Context, key Key) error {
		close(entered)
		<-release
		return nil
	}), nil)

	ownerDone := make(chan error, 1)
	go func() {
		ownerDone <- c.Render(context.Background(), testKey("artifacts/world"))
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Render(ctx, testKey("artifacts/world"))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, FailureExternal, kind)
	assert.Contains(t, err.Error(), "context canceled")

	// The owner is unaffected by the abandoned waiter.
	close(release)
	require.NoError(t, <-ownerDone)
}

func TestPanickingRunnerDoesNotWedgeKey(t *testing.T) {
	var calls atomic.Int32
	c := NewCoalescer(RunnerFunc(func(ctx context.Context, key Key) error {
		if calls.Add(1) == 1 {
			panic("renderer exploded")
		}
		return nil
	}), nil)

	err := c.Render(context.Background(), testKey("artifacts/world"))
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, FailureExternal, kind)
	assert.Contains(t, err.Error(), "renderer exploded")

	// The entry was removed despite the panic; the key is usable again.
	require.NoError(t, c.Render(context.Background(), testKey("artifacts/world")))
	assert.Zero(t, c.Inflight())
}

func TestNormalizeError(t *testing.T) {
	assert.NoError(t, normalizeError(nil))

	domain := &Error{Kind: FailureExtraction}
	assert.Same(t, domain, normalizeError(domain))

	plain := fmt.Errorf("disk full")
	got := normalizeError(plain)
	kind, ok := KindOf(got)
	require.True(t, ok)
	assert.Equal(t, FailureExternal, kind)
	assert.Equal(t, "disk full", got.Error())
}
