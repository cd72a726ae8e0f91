package render

import (
	"context"
	"fmt"
	"sync"

	"mapserve/internal/pkg/logger"
)

// Runner executes one render pipeline for a key.
type Runner interface {
	Run(ctx context.Context, key Key) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, key Key) error

func (f RunnerFunc) Run(ctx context.Context, key Key) error { return f(ctx, key) }

// inflight is one in-progress render. The owner stores the result in err
// before closing done; waiters read err only after done is closed.
type inflight struct {
	done chan struct{}
	err  error
}

// Coalescer collapses concurrent renders of an identical Key into a single
// pipeline execution and fans the result out to every waiter. It is shared
// by injection, not as a package singleton, so its lifecycle stays explicit
// and tests can build isolated instances.
type Coalescer struct {
	mu       sync.Mutex
	inflight map[Key]*inflight
	runner   Runner
	log      *logger.Logger
}

// NewCoalescer creates a coalescer around the given pipeline runner.
func NewCoalescer(runner Runner, log *logger.Logger) *Coalescer {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Coalescer{
		inflight: make(map[Key]*inflight),
		runner:   runner,
		log:      log.WithComponent("coalescer"),
	}
}

// Render runs the pipeline for key, or joins an in-progress execution of the
// same key and returns its result. Waiters honor ctx cancellation without
// affecting the owner; the owner's entry is removed on every exit path,
// including a panicking runner, so a key can never wedge.
func (c *Coalescer) Render(ctx context.Context, key Key) (err error) {
	c.mu.Lock()
	if fl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		c.log.Debug("joining in-flight render", "dest", key.Dest)
		select {
		case <-fl.done:
			return fl.err
		case <-ctx.Done():
			return External(ctx.Err())
		}
	}

	fl := &inflight{done: make(chan struct{})}
	c.inflight[key] = fl
	c.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			fl.err = &Error{Kind: FailureExternal, Reason: fmt.Sprintf("render panicked: %v", rec)}
			err = fl.err
			c.log.Error("render panicked", "dest", key.Dest, "panic", rec)
		}
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		close(fl.done)
	}()

	fl.err = normalizeError(c.runner.Run(ctx, key))
	return fl.err
}

// Inflight reports the number of renders currently executing.
func (c *Coalescer) Inflight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}
