package shutdown

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"mapserve/internal/pkg/logger"
)

func newTestLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{
		Level:  "debug",
		Format: "json",
		Output: &buf,
	})
}

func TestShutdownRunsHandlers(t *testing.T) {
	m := NewManager(newTestLogger(), 5*time.Second)

	var ran atomic.Int32
	m.Register("first", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	m.Register("second", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	m.Shutdown()

	if got := ran.Load(); got != 2 {
		t.Errorf("expected 2 handlers to run, got %d", got)
	}

	select {
	case <-m.Done():
	default:
		t.Error("expected Done channel to be closed after shutdown")
	}
}

func TestShutdownHandlerError(t *testing.T) {
	m := NewManager(newTestLogger(), 5*time.Second)

	var ok atomic.Bool
	m.Register("failing", func(ctx context.Context) error {
		return fmt.Errorf("cleanup failed")
	})
	m.Register("succeeding", func(ctx context.Context) error {
		ok.Store(true)
		return nil
	})

	// A failing handler must not prevent the others from running.
	m.Shutdown()

	if !ok.Load() {
		t.Error("expected succeeding handler to run despite failure elsewhere")
	}
}

func TestShutdownTimeout(t *testing.T) {
	m := NewManager(newTestLogger(), 100*time.Millisecond)

	release := make(chan struct{})
	m.Register("stuck", func(ctx context.Context) error {
		<-release
		return nil
	})

	start := time.Now()
	m.Shutdown()
	close(release)

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("shutdown did not honor timeout, took %s", elapsed)
	}
}

func TestRegisterSimple(t *testing.T) {
	m := NewManager(newTestLogger(), time.Second)

	var ran atomic.Bool
	m.RegisterSimple("simple", func() { ran.Store(true) })
	m.Shutdown()

	if !ran.Load() {
		t.Error("expected simple handler to run")
	}
}

func TestContextCanceledOnShutdown(t *testing.T) {
	m := NewManager(newTestLogger(), time.Second)
	ctx := m.Context()

	m.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("expected context to be canceled after shutdown")
	}
}
