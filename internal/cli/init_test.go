package cli

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestGracefulShutdownRunsCleanupThenCancels(t *testing.T) {
	logger := SetupLogger()

	cleanups := make(chan context.Context, 1)
	ctx, done := GracefulShutdown(logger, 5*time.Second, func(shutdownCtx context.Context) {
		cleanups <- shutdownCtx
	})

	if ctx.Err() != nil {
		t.Fatal("context cancelled before any signal")
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send signal: %v", err)
	}

	select {
	case shutdownCtx := <-cleanups:
		// Cleanup runs before cancellation and gets a bounded context.
		if _, ok := shutdownCtx.Deadline(); !ok {
			t.Error("cleanup context has no deadline")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup never ran")
	}

	waited := make(chan struct{})
	go func() {
		WaitForShutdown(ctx, done)
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForShutdown did not return")
	}
	if ctx.Err() == nil {
		t.Error("context still live after shutdown completed")
	}
}
