package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestImportLimiterAcquireRelease(t *testing.T) {
	l := newImportLimiter(2, time.Second)
	ctx := context.Background()

	if err := l.acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if got := l.activeCount(); got != 2 {
		t.Errorf("activeCount = %d, want 2", got)
	}

	l.release()
	l.release()
	if got := l.activeCount(); got != 0 {
		t.Errorf("activeCount after release = %d, want 0", got)
	}
}

func TestImportLimiterTimeout(t *testing.T) {
	l := newImportLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := l.acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer l.release()

	err := l.acquire(ctx)
	if !errors.Is(err, ErrTooManyImports) {
		t.Fatalf("error = %v, want ErrTooManyImports", err)
	}
}

func TestImportLimiterContextCancel(t *testing.T) {
	l := newImportLimiter(1, time.Minute)

	if err := l.acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer l.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestImportLimiterWaitForDrain(t *testing.T) {
	l := newImportLimiter(1, time.Second)

	if err := l.acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		l.release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.waitForDrain(ctx); err != nil {
		t.Fatalf("waitForDrain: %v", err)
	}
}
