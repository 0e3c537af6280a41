package server

import (
	"context"
	"testing"
	"time"
)

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := newWorkerPool(2)

	release1, err := pool.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	release2, err := pool.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.acquire(ctx); err == nil {
		t.Fatalf("expected third acquire to block until a slot frees, got no error")
	}

	release1()
	release3, err := pool.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release2()
	release3()
}

func TestWorkerPoolZeroConcurrencyDefaultsToOne(t *testing.T) {
	pool := newWorkerPool(0)
	if cap(pool.slots) != 1 {
		t.Fatalf("cap = %d, want 1", cap(pool.slots))
	}
}
