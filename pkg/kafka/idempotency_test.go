package kafka

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryIdempotencyStore_AddAndContains(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)
	ctx := context.Background()

	if err := store.Add(ctx, "evt-1"); err != nil {
		t.Fatalf("Add() returned error: %v", err)
	}

	got, err := store.Contains(ctx, "evt-1")
	if err != nil {
		t.Fatalf("Contains() returned error: %v", err)
	}
	if !got {
		t.Error("Contains(evt-1) = false, want true after Add")
	}
}

func TestMemoryIdempotencyStore_ContainsUnknown(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)

	got, err := store.Contains(context.Background(), "unknown-id")
	if err != nil {
		t.Fatalf("Contains() returned error: %v", err)
	}
	if got {
		t.Error("Contains(unknown-id) = true, want false for unknown ID")
	}
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewMemoryIdempotencyStore(10 * time.Millisecond)
	ctx := context.Background()

	if err := store.Add(ctx, "evt-expire"); err != nil {
		t.Fatalf("Add() returned error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	got, err := store.Contains(ctx, "evt-expire")
	if err != nil {
		t.Fatalf("Contains() returned error: %v", err)
	}
	if got {
		t.Error("Contains(evt-expire) = true, want false after TTL")
	}
}

func TestMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := "evt-" + string(rune('a'+n%26))
			_ = store.Add(ctx, id)
			_, _ = store.Contains(ctx, id)
		}(i)
	}
	wg.Wait()
}
