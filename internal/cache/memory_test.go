package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k", map[string]string{"a": "b"}, time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	var got map[string]string
	ok, err := store.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got["a"] != "b" {
		t.Errorf("got %v", got)
	}
}

func TestMemoryStore_MissingKey(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	var got string
	ok, err := store.Get(context.Background(), "absent", &got)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	store.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	})

	if err := store.Set(ctx, "k", "v", time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	var got string
	if ok, _ := store.Get(ctx, "k", &got); !ok {
		t.Fatal("expected hit before expiry")
	}

	mu.Lock()
	current = current.Add(2 * time.Hour)
	mu.Unlock()

	if ok, _ := store.Get(ctx, "k", &got); ok {
		t.Error("expected miss after expiry")
	}
}

func TestMemoryStore_ConcurrentDistinctKeys(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			if err := store.Set(ctx, key, n, time.Minute); err != nil {
				t.Errorf("Set %s: %v", key, err)
				return
			}
			var got int
			ok, err := store.Get(ctx, key, &got)
			if err != nil || !ok || got != n {
				t.Errorf("Get %s = (%d, %v, %v)", key, got, ok, err)
			}
		}(i)
	}
	wg.Wait()
}
