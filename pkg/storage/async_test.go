package storage

import (
	"testing"
	"time"
)

func TestAsyncGetResolvesWithLookup(t *testing.T) {
	store := NewMemory()
	_ = store.Set("k", []byte(`"z"`))

	async := NewAsync(store, AsyncWithDelay(5*time.Millisecond))
	fut := async.Get("k")
	if fut.Settled() {
		t.Fatalf("expected delayed future to be pending right after issue")
	}

	lookup, err := fut.Result()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !lookup.Found || string(lookup.Data) != `"z"` {
		t.Fatalf("unexpected lookup: %+v", lookup)
	}
}

func TestAsyncGetMissingKey(t *testing.T) {
	async := NewAsync(NewMemory())
	lookup, err := async.Get("missing").Result()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lookup.Found {
		t.Fatalf("expected missing key, got %+v", lookup)
	}
}

func TestAsyncWriteOperations(t *testing.T) {
	store := NewMemory()
	async := NewAsync(store)

	if _, err := async.Set("k", []byte("v")).Result(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if data, ok := store.Get("k"); !ok || string(data) != "v" {
		t.Fatalf("expected write to reach the underlying store, got %q/%v", data, ok)
	}

	if _, err := async.Remove("k").Result(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}

	_ = store.Set("a", nil)
	_ = store.Set("b", nil)
	keys, err := async.Keys().Result()
	if err != nil || len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v/%v", keys, err)
	}
	size, err := async.Len().Result()
	if err != nil || size != 2 {
		t.Fatalf("expected size 2, got %d/%v", size, err)
	}

	if _, err := async.Clear().Result(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected cleared store, got %d", store.Len())
	}
}

func TestAsyncNilStoreRejects(t *testing.T) {
	async := NewAsync(nil)
	if _, err := async.Get("k").Result(); err == nil {
		t.Fatalf("expected rejection for nil store")
	}
}
