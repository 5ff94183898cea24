package pending

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistryEnqueueOverwritesAndDequeueIsIdempotent(t *testing.T) {
	reg := NewRegistry()

	first := New[any]()
	second := New[any]()
	reg.Enqueue("k", first)
	reg.Enqueue("k", second)
	if reg.Len() != 1 {
		t.Fatalf("expected single entry, got %d", reg.Len())
	}

	second.Resolve("v")
	outcomes := reg.AllSettled(context.Background())
	if outcomes["k"].Value != "v" {
		t.Fatalf("expected overwriting future to win, got %+v", outcomes["k"])
	}

	reg.Dequeue("k")
	reg.Dequeue("k")
	reg.Dequeue("missing")
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
}

func TestAllSettledWaitsForPendingEntries(t *testing.T) {
	reg := NewRegistry()
	op := New[any]()
	reg.Enqueue("slow", op)

	go func() {
		time.Sleep(20 * time.Millisecond)
		op.Resolve("done")
	}()

	outcomes := reg.AllSettled(context.Background())
	if !op.Settled() {
		t.Fatalf("expected AllSettled to return only after the future settled")
	}
	if outcomes["slow"].Value != "done" || outcomes["slow"].Err != nil {
		t.Fatalf("unexpected outcome: %+v", outcomes["slow"])
	}
}

func TestAllSettledReportsRejections(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("read failed")
	reg.Enqueue("bad", Rejected[any](boom))
	reg.Enqueue("good", Resolved[any]("ok"))

	outcomes := reg.AllSettled(context.Background())
	if !errors.Is(outcomes["bad"].Err, boom) {
		t.Fatalf("expected rejection outcome, got %+v", outcomes["bad"])
	}
	if outcomes["good"].Value != "ok" {
		t.Fatalf("expected fulfilled outcome, got %+v", outcomes["good"])
	}
}

func TestAllSettledSnapshotsEntries(t *testing.T) {
	reg := NewRegistry()
	reg.Enqueue("before", Resolved[any](1))

	outcomes := reg.AllSettled(context.Background())
	reg.Enqueue("after", Resolved[any](2))

	if _, ok := outcomes["after"]; ok {
		t.Fatalf("expected entries enqueued after the snapshot to be excluded")
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(outcomes))
	}
}

func TestAllSettledHonoursContextCancellation(t *testing.T) {
	reg := NewRegistry()
	reg.Enqueue("stuck", New[any]())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	outcomes := reg.AllSettled(ctx)
	if !errors.Is(outcomes["stuck"].Err, context.DeadlineExceeded) {
		t.Fatalf("expected context error for stuck entry, got %+v", outcomes["stuck"])
	}
}

func TestRegistryKeysAndReset(t *testing.T) {
	reg := NewRegistry()
	reg.Enqueue("b", New[any]())
	reg.Enqueue("a", New[any]())

	keys := reg.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("expected sorted keys, got %v", keys)
	}

	reg.Reset()
	if reg.Len() != 0 {
		t.Fatalf("expected reset registry to be empty, got %d", reg.Len())
	}
}
