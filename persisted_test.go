package prop

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-property/pkg/activity"
	"github.com/goliatone/go-property/pkg/pending"
	"github.com/goliatone/go-property/pkg/storage"
)

type countingStore struct {
	*storage.Memory
	setCalls    int
	removeCalls int
}

func newCountingStore() *countingStore {
	return &countingStore{Memory: storage.NewMemory()}
}

func (s *countingStore) Set(key string, data []byte) error {
	s.setCalls++
	return s.Memory.Set(key, data)
}

func (s *countingStore) Remove(key string) error {
	s.removeCalls++
	return s.Memory.Remove(key)
}

type failingAsyncStore struct {
	err error
}

func (s failingAsyncStore) Get(string) *pending.Future[storage.Lookup] {
	return pending.Rejected[storage.Lookup](s.err)
}

func (s failingAsyncStore) Set(string, []byte) *pending.Future[struct{}] {
	return pending.Rejected[struct{}](s.err)
}

func (s failingAsyncStore) Remove(string) *pending.Future[struct{}] {
	return pending.Rejected[struct{}](s.err)
}

func (s failingAsyncStore) Clear() *pending.Future[struct{}] {
	return pending.Rejected[struct{}](s.err)
}

func (s failingAsyncStore) Keys() *pending.Future[[]string] {
	return pending.Rejected[[]string](s.err)
}

func (s failingAsyncStore) Len() *pending.Future[int] {
	return pending.Rejected[int](s.err)
}

func TestPersistedSetWritesThrough(t *testing.T) {
	store := storage.NewMemory()
	p, err := NewPersisted[string](store, "k")
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	p.Set("x")

	data, found := store.Get("k")
	if !found {
		t.Fatalf("expected key to be stored")
	}
	if string(data) != `"x"` {
		t.Fatalf("expected JSON encoded value, got %s", data)
	}
}

func TestPersistedRestoresWithoutRewrite(t *testing.T) {
	store := newCountingStore()
	if err := store.Memory.Set("k", []byte(`"y"`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	p, err := NewPersisted[string](store, "k")
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	got, ok := p.Get()
	if !ok || got != "y" {
		t.Fatalf("expected restored value y, got %q/%v", got, ok)
	}
	if store.setCalls != 0 {
		t.Fatalf("expected restore to skip write-through, got %d writes", store.setCalls)
	}
}

func TestPersistedConstructorErrors(t *testing.T) {
	if _, err := NewPersisted[string](nil, "k"); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	} else if !strings.Contains(err.Error(), `"k"`) {
		t.Fatalf("expected error to name the key, got %v", err)
	}

	if _, err := NewPersistedAsync[string](nil, "k"); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	}

	if _, err := NewPersisted[string](storage.NewMemory(), ""); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}

	if _, err := NewPersistedAsync[string](storage.NewAsync(storage.NewMemory()), ""); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
}

func TestPersistedClearRemovesStoredValue(t *testing.T) {
	store := storage.NewMemory()
	if err := store.Set("k", []byte(`"y"`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	p, err := NewPersisted[string](store, "k")
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	p.Clear()

	if p.Exists() {
		t.Fatalf("expected property unset after clear")
	}
	if _, found := store.Get("k"); found {
		t.Fatalf("expected stored value removed")
	}
}

func TestPersistedNilValueRemovesStoredValue(t *testing.T) {
	store := storage.NewMemory()
	p, err := NewPersisted[*int](store, "k")
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	value := 7
	p.Set(&value)
	if _, found := store.Get("k"); !found {
		t.Fatalf("expected pointer value to be stored")
	}

	p.Set(nil)
	if _, found := store.Get("k"); found {
		t.Fatalf("expected nil set to remove stored value")
	}
}

func TestPersistedDecodeFailureLeavesUnset(t *testing.T) {
	store := storage.NewMemory()
	if err := store.Set("k", []byte(`{invalid`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var events []PersistLogEvent
	p, err := NewPersisted[map[string]any](store, "k",
		WithPersistLogger[map[string]any](PersistLoggerFunc(func(event PersistLogEvent) {
			events = append(events, event)
		})),
	)
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	if p.Exists() {
		t.Fatalf("expected corrupt payload to leave property unset")
	}

	var decodeLogged bool
	for _, event := range events {
		if event.Op == "decode" && event.Err != nil {
			decodeLogged = true
		}
	}
	if !decodeLogged {
		t.Fatalf("expected decode failure to be logged, got %+v", events)
	}
}

func TestPersistedDefaultsSeedWhenStorageEmpty(t *testing.T) {
	store := storage.NewMemory()
	p, err := NewPersisted[map[string]any](store, "settings",
		WithDefaultValue[map[string]any](map[string]any{"a": 1, "b": 2}),
	)
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	got, ok := p.Get()
	if !ok || got["a"] != 1 || got["b"] != 2 {
		t.Fatalf("expected defaults seeded, got %v/%v", got, ok)
	}
	if store.Len() != 0 {
		t.Fatalf("expected seeding to stay in memory, store has %d entries", store.Len())
	}
}

func TestPersistedDefaultsFillRestoredSnapshot(t *testing.T) {
	store := storage.NewMemory()
	if err := store.Set("settings", []byte(`{"b": 20}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	p, err := NewPersisted[map[string]any](store, "settings",
		WithDefaultValue[map[string]any](map[string]any{"a": 1, "b": 2}),
	)
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	got, _ := p.Get()
	if got["b"] != float64(20) {
		t.Fatalf("expected stored value to win, got %v", got["b"])
	}
	if got["a"] != 1 {
		t.Fatalf("expected defaults to fill missing fields, got %v", got["a"])
	}
}

func TestPersistedAsyncRestoreSettlesThroughRegistry(t *testing.T) {
	store := storage.NewMemory()
	if err := store.Set("k", []byte(`"z"`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	registry := pending.NewRegistry()
	async := storage.NewAsync(store, storage.AsyncWithDelay(5*time.Millisecond))

	p, err := NewPersistedAsync[string](async, "k", WithRegistry[string](registry))
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}
	if p.Exists() {
		t.Fatalf("expected restore to still be in flight")
	}

	outcomes := registry.AllSettled(context.Background())
	outcome, ok := outcomes["k"]
	if !ok {
		t.Fatalf("expected outcome for k, got %v", outcomes)
	}
	if outcome.Err != nil {
		t.Fatalf("expected fulfilled restore, got %v", outcome.Err)
	}
	if outcome.Value != "z" {
		t.Fatalf("expected restored value in outcome, got %v", outcome.Value)
	}

	got, present := p.Get()
	if !present || got != "z" {
		t.Fatalf("expected restored value z, got %q/%v", got, present)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected registry drained, got %d entries", registry.Len())
	}
}

func TestPersistedAsyncRestoreFailureStaysUnset(t *testing.T) {
	boom := errors.New("backend offline")
	registry := pending.NewRegistry()

	p, err := NewPersistedAsync[string](failingAsyncStore{err: boom}, "k",
		WithRegistry[string](registry),
	)
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	outcomes := registry.AllSettled(context.Background())
	if outcomes["k"].Err == nil || !errors.Is(outcomes["k"].Err, boom) {
		t.Fatalf("expected rejection outcome, got %+v", outcomes["k"])
	}
	if p.Exists() {
		t.Fatalf("expected failed restore to leave property unset")
	}
	if registry.Len() != 0 {
		t.Fatalf("expected registry drained after failure, got %d", registry.Len())
	}
}

func TestPersistedAsyncSetEventuallyWrites(t *testing.T) {
	store := storage.NewMemory()
	registry := pending.NewRegistry()

	p, err := NewPersistedAsync[string](storage.NewAsync(store), "k",
		WithRegistry[string](registry),
	)
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}
	registry.AllSettled(context.Background())

	p.Set("v")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, found := store.Get("k"); found {
			if string(data) != `"v"` {
				t.Fatalf("expected stored JSON, got %s", data)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected asynchronous write to land")
}

func TestPersistedUpdateErrorDoesNotPersist(t *testing.T) {
	store := newCountingStore()
	p, err := NewPersisted[string](store, "k")
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	p.Set("a")
	if store.setCalls != 1 {
		t.Fatalf("expected one write, got %d", store.setCalls)
	}

	boom := errors.New("boom")
	if err := p.Update(func(*string) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if store.setCalls != 1 {
		t.Fatalf("expected failed update to skip storage, got %d writes", store.setCalls)
	}

	got, _ := p.Get()
	if got != "a" {
		t.Fatalf("expected value unchanged, got %q", got)
	}
}

func TestPersistedEmitsActivityEvents(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := storage.NewMemory()

	p, err := NewPersisted[string](store, "notifications",
		WithActivityHooks[string](activity.Hooks{capture}),
		WithActivityActor[string]("actor-1", "user-1", "tenant-1"),
	)
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	p.Set("on")
	p.Clear()

	if len(capture.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(capture.Events))
	}
	set := capture.Events[0]
	if set.Verb != activity.VerbSet || set.ObjectType != "property" || set.ObjectID != "notifications" {
		t.Fatalf("unexpected set event: %+v", set)
	}
	if set.ActorID != "actor-1" || set.UserID != "user-1" || set.TenantID != "tenant-1" {
		t.Fatalf("expected actor fields stamped: %+v", set)
	}
	if set.Metadata["key"] != "notifications" {
		t.Fatalf("expected key metadata, got %v", set.Metadata)
	}
	if capture.Events[1].Verb != activity.VerbRemoved {
		t.Fatalf("expected removed event, got %+v", capture.Events[1])
	}
}

func TestPersistedEmitsRestoredEvent(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := storage.NewMemory()
	if err := store.Set("k", []byte(`"y"`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := NewPersisted[string](store, "k",
		WithActivityHooks[string](activity.Hooks{capture}),
	)
	if err != nil {
		t.Fatalf("new persisted: %v", err)
	}

	if len(capture.Events) != 1 || capture.Events[0].Verb != activity.VerbRestored {
		t.Fatalf("expected restored event, got %+v", capture.Events)
	}
}
