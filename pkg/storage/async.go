package storage

import (
	"time"

	"github.com/goliatone/go-property/pkg/pending"
)

// AsyncOption configures the Async adapter.
type AsyncOption func(*Async)

// AsyncWithDelay makes every operation sleep for d before touching the
// underlying store. Useful in tests that need an observable suspension point.
func AsyncWithDelay(d time.Duration) AsyncOption {
	return func(a *Async) {
		a.delay = d
	}
}

// Async lifts a synchronous Store into the AsyncStore contract by running each
// operation in its own goroutine.
type Async struct {
	store Store
	delay time.Duration
}

// NewAsync wraps store. A nil store yields an adapter whose operations reject.
func NewAsync(store Store, opts ...AsyncOption) *Async {
	a := &Async{store: store}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *Async) Get(key string) *pending.Future[Lookup] {
	return pending.Go(func() (Lookup, error) {
		a.pause()
		if a.store == nil {
			return Lookup{}, errNoStore
		}
		data, ok := a.store.Get(key)
		return Lookup{Data: data, Found: ok}, nil
	})
}

func (a *Async) Set(key string, data []byte) *pending.Future[struct{}] {
	return pending.Go(func() (struct{}, error) {
		a.pause()
		if a.store == nil {
			return struct{}{}, errNoStore
		}
		return struct{}{}, a.store.Set(key, data)
	})
}

func (a *Async) Remove(key string) *pending.Future[struct{}] {
	return pending.Go(func() (struct{}, error) {
		a.pause()
		if a.store == nil {
			return struct{}{}, errNoStore
		}
		return struct{}{}, a.store.Remove(key)
	})
}

func (a *Async) Clear() *pending.Future[struct{}] {
	return pending.Go(func() (struct{}, error) {
		a.pause()
		if a.store == nil {
			return struct{}{}, errNoStore
		}
		return struct{}{}, a.store.Clear()
	})
}

func (a *Async) Keys() *pending.Future[[]string] {
	return pending.Go(func() ([]string, error) {
		a.pause()
		if a.store == nil {
			return nil, errNoStore
		}
		return a.store.Keys(), nil
	})
}

func (a *Async) Len() *pending.Future[int] {
	return pending.Go(func() (int, error) {
		a.pause()
		if a.store == nil {
			return 0, errNoStore
		}
		return a.store.Len(), nil
	})
}

func (a *Async) pause() {
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
}
