package pending

import "sync"

// Future is a single-assignment result that settles exactly once, either
// fulfilled with a value or rejected with an error. All methods are safe for
// concurrent use.
type Future[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	value T
	err   error
}

// New constructs an unsettled future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved constructs a future already fulfilled with value.
func Resolved[T any](value T) *Future[T] {
	f := New[T]()
	f.Resolve(value)
	return f
}

// Rejected constructs a future already rejected with err.
func Rejected[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

// Go runs fn in a goroutine and returns a future that settles with its result.
// A non-nil error rejects the future, any other outcome fulfils it.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := New[T]()
	go func() {
		value, err := fn()
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(value)
	}()
	return f
}

// Resolve fulfils the future with value. It reports false when the future was
// already settled, in which case the call has no effect.
func (f *Future[T]) Resolve(value T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settledLocked() {
		return false
	}
	f.value = value
	close(f.done)
	return true
}

// Reject settles the future with err. It reports false when the future was
// already settled. A nil err still settles the future as fulfilled.
func (f *Future[T]) Reject(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settledLocked() {
		return false
	}
	f.err = err
	close(f.done)
	return true
}

// Done returns a channel closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future reached a terminal state.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result blocks until the future settles and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

func (f *Future[T]) settledLocked() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
