package pending

import (
	"context"
	"sort"
	"sync"
)

// Outcome records how one pending operation settled. Err is nil for fulfilled
// operations and carries the rejection (or context cancellation) otherwise.
type Outcome struct {
	Value any
	Err   error
}

// Registry is a ledger of in-flight operations keyed by property key. Mutation
// happens under an internal mutex so the registry can be shared by every
// persisted property in the process.
type Registry struct {
	mu  sync.Mutex
	ops map[string]*Future[any]
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Future[any])}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used when persisted properties are
// constructed without an explicit one.
func Default() *Registry {
	return defaultRegistry
}

// Enqueue stores op under key, overwriting any prior entry for that key.
func (r *Registry) Enqueue(key string, op *Future[any]) {
	if op == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]*Future[any])
	}
	r.ops[key] = op
}

// Dequeue removes the entry for key. Removing an absent key is a no-op.
func (r *Registry) Dequeue(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ops, key)
}

// Len returns the number of in-flight entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// Keys returns the in-flight keys sorted alphabetically.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.ops))
	for key := range r.ops {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Reset drops every entry. Intended for test isolation; pending futures keep
// running but are no longer tracked.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = make(map[string]*Future[any])
}

// AllSettled snapshots the current entries and blocks until every one of them
// settles, returning the outcome per key. The call itself never fails:
// rejections are reported as outcomes, and when ctx is cancelled the remaining
// entries are reported with the context error. Entries enqueued after the
// snapshot is taken are not covered.
func (r *Registry) AllSettled(ctx context.Context) map[string]Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	snapshot := make(map[string]*Future[any], len(r.ops))
	for key, op := range r.ops {
		snapshot[key] = op
	}
	r.mu.Unlock()

	outcomes := make(map[string]Outcome, len(snapshot))
	for key, op := range snapshot {
		select {
		case <-op.Done():
			value, err := op.Result()
			outcomes[key] = Outcome{Value: value, Err: err}
		case <-ctx.Done():
			outcomes[key] = Outcome{Err: ctx.Err()}
		}
	}
	return outcomes
}
