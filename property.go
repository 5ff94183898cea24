package prop

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/goliatone/go-property/internal/clone"
)

// Property holds a single observable value. It starts unset; Set, Update, and
// Clear transition its state and notify subscribers synchronously, in
// subscription order, with independent copies of the new value.
//
// The single-writer model of the original design is enforced with a mutex:
// state mutation happens under the lock, subscriber callbacks run outside it.
type Property[T any] struct {
	mu      sync.Mutex
	value   T
	present bool
	subs    []subscription[T]
	cfg     config[T]
	key     string
}

type subscription[T any] struct {
	fn   Subscriber[T]
	id   uintptr
	rule CompiledRule
	expr string
}

// New constructs an unset observable property.
func New[T any](opts ...Option[T]) *Property[T] {
	return &Property[T]{cfg: applyOptions(opts)}
}

// Exists reports whether the property currently holds a value.
func (p *Property[T]) Exists() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.present
}

// Get returns a fresh normalized copy of the current value. The second result
// is false when the property is unset. The live internal value is never
// exposed.
func (p *Property[T]) Get() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.present {
		var zero T
		return zero, false
	}
	return clone.Clone(p.value), true
}

// Set normalizes value, stores it as the new current value, and notifies every
// subscriber before returning.
func (p *Property[T]) Set(value T) {
	normalized := Normalize(value, p.cfg.parser)

	p.mu.Lock()
	p.value = normalized
	p.present = true
	// Detach the notification value under the lock so an Update on another
	// goroutine cannot mutate it mid-clone.
	detached := clone.Clone(normalized)
	subs := p.snapshotSubs()
	p.mu.Unlock()

	p.notify(subs, Change[T]{Value: detached, Present: true})
}

// Update invokes fn with a pointer to the live value so it can build the next
// value in place, draft style. An error from fn aborts the update and
// propagates to the caller; no notification happens in that case. Updating an
// unset property drafts from the zero value.
func (p *Property[T]) Update(fn Mutator[T]) error {
	if fn == nil {
		return fmt.Errorf("prop: mutator is required")
	}

	p.mu.Lock()
	if err := fn(&p.value); err != nil {
		p.mu.Unlock()
		return err
	}
	p.value = Normalize(p.value, p.cfg.parser)
	p.present = true
	detached := clone.Clone(p.value)
	subs := p.snapshotSubs()
	p.mu.Unlock()

	p.notify(subs, Change[T]{Value: detached, Present: true})
	return nil
}

// Clear transitions the property to unset and notifies subscribers with an
// absent change.
func (p *Property[T]) Clear() {
	p.mu.Lock()
	var zero T
	p.value = zero
	p.present = false
	subs := p.snapshotSubs()
	p.mu.Unlock()

	p.notify(subs, Change[T]{Present: false})
}

// Subscribe appends fn to the subscriber list. Duplicates are allowed and each
// occurrence is invoked independently.
func (p *Property[T]) Subscribe(fn Subscriber[T]) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, subscription[T]{fn: fn, id: subscriberID(fn)})
}

// SubscribeWhen appends fn guarded by expr: the subscriber fires only when the
// expression evaluates truthy against the new value. The expression is
// compiled eagerly with the configured evaluator.
func (p *Property[T]) SubscribeWhen(expr string, fn Subscriber[T]) error {
	if fn == nil {
		return fmt.Errorf("prop: subscriber is required")
	}
	evaluator, err := p.resolveEvaluator()
	if err != nil {
		return err
	}
	rule, err := evaluator.Compile(expr)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, subscription[T]{fn: fn, id: subscriberID(fn), rule: rule, expr: expr})
	return nil
}

// Unsubscribe removes every occurrence of fn from the subscriber list,
// matching by function code pointer. Distinct closures created from the same
// function literal share a code pointer and are removed together; callers
// needing independent detachment must use distinct handler functions.
// Removing an unknown handler is a no-op.
func (p *Property[T]) Unsubscribe(fn Subscriber[T]) {
	id := subscriberID(fn)
	if id == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.subs[:0]
	for _, sub := range p.subs {
		if sub.id == id {
			continue
		}
		kept = append(kept, sub)
	}
	p.subs = kept
}

// snapshotSubs copies the subscriber list under the lock so a notification
// pass is unaffected by concurrent subscribe/unsubscribe calls.
func (p *Property[T]) snapshotSubs() []subscription[T] {
	if len(p.subs) == 0 {
		return nil
	}
	out := make([]subscription[T], len(p.subs))
	copy(out, p.subs)
	return out
}

func (p *Property[T]) notify(subs []subscription[T], change Change[T]) {
	for _, sub := range subs {
		if sub.rule != nil && !p.ruleMatches(sub, change) {
			continue
		}
		delivered := change
		if change.Present {
			delivered.Value = clone.Clone(change.Value)
		}
		sub.fn(delivered)
	}
}

func (p *Property[T]) ruleMatches(sub subscription[T], change Change[T]) bool {
	var snapshot any
	if change.Present {
		snapshot = snapshotBinding(change.Value)
	}
	out, err := sub.rule.Evaluate(EvalContext{Snapshot: snapshot, Key: p.key})
	if err != nil {
		p.cfg.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
			Engine: evaluatorEngineName(p.currentEvaluator()),
			Expr:   sub.expr,
			Key:    p.keyLabel(),
			Err:    err,
		})
		return false
	}
	return truthy(out)
}

func (p *Property[T]) keyLabel() string {
	if p.key != "" {
		return p.key
	}
	return "unkeyed"
}

func subscriberID[T any](fn Subscriber[T]) uintptr {
	if fn == nil {
		return 0
	}
	return reflect.ValueOf(fn).Pointer()
}

// truthy mirrors the loose truthiness used by guard expressions: false for
// nil, false, zero numbers, and empty strings/containers.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return !rv.IsZero()
	}
}
