package prop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-property/internal/clone"
	"github.com/goliatone/go-property/pkg/activity"
	"github.com/goliatone/go-property/pkg/pending"
	"github.com/goliatone/go-property/pkg/storage"
)

var (
	// ErrStoreRequired indicates a persisted property was constructed without
	// a storage backend.
	ErrStoreRequired = errors.New("prop: storage is required")
	// ErrKeyRequired indicates a persisted property was constructed without a
	// key.
	ErrKeyRequired = errors.New("prop: key is required")
)

// Persisted is an observable property mirrored to a key-value storage backend.
// Construction restores the last stored value for its key; every Set, Update,
// and Clear writes through afterwards. Storage failures never escape the
// public methods; they are reported through the persist logger and the
// in-memory state stays authoritative.
type Persisted[T any] struct {
	*Property[T]

	key      string
	store    storage.Store
	async    storage.AsyncStore
	codec    Codec[T]
	registry *pending.Registry
	plog     PersistLogger
	emitter  *activity.Emitter
}

// NewPersisted constructs a property backed by a synchronous store. The stored
// value for key, when present, is applied before the constructor returns,
// without a redundant write-through.
func NewPersisted[T any](store storage.Store, key string, opts ...Option[T]) (*Persisted[T], error) {
	if store == nil {
		return nil, fmt.Errorf("%w: property %q has no store", ErrStoreRequired, key)
	}
	p, err := newPersisted(key, opts)
	if err != nil {
		return nil, err
	}
	p.store = store
	p.restoreSync()
	return p, nil
}

// NewPersistedAsync constructs a property backed by an asynchronous store. The
// constructor does not block: the restore is registered in the
// pending-operations registry under key and applied when the storage read
// settles. Await Registry.AllSettled before relying on the restored value.
func NewPersistedAsync[T any](store storage.AsyncStore, key string, opts ...Option[T]) (*Persisted[T], error) {
	if store == nil {
		return nil, fmt.Errorf("%w: property %q has no store", ErrStoreRequired, key)
	}
	p, err := newPersisted(key, opts)
	if err != nil {
		return nil, err
	}
	p.async = store
	p.restoreAsync()
	return p, nil
}

func newPersisted[T any](key string, opts []Option[T]) (*Persisted[T], error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key must be a non-empty string", ErrKeyRequired)
	}
	base := New(opts...)
	base.key = key

	codec := base.cfg.codec
	if codec == nil {
		codec = JSONCodec[T]()
	}
	registry := base.cfg.registry
	if registry == nil {
		registry = pending.Default()
	}

	return &Persisted[T]{
		Property: base,
		key:      key,
		codec:    codec,
		registry: registry,
		plog:     base.cfg.persistLoggerOrNoop(),
		emitter: activity.NewEmitter(base.cfg.activityHooks, activity.Config{
			Enabled: base.cfg.activityHooks.Enabled(),
		}),
	}, nil
}

// Key returns the storage key this property is mirrored under.
func (p *Persisted[T]) Key() string {
	return p.key
}

// Registry returns the pending-operations registry this property reports
// asynchronous restores to.
func (p *Persisted[T]) Registry() *pending.Registry {
	return p.registry
}

// Set applies value through the base property, then writes it through to
// storage. Write completion of asynchronous backends is not awaited.
func (p *Persisted[T]) Set(value T) {
	p.Property.Set(value)
	p.persist()
}

// Update applies fn through the base property; a successful update writes
// through to storage, an error aborts without touching storage.
func (p *Persisted[T]) Update(fn Mutator[T]) error {
	if err := p.Property.Update(fn); err != nil {
		return err
	}
	p.persist()
	return nil
}

// Clear unsets the base property and removes the stored value for its key.
func (p *Persisted[T]) Clear() {
	p.Property.Clear()
	p.persist()
}

func (p *Persisted[T]) restoreSync() {
	start := time.Now()
	data, found := p.store.Get(p.key)
	p.plog.LogPersist(PersistLogEvent{Op: "get", Key: p.key, Duration: time.Since(start)})
	p.applyRestored(data, found)
}

func (p *Persisted[T]) restoreAsync() {
	fut := p.async.Get(p.key)
	op := pending.New[any]()
	p.registry.Enqueue(p.key, op)

	go func() {
		start := time.Now()
		lookup, err := fut.Result()
		p.plog.LogPersist(PersistLogEvent{Op: "get", Key: p.key, Duration: time.Since(start), Err: err})
		if err != nil {
			// A failed read must still settle the pending entry so
			// AllSettled does not hang on it.
			p.applyRestored(nil, false)
			p.registry.Dequeue(p.key)
			op.Reject(err)
			return
		}
		value, _ := p.applyRestored(lookup.Data, lookup.Found)
		p.registry.Dequeue(p.key)
		op.Resolve(value)
	}()
}

// applyRestored decodes data when found and applies the result via the base
// property, bypassing write-through since the value originated from storage.
// Decode failures count as "no value present". Without a stored value the
// property stays unset unless defaults were configured.
func (p *Persisted[T]) applyRestored(data []byte, found bool) (any, bool) {
	if found {
		value, err := p.codec.Decode(data)
		if err != nil {
			p.plog.LogPersist(PersistLogEvent{Op: "decode", Key: p.key, Err: err})
		} else {
			if p.Property.cfg.defaults != nil {
				value = clone.Merge(value, *p.Property.cfg.defaults)
			}
			p.Property.Set(value)
			p.emit(activity.VerbRestored)
			return value, true
		}
	}
	if p.Property.cfg.defaults != nil {
		seed := clone.Clone(*p.Property.cfg.defaults)
		p.Property.Set(seed)
		return seed, true
	}
	return nil, false
}

// persist reads back the just-applied value and mirrors it to storage: a
// write-through when present, a remove when absent or nil.
func (p *Persisted[T]) persist() {
	value, present := p.Property.Get()
	if !present || clone.IsNil(value) {
		p.removeStored()
		return
	}

	data, err := p.codec.Encode(value)
	if err != nil {
		p.plog.LogPersist(PersistLogEvent{Op: "encode", Key: p.key, Err: err})
		return
	}

	switch {
	case p.store != nil:
		start := time.Now()
		err := p.store.Set(p.key, data)
		p.plog.LogPersist(PersistLogEvent{Op: "set", Key: p.key, Duration: time.Since(start), Err: err})
	case p.async != nil:
		// Fire and forget; completion is not observable through this API.
		fut := p.async.Set(p.key, data)
		go p.logSettled("set", time.Now(), fut)
	}
	p.emit(activity.VerbSet)
}

func (p *Persisted[T]) removeStored() {
	switch {
	case p.store != nil:
		start := time.Now()
		err := p.store.Remove(p.key)
		p.plog.LogPersist(PersistLogEvent{Op: "remove", Key: p.key, Duration: time.Since(start), Err: err})
	case p.async != nil:
		fut := p.async.Remove(p.key)
		go p.logSettled("remove", time.Now(), fut)
	}
	p.emit(activity.VerbRemoved)
}

func (p *Persisted[T]) logSettled(op string, start time.Time, fut *pending.Future[struct{}]) {
	_, err := fut.Result()
	p.plog.LogPersist(PersistLogEvent{Op: op, Key: p.key, Duration: time.Since(start), Err: err})
}

func (p *Persisted[T]) emit(verb string) {
	if !p.emitter.Enabled() {
		return
	}
	cfg := p.Property.cfg
	err := p.emitter.Emit(context.Background(), activity.Event{
		Verb:       verb,
		ActorID:    cfg.actorID,
		UserID:     cfg.userID,
		TenantID:   cfg.tenantID,
		ObjectType: "property",
		ObjectID:   p.key,
		Metadata:   map[string]any{"key": p.key},
	})
	if err != nil {
		p.plog.LogPersist(PersistLogEvent{Op: "activity", Key: p.key, Err: err})
	}
}
