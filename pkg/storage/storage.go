// Package storage defines the key-value contracts persisted properties write
// through to, plus a reference in-memory implementation and an adapter that
// lifts any synchronous store into the asynchronous contract.
//
// Backends hold opaque bytes; encoding and decoding of property values is
// owned by the property layer. A backend that stores text internally must
// surface payloads it cannot produce as "absent" rather than as errors.
package storage

import "github.com/goliatone/go-property/pkg/pending"

// Store is the synchronous storage contract: every operation completes before
// returning.
type Store interface {
	// Get returns the bytes stored under key and whether the key was present.
	Get(key string) ([]byte, bool)
	// Set stores data under key, replacing any prior value.
	Set(key string, data []byte) error
	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string) error
	// Clear deletes every key.
	Clear() error
	// Keys returns all keys in insertion order.
	Keys() []string
	// Key returns the key at index in insertion order.
	Key(index int) (string, bool)
	// Len returns the number of stored keys.
	Len() int
}

// Lookup is the result of an asynchronous Get.
type Lookup struct {
	Data  []byte
	Found bool
}

// AsyncStore mirrors Store with every operation returning a future instead of
// an immediate result.
type AsyncStore interface {
	Get(key string) *pending.Future[Lookup]
	Set(key string, data []byte) *pending.Future[struct{}]
	Remove(key string) *pending.Future[struct{}]
	Clear() *pending.Future[struct{}]
	Keys() *pending.Future[[]string]
	Len() *pending.Future[int]
}
