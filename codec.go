package prop

import (
	"bytes"
	"encoding/json"
)

// Codec converts property values to and from the opaque bytes a storage
// backend holds.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// WithCodec overrides the codec used by a persisted property. Defaults to
// JSONCodec.
func WithCodec[T any](codec Codec[T]) Option[T] {
	return func(cfg *config[T]) {
		cfg.codec = codec
	}
}

// JSONCodec returns the default codec: a JSON round trip.
func JSONCodec[T any]() Codec[T] {
	return jsonCodec[T]{}
}

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonCodec[T]) Decode(data []byte) (T, error) {
	var value T
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&value); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}
