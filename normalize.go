package prop

import "github.com/goliatone/go-property/internal/clone"

// Normalize returns an independent deep copy of value. When parse is non-nil
// the copy is passed through it first and its result returned. The input is
// never mutated; the result shares no mutable substructure with it.
func Normalize[T any](value T, parse Parser[T]) T {
	copied := clone.Clone(value)
	if parse != nil {
		return parse(copied)
	}
	return copied
}
