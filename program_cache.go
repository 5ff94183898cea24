package prop

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache on the property.
func WithProgramCache[T any](cache ProgramCache) Option[T] {
	return func(cfg *config[T]) {
		cfg.programCache = cache
	}
}
