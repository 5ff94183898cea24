package prop

import "time"

// PersistLogEvent describes a storage operation attempted by a persisted
// property. Err is non-nil when the operation failed; failures are contained
// at this boundary and never propagate through property methods.
type PersistLogEvent struct {
	Op       string
	Key      string
	Duration time.Duration
	Err      error
}

// PersistLogger records storage-boundary events.
type PersistLogger interface {
	LogPersist(PersistLogEvent)
}

// PersistLoggerFunc adapts a function to PersistLogger.
type PersistLoggerFunc func(PersistLogEvent)

// LogPersist implements PersistLogger.
func (f PersistLoggerFunc) LogPersist(event PersistLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopPersistLogger struct{}

func (noopPersistLogger) LogPersist(PersistLogEvent) {}

// WithPersistLogger attaches a storage-boundary logger to a persisted
// property.
func WithPersistLogger[T any](logger PersistLogger) Option[T] {
	return func(cfg *config[T]) {
		if logger == nil {
			cfg.persistLogger = noopPersistLogger{}
			return
		}
		cfg.persistLogger = logger
	}
}
