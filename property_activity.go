package prop

import "github.com/goliatone/go-property/pkg/activity"

// WithActivityHooks attaches activity hooks to the property configuration.
// Persisted properties emit lifecycle events (set, removed, restored) through
// them. Hooks are cloned and nil entries dropped to preserve immutability.
func WithActivityHooks[T any](hooks activity.Hooks) Option[T] {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *config[T]) {
		cfg.activityHooks = normalized
	}
}

// WithActivityActor stamps emitted activity events with the acting identity.
func WithActivityActor[T any](actorID, userID, tenantID string) Option[T] {
	return func(cfg *config[T]) {
		cfg.actorID = actorID
		cfg.userID = userID
		cfg.tenantID = tenantID
	}
}

// ActivityHooks returns a cloned slice of the activity hooks configured on the
// property. The returned slice can be safely mutated by the caller.
func (p *Property[T]) ActivityHooks() activity.Hooks {
	if p == nil {
		return nil
	}
	return cloneActivityHooks(p.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
