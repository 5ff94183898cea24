package prop

import (
	"time"

	"github.com/goliatone/go-property/pkg/activity"
	"github.com/goliatone/go-property/pkg/pending"
)

// Change is the immutable snapshot delivered to subscribers. Present is false
// when the property transitioned to unset.
type Change[T any] struct {
	Value   T
	Present bool
}

// Subscriber receives change notifications. Each invocation gets its own
// structurally independent copy of the value.
type Subscriber[T any] func(Change[T])

// Mutator mutates a draft of the live value in place. A non-nil error aborts
// the update and propagates to the caller.
type Mutator[T any] func(*T) error

// Parser re-types or normalises a freshly copied value before it is stored.
type Parser[T any] func(T) T

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// EvalContext carries inputs needed when evaluating an expression against a
// property snapshot.
type EvalContext struct {
	Snapshot any
	Key      string
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx EvalContext) withDefaultNow() EvalContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx EvalContext) withDefaultMaps() EvalContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) withDefaults() EvalContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx EvalContext) keyLabel() string {
	if ctx.Key != "" {
		return ctx.Key
	}
	return "unkeyed"
}

// Evaluator executes expressions against an evaluation context.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx EvalContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// Option configures a property at construction time.
type Option[T any] func(*config[T])

type config[T any] struct {
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	logger        EvaluatorLogger
	parser        Parser[T]
	codec         Codec[T]
	registry      *pending.Registry
	defaults      *T
	persistLogger PersistLogger
	activityHooks activity.Hooks
	actorID       string
	userID        string
	tenantID      string
}

func applyOptions[T any](opts []Option[T]) config[T] {
	cfg := config[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEvaluator configures the expression evaluator used by Evaluate and
// SubscribeWhen.
func WithEvaluator[T any](e Evaluator) Option[T] {
	return func(cfg *config[T]) {
		cfg.evaluator = e
	}
}

// WithParser configures a parser applied to every value as part of
// normalisation.
func WithParser[T any](parse Parser[T]) Option[T] {
	return func(cfg *config[T]) {
		cfg.parser = parse
	}
}

// WithRegistry overrides the pending-operations registry used for
// asynchronous restores. Defaults to pending.Default().
func WithRegistry[T any](registry *pending.Registry) Option[T] {
	return func(cfg *config[T]) {
		cfg.registry = registry
	}
}

// WithDefaultValue seeds the property when storage holds nothing for its key
// and fills missing fields of a restored snapshot.
func WithDefaultValue[T any](defaults T) Option[T] {
	return func(cfg *config[T]) {
		cfg.defaults = &defaults
	}
}

func (cfg config[T]) evaluatorLogger() EvaluatorLogger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopEvaluatorLogger{}
}

func (cfg config[T]) persistLoggerOrNoop() PersistLogger {
	if cfg.persistLogger != nil {
		return cfg.persistLogger
	}
	return noopPersistLogger{}
}
