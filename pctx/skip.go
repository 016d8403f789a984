package pctx

import "github.com/pidl-project/pidl/pidlerrors"

// AnyPromise is the untyped Promise used wherever the engine must hold
// promises of heterogeneous type (skip predicates, action attributes).
type AnyPromise = Promise[interface{}]

// SkipPredicate is the lazily evaluated "only_if" predicate shared by
// actions, tasks, and pipelines. Its source is one of a thunk, a context
// key, or a raw truthy/falsey value; at most one may be configured.
type SkipPredicate struct {
	configured bool
	promise    *AnyPromise
	truthy     bool
}

// NewSkipPredicateFromValue configures a skip predicate from a raw value.
func NewSkipPredicateFromValue(v interface{}) *SkipPredicate {
	return &SkipPredicate{configured: true, promise: NewValue[interface{}](v)}
}

// NewSkipPredicateFromThunk configures a skip predicate from a thunk.
func NewSkipPredicateFromThunk(fn Thunk[interface{}]) *SkipPredicate {
	return &SkipPredicate{configured: true, promise: NewThunk(fn)}
}

// NewSkipPredicateFromKey configures a skip predicate that reads key from
// ctx: it evaluates to context.IsSet(key) && Truthy(context.Get(key)).
func NewSkipPredicateFromKey(key string, ctx *Context) *SkipPredicate {
	return &SkipPredicate{
		configured: true,
		promise: NewThunk[interface{}](func() interface{} {
			return ctx.IsSet(key) && Truthy(ctx.Get(key))
		}),
	}
}

// NewSkipPredicate validates a mutually-exclusive value/thunk pair: both
// supplied is a RuntimeError (configuration failure), neither supplied
// logs a warning via logger and leaves the predicate unset (a no-op, not
// an error).
func NewSkipPredicate(hasValue bool, value interface{}, thunk Thunk[interface{}], logger interface{ Warn(string) }) (*SkipPredicate, error) {
	switch {
	case hasValue && thunk != nil:
		return nil, pidlerrors.NewRuntimeError("only_if cannot receive both a value and a thunk", nil)
	case hasValue:
		return NewSkipPredicateFromValue(value), nil
	case thunk != nil:
		return NewSkipPredicateFromThunk(thunk), nil
	default:
		if logger != nil {
			logger.Warn("only_if configured with neither a value nor a thunk; skip predicate left unset")
		}
		return &SkipPredicate{}, nil
	}
}

// Skip evaluates the predicate:
//
//	skip? ⇔ predicate_configured ∧ ¬truthy(predicate.value)
//
// A predicate that was never configured is never skipped.
func (s *SkipPredicate) Skip() bool {
	if s == nil || !s.configured {
		return false
	}
	return !Truthy(s.promise.Value())
}

// Truthy classifies the subset of values a skip predicate or context value
// can reasonably hold: false and nil are falsey, everything else
// (including zero numbers and empty strings) is truthy. This is
// deliberately looser than Go's own zero-value conventions — a
// context.Set("ready", 0) should not silently behave like "not ready."
func Truthy(v interface{}) bool {
	if v == nil || v == Unset {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
