package pctx

import (
	"fmt"
	"sync"

	"github.com/pidl-project/pidl/pidlerrors"
)

// Thunk is a zero-argument callable forced on first access.
type Thunk[T any] func() T

// Promise is a single-assignment lazily evaluated value. It wraps exactly
// one of: a raw value, a thunk, or a (key, Context) pair. Once forced, the
// result is memoized and returned on every subsequent call to Value, even
// if the thunk would now produce something different.
type Promise[T any] struct {
	mu        sync.Mutex
	evaluated bool
	value     T

	raw     T
	hasRaw  bool
	thunk   Thunk[T]
	key     string
	ctx     *Context
	fromKey bool
}

// NewValue builds an already-evaluated Promise wrapping a raw value.
func NewValue[T any](v T) *Promise[T] {
	return &Promise[T]{evaluated: true, value: v, raw: v, hasRaw: true}
}

// NewThunk builds a Promise that forces the thunk on first access.
func NewThunk[T any](fn Thunk[T]) *Promise[T] {
	return &Promise[T]{thunk: fn}
}

// NewFromKey builds a Promise that, when forced, reads key from ctx. The
// read happens at force time, not at construction time, and is protected by
// the Context's own mutex (Context.Get already serializes).
func NewFromKey[T any](key string, ctx *Context) *Promise[T] {
	return &Promise[T]{key: key, ctx: ctx, fromKey: true}
}

// NewPromise validates and builds a Promise from an optional raw value and
// an optional thunk: supplying both is an ArgumentError. Supplying neither
// yields a Promise that evaluates to the zero value of T.
func NewPromise[T any](raw *T, thunk Thunk[T]) (*Promise[T], error) {
	if raw != nil && thunk != nil {
		return nil, pidlerrors.NewArgumentError("source", "cannot supply both a raw value and a thunk", nil)
	}
	if raw != nil {
		return NewValue(*raw), nil
	}
	if thunk != nil {
		return NewThunk(thunk), nil
	}
	var zero T
	return NewValue(zero), nil
}

// Value forces evaluation (if not already memoized) and returns the result.
// A panic raised by a deferred evaluator (a thunk, or a context read that
// itself panics) propagates unwrapped to the caller — Value adds no extra
// recover/wrapping layer of its own.
func (p *Promise[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.evaluated {
		return p.value
	}

	switch {
	case p.fromKey:
		raw := p.ctx.Get(p.key)
		if raw == Unset || raw == nil {
			var zero T
			p.value = zero
		} else if v, ok := raw.(T); ok {
			p.value = v
		} else {
			panic(fmt.Sprintf("promise: context key %q holds %T, not %T", p.key, raw, p.value))
		}
	case p.thunk != nil:
		p.value = p.thunk()
	default:
		var zero T
		p.value = zero
	}

	p.evaluated = true
	return p.value
}

// Evaluated reports whether the value has been materialized. Always true
// for raw values; for thunks and context-key references it is true only
// after Value has been called at least once.
func (p *Promise[T]) Evaluated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evaluated
}

// String forces evaluation and renders the result with fmt. Stringifying
// an unevaluated Promise is therefore not side-effect-free.
func (p *Promise[T]) String() string {
	return fmt.Sprintf("%v", p.Value())
}
