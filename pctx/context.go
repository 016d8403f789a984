package pctx

import (
	"sync"

	"github.com/pidl-project/pidl/logging"
	"github.com/pidl-project/pidl/pidlerrors"
)

// unsetType is the Context's nil sentinel. Get on a missing key returns
// Unset rather than untyped nil, so a caller that explicitly Sets a key to
// nil is still distinguishable from a key that was never set.
type unsetType struct{}

// Unset is the value Context.Get returns for a key that has never been Set.
var Unset = unsetType{}

// ViewKind classifies how a named auxiliary view should be exposed.
type ViewKind int

const (
	// ViewMapping views expose a parameterized accessor (ViewKey) plus a
	// whole-map accessor (View); looking up an absent key is a KeyError.
	ViewMapping ViewKind = iota
	// ViewScalar views expose only the whole-value accessor.
	ViewScalar
	// ViewSequence views expose only the whole-value accessor and hold a
	// slice verbatim.
	ViewSequence
)

// view is the immutable, read-only configuration of a single named
// auxiliary accessor (params, config, and similar read-only inputs).
type view struct {
	kind  ViewKind
	value interface{}
}

// Context is the shared, thread-safe key/value state for one pipeline run,
// plus its read-only named views. All reads and writes serialize on a
// single mutex, rather than one lock per key, since key/value pairs have
// no independent identity worth contending separately.
type Context struct {
	mu     sync.Mutex
	values map[string]interface{}
	views  map[string]view
	logger *logging.Logger
}

// Options configures a new Context. Views is a map from view name to the
// raw option value the caller supplied; New classifies each by its runtime
// type (map[string]interface{} → ViewMapping, []interface{} or []string →
// ViewSequence, anything else, including other map and slice types →
// ViewScalar). Logger is installed as-is; if nil, a no-op logger is used.
type Options struct {
	Views  map[string]interface{}
	Logger *logging.Logger
}

// New constructs a Context from the supplied options.
func New(opts Options) *Context {
	c := &Context{
		values: make(map[string]interface{}),
		views:  make(map[string]view, len(opts.Views)),
		logger: opts.Logger,
	}
	if c.logger == nil {
		c.logger = logging.NoOp()
	}
	for name, raw := range opts.Views {
		c.views[name] = classifyView(raw)
	}
	return c
}

func classifyView(raw interface{}) view {
	switch v := raw.(type) {
	case map[string]interface{}:
		return view{kind: ViewMapping, value: v}
	default:
		if seq, ok := asSlice(v); ok {
			return view{kind: ViewSequence, value: seq}
		}
		return view{kind: ViewScalar, value: v}
	}
}

// asSlice reports whether raw is a []interface{} or a []string, returning it
// as []interface{} for uniform storage ([]string elements are boxed). Other
// typed slices are not recognized.
func asSlice(raw interface{}) ([]interface{}, bool) {
	switch v := raw.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// Logger returns the Context's configured logger (never nil).
func (c *Context) Logger() *logging.Logger {
	if c == nil || c.logger == nil {
		return logging.NoOp()
	}
	return c.logger
}

// Set writes value under key, overwriting any prior value. Set is
// idempotent: two consecutive Set(k, v) calls leave the same observable
// state as one.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get returns the value stored at key, or Unset if the key was never set.
// Get never fails — a missing key is a valid, observable state, not an
// error condition.
func (c *Context) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[key]; ok {
		return v
	}
	return Unset
}

// IsSet reports whether key is present and not nil/Unset.
func (c *Context) IsSet(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return false
	}
	return v != nil && v != Unset
}

// All returns a snapshot of every user-set key/value pair.
func (c *Context) All() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// View returns the whole value registered for a named auxiliary view: the
// entire map for a ViewMapping view, or the verbatim scalar/sequence for the
// others. Calling an unregistered view name fails with a NoMethodError.
func (c *Context) View(name string) (interface{}, error) {
	v, ok := c.views[name]
	if !ok {
		return nil, pidlerrors.NewNoMethodError(name)
	}
	return v.value, nil
}

// ViewKey returns a single key's value from a mapping-typed view. It fails
// with a NoMethodError if the view was never registered, or a KeyError if
// the view is mapping-typed but the key is absent. Calling ViewKey against a
// scalar/sequence view is itself a NoMethodError: those views have no
// parameterized form to call.
func (c *Context) ViewKey(name, key string) (interface{}, error) {
	v, ok := c.views[name]
	if !ok {
		return nil, pidlerrors.NewNoMethodError(name)
	}
	if v.kind != ViewMapping {
		return nil, pidlerrors.NewNoMethodError(name + "(" + key + ")")
	}
	mapping := v.value.(map[string]interface{})
	val, ok := mapping[key]
	if !ok {
		return nil, pidlerrors.NewKeyError(name, key)
	}
	return val, nil
}

// HasView reports whether a view with this name was registered.
func (c *Context) HasView(name string) bool {
	_, ok := c.views[name]
	return ok
}
