// Package paction defines the Action contract the engine consumes, along
// with ErrorPolicy and a BaseAction helper that concrete action types
// embed to get name/skip/error-policy/exit-code plumbing for free, leaving
// only Run to implement. What Run actually does is the caller's
// responsibility — paction treats concrete action implementations as
// external collaborators it never constructs itself.
package paction

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/pidl-project/pidl/pctx"
	"github.com/pidl-project/pidl/pidlerrors"
)

// ErrorPolicy controls how a failing action affects its owning task and the
// pipeline.
type ErrorPolicy string

const (
	// Raise re-raises the action's error out of the task, aborting it and
	// the pipeline. This is the default policy.
	Raise ErrorPolicy = "raise"
	// Exit swallows the error locally, sets the task's exit flag, and
	// records the action's exit code; the pipeline terminates after the
	// current wave.
	Exit ErrorPolicy = "exit"
	// Continue swallows and logs the error; subsequent actions still run.
	Continue ErrorPolicy = "continue"
)

// ParsePolicy validates a policy string at configuration time. An unknown
// string is a RuntimeError.
func ParsePolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case Raise, Exit, Continue:
		return ErrorPolicy(s), nil
	default:
		return "", pidlerrors.NewRuntimeError(fmt.Sprintf("unknown error policy %q", s), nil)
	}
}

// NormalizeExitCode normalizes an exit code of arbitrary type: zero stays
// zero; a value that coerces to a non-zero integer is used verbatim;
// anything else (non-numeric) becomes 1.
func NormalizeExitCode(code interface{}) int {
	switch v := code.(type) {
	case nil:
		return 0
	case int:
		if v == 0 {
			return 0
		}
		return v
	case int64:
		if v == 0 {
			return 0
		}
		return int(v)
	case float64:
		n := int(v)
		if n == 0 {
			return 0
		}
		return n
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 1
		}
		if n == 0 {
			return 0
		}
		return n
	default:
		return 1
	}
}

// Action is the interface the engine consumes: name, skip predicate, error
// policy predicates, exit code, and run. Implementations embed BaseAction
// to satisfy everything but Run.
type Action interface {
	Name() string
	Skip() bool
	RaiseOnError() bool
	ExitOnError() bool
	ExitCode() int
	Run(ctx context.Context, pipelineCtx *pctx.Context) error
	// String renders the action's wire form:
	// "<ActionTypeName>:<action_name>:<action_verb>".
	String() string
}

// BaseAction supplies the non-Run portion of the Action contract. Concrete
// action types embed BaseAction by value and implement Run themselves.
type BaseAction struct {
	typeName   string
	name       string
	verb       string
	policy     ErrorPolicy
	exitCode   int
	skip       *pctx.SkipPredicate
	attributes map[string]interface{}
}

// NewBaseAction constructs a BaseAction with RAISE as the default policy
// and exit code 0. typeName should be the concrete Go type's name (e.g. via
// reflect.TypeOf(a).Name()); verb defaults to name when empty.
func NewBaseAction(typeName, name, verb string) BaseAction {
	if verb == "" {
		verb = name
	}
	return BaseAction{
		typeName: typeName,
		name:     name,
		verb:     verb,
		policy:   Raise,
	}
}

// Name returns the action's configured name.
func (b *BaseAction) Name() string { return b.name }

// OnError configures the action's error policy and, for Exit, its exit
// code. Passing an invalid policy string is handled by callers via
// ParsePolicy before reaching here; OnError itself takes the typed policy.
func (b *BaseAction) OnError(policy ErrorPolicy, exitCode interface{}) {
	b.policy = policy
	if policy == Exit {
		b.exitCode = NormalizeExitCode(exitCode)
	}
}

// RaiseOnError reports whether this action's policy is RAISE.
func (b *BaseAction) RaiseOnError() bool { return b.policy == Raise }

// ExitOnError reports whether this action's policy is EXIT.
func (b *BaseAction) ExitOnError() bool { return b.policy == Exit }

// ExitCode returns the configured exit code (only meaningful under Exit).
func (b *BaseAction) ExitCode() int { return b.exitCode }

// OnlyIf configures this action's skip predicate.
func (b *BaseAction) OnlyIf(pred *pctx.SkipPredicate) { b.skip = pred }

// Skip evaluates the configured predicate, if any.
func (b *BaseAction) Skip() bool { return b.skip.Skip() }

// String renders "<ActionTypeName>:<action_name>:<action_verb>".
func (b *BaseAction) String() string {
	return fmt.Sprintf("%s:%s:%s", b.typeName, b.name, b.verb)
}

// Attributes returns the action's attribute map, populated lazily on first
// access by reflecting over the exported fields of owner (the concrete
// action struct embedding this BaseAction). A field of type
// *pctx.SkipPredicate or pctx.AnyPromise is left as-is (lazy); any other
// exported field is snapshotted by value.
func (b *BaseAction) Attributes(owner interface{}) map[string]interface{} {
	if b.attributes != nil {
		return b.attributes
	}
	b.attributes = reflectAttributes(owner)
	return b.attributes
}

func reflectAttributes(owner interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	if owner == nil {
		return out
	}
	v := reflect.ValueOf(owner)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return out
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous && field.Type == reflect.TypeOf(BaseAction{}) {
			continue
		}
		out[field.Name] = v.Field(i).Interface()
	}
	return out
}
