// Package ptask implements Task: an ordered collection of actions with
// declared prerequisite task names, and the per-run exit/error state the
// engine tracks for it.
package ptask

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pidl-project/pidl/logging"
	"github.com/pidl-project/pidl/paction"
	"github.com/pidl-project/pidl/pctx"
	"github.com/pidl-project/pidl/pevent"
)

// Validator is implemented by actions that want to assert invariants when
// added to a task; AddAction calls Validate if the action implements it.
type Validator interface {
	Validate() error
}

// ActionFactory builds a named action instance of a custom type registered
// via AddCustomAction, letting declarative configuration instantiate an
// action type by name instead of by importing its concrete Go type.
type ActionFactory func(name string) (paction.Action, error)

// Task is an ordered collection of named actions plus the set of
// prerequisite task names it declares.
type Task struct {
	*pevent.Emitter

	name      string
	actions   []paction.Action
	prereqs   map[string]struct{}
	factories map[string]ActionFactory
	skip      *pctx.SkipPredicate
	logger    *logging.Logger

	mu       sync.Mutex
	exitFlag bool
	exitCode int
}

// New constructs a Task with the given name. logger may be nil, in which
// case a no-op logger is used.
func New(name string, logger *logging.Logger) *Task {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Task{
		Emitter:   pevent.New(),
		name:      name,
		prereqs:   make(map[string]struct{}),
		factories: make(map[string]ActionFactory),
		logger:    logger,
	}
}

// Name returns the task's identifier.
func (t *Task) Name() string { return t.name }

// AddAction appends action to the task's ordered list, calling its
// Validate method if the action implements Validator. Duplicate
// registration (the same action added twice) simply appends again.
func (t *Task) AddAction(a paction.Action) error {
	if v, ok := a.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	t.actions = append(t.actions, a)
	return nil
}

// AddCustomAction attaches a factory so BuildAction can instantiate this
// action type by name. (pidlconfig resolves action types against its own
// factory registry and does not go through this method.)
func (t *Task) AddCustomAction(typeName string, factory ActionFactory) {
	t.factories[typeName] = factory
}

// BuildAction instantiates a previously registered custom action type.
func (t *Task) BuildAction(typeName, name string) (paction.Action, error) {
	factory, ok := t.factories[typeName]
	if !ok {
		return nil, fmt.Errorf("no action factory registered for type %q", typeName)
	}
	return factory(name)
}

// After declares prerequisite task names.
func (t *Task) After(names ...string) {
	for _, n := range names {
		t.prereqs[n] = struct{}{}
	}
}

// Prerequisites returns the set of prerequisite task names.
func (t *Task) Prerequisites() []string {
	out := make([]string, 0, len(t.prereqs))
	for n := range t.prereqs {
		out = append(out, n)
	}
	return out
}

// First reports whether this task has no prerequisites.
func (t *Task) First() bool { return len(t.prereqs) == 0 }

// Ready reports whether every prerequisite is present in seen.
func (t *Task) Ready(seen map[string]struct{}) bool {
	for p := range t.prereqs {
		if _, ok := seen[p]; !ok {
			return false
		}
	}
	return true
}

// OnlyIf configures this task's own skip predicate; a task whose predicate
// evaluates falsey is never run.
func (t *Task) OnlyIf(pred *pctx.SkipPredicate) { t.skip = pred }

// Skip evaluates the task's own skip predicate, if configured.
func (t *Task) Skip() bool { return t.skip.Skip() }

// ExitRequested reports whether an EXIT-policy action in this run set the
// task's exit flag.
func (t *Task) ExitRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitFlag
}

// ExitCode returns the exit code recorded by an EXIT-policy action, if any.
func (t *Task) ExitCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitCode
}

// Erred reports whether the shared pipeline context carries an error from
// any task's run — any task sharing this context sees the same answer once
// one of them has failed.
func (t *Task) Erred(pipelineCtx *pctx.Context) bool {
	return pipelineCtx.IsSet("error")
}

func (t *Task) setExit(code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exitFlag = true
	t.exitCode = code
}

// Run executes every action in declaration order against the shared
// pipeline context. RAISE aborts the task without emitting action_end or
// task_end; EXIT records context[:error]/context[:exit_code], sets the
// exit flag, and stops running further actions in this task (but still
// emits task_end, since the task itself completed — it is the pipeline,
// not the task, that halts at the next wave boundary); CONTINUE logs and
// proceeds.
func (t *Task) Run(ctx context.Context, pipelineCtx *pctx.Context) error {
	start := time.Now()
	t.Emit("task_start", t.name)

	for _, action := range t.actions {
		if action.Skip() {
			t.logger.WithAction(action.String()).Debug("skipping action")
			continue
		}

		t.Emit("action_start", action.String())
		actionStart := time.Now()

		err := action.Run(ctx, pipelineCtx)
		if err == nil {
			t.Emit("action_end", action.String(), durationMs(actionStart))
			continue
		}

		switch {
		case action.RaiseOnError():
			pipelineCtx.Set("error", err.Error())
			return err
		case action.ExitOnError():
			pipelineCtx.Set("error", err.Error())
			pipelineCtx.Set("exit_code", action.ExitCode())
			t.setExit(action.ExitCode())
			t.logger.WithAction(action.String()).Error(err, "action requested exit")
			t.Emit("task_end", t.name, durationMs(start))
			return nil
		default: // Continue
			t.logger.WithAction(action.String()).Error(err, "action failed, continuing")
		}
	}

	t.Emit("task_end", t.name, durationMs(start))
	return nil
}

// describer is implemented by actions that want a custom dry-run
// description; actions that don't implement it fall back to String().
type describer interface {
	DryRunDescribe() string
}

// DryRunDescribe renders a human-readable description of this task's
// actions in declaration order, delegating to each action's own
// DryRunDescribe if it implements one.
func (t *Task) DryRunDescribe() string {
	lines := make([]string, 0, len(t.actions))
	for _, a := range t.actions {
		if d, ok := a.(describer); ok {
			lines = append(lines, d.DryRunDescribe())
			continue
		}
		lines = append(lines, a.String())
	}
	out := t.name + ":"
	for _, line := range lines {
		out += "\n  " + line
	}
	return out
}

func durationMs(start time.Time) int {
	return int(time.Since(start).Milliseconds())
}
