// Package pipeline implements Pipeline: the orchestrator that owns named
// tasks and an optional error handler, builds a wave plan via
// internal/planner, and dispatches each wave either serially or
// concurrently via internal/dispatch.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pidl-project/pidl/internal/dispatch"
	"github.com/pidl-project/pidl/internal/planner"
	"github.com/pidl-project/pidl/logging"
	"github.com/pidl-project/pidl/pctx"
	"github.com/pidl-project/pidl/pevent"
	"github.com/pidl-project/pidl/pidlerrors"
	"github.com/pidl-project/pidl/ptask"
)

var forwardedEvents = []string{"task_start", "task_end", "action_start", "action_end"}

// Options configures a Pipeline at construction time.
type Options struct {
	// SingleThread forces serial wave execution regardless of wave size.
	SingleThread bool
	// Skip names tasks that are never run (but still appear in the plan).
	Skip []string
	// Concurrency caps how many tasks run per wave; 0 means unbounded.
	// Negative values are rejected with ArgumentError.
	Concurrency int
	// Actions are action factories injected into every task registered
	// after construction, so each task can instantiate those custom action
	// types by name (ptask.Task.BuildAction) without registering them
	// individually.
	Actions map[string]ptask.ActionFactory
}

// Pipeline owns tasks, an optional error handler task, and the options that
// govern plan construction and wave dispatch.
type Pipeline struct {
	*pevent.Emitter

	name   string
	ctx    *pctx.Context
	logger *logging.Logger

	tasks        []*ptask.Task
	byName       map[string]*ptask.Task
	errorHandler *ptask.Task
	skip         map[string]struct{}
	skipPred     *pctx.SkipPredicate

	singleThread bool
	concurrency  int
	factories    map[string]ptask.ActionFactory
}

// New constructs a Pipeline, writing the conventional job_name/run_date
// context keys. A negative concurrency is an ArgumentError.
func New(name string, pipelineCtx *pctx.Context, opts Options) (*Pipeline, error) {
	if opts.Concurrency < 0 {
		return nil, pidlerrors.NewArgumentError("concurrency", "must be a non-negative integer", nil)
	}

	skip := make(map[string]struct{}, len(opts.Skip))
	for _, s := range opts.Skip {
		skip[s] = struct{}{}
	}

	factories := opts.Actions
	if factories == nil {
		factories = make(map[string]ptask.ActionFactory)
	}

	pipelineCtx.Set("job_name", name)
	pipelineCtx.Set("run_date", time.Now())

	return &Pipeline{
		Emitter:      pevent.New(),
		name:         name,
		ctx:          pipelineCtx,
		logger:       pipelineCtx.Logger(),
		byName:       make(map[string]*ptask.Task),
		skip:         skip,
		singleThread: opts.SingleThread,
		concurrency:  opts.Concurrency,
		factories:    factories,
	}, nil
}

// Name returns the pipeline's configured name.
func (p *Pipeline) Name() string { return p.name }

// OnlyIf configures the pipeline's own skip predicate. When the predicate
// evaluates falsey at Run, the pipeline logs and returns without running
// any task.
func (p *Pipeline) OnlyIf(pred *pctx.SkipPredicate) { p.skipPred = pred }

// Skip evaluates the pipeline's own skip predicate, if configured.
func (p *Pipeline) Skip() bool { return p.skipPred.Skip() }

// AddTask registers a task under its name. Duplicate names fail with
// ArgumentError. Every action factory injected via Options.Actions is
// attached to the task so its BuildAction can resolve those custom action
// types.
func (p *Pipeline) AddTask(t *ptask.Task) error {
	if _, exists := p.byName[t.Name()]; exists {
		return pidlerrors.NewArgumentError("name", fmt.Sprintf("duplicate task name %q", t.Name()), nil)
	}
	for typeName, factory := range p.factories {
		t.AddCustomAction(typeName, factory)
	}
	p.tasks = append(p.tasks, t)
	p.byName[t.Name()] = t
	return nil
}

// SetErrorHandler configures the task run when the pipeline's error path
// fires. The handler task participates in no plan: it is never registered
// via AddTask and never appears in Explain's output.
func (p *Pipeline) SetErrorHandler(t *ptask.Task) { p.errorHandler = t }

// Explain computes the wave plan without running anything.
func (p *Pipeline) Explain() ([][]string, error) {
	return planner.Build(p.tasks, p.concurrency)
}

// Run builds the plan and executes it wave by wave.
func (p *Pipeline) Run(ctx context.Context) error {
	plan, err := p.Explain()
	if err != nil {
		return err
	}

	if p.Skip() {
		p.logger.With(map[string]any{"pipeline": p.name}).Info("pipeline skipped")
		return nil
	}

	start := time.Now()
	p.Emit("pipeline_start", p.name)

	runErr := p.runWaves(ctx, plan)
	if runErr != nil {
		// An error escaping a wave is re-raised after the error handler
		// runs; pipeline_end is never reached.
		p.invokeErrorHandler(ctx)
		return runErr
	}

	p.Emit("pipeline_end", p.name, durationMs(start))
	return nil
}

func (p *Pipeline) runWaves(ctx context.Context, plan [][]string) error {
	for _, wave := range plan {
		runnable := p.filterRunnable(wave)

		var exited []string
		var err error
		if p.singleThread {
			exited, err = p.runWaveSerial(ctx, runnable)
		} else {
			exited, err = p.runWaveConcurrent(ctx, runnable)
		}

		if err != nil {
			return err
		}

		if len(exited) > 0 {
			if p.ctx.IsSet("error") {
				p.invokeErrorHandler(ctx)
			}
			return nil
		}
	}
	return nil
}

// filterRunnable drops tasks named in the skip option or whose own skip
// predicate is falsey, without emitting any events for them — they still
// counted toward the plan, they just never run.
func (p *Pipeline) filterRunnable(wave []string) []*ptask.Task {
	runnable := make([]*ptask.Task, 0, len(wave))
	for _, name := range wave {
		t := p.byName[name]
		if _, skipped := p.skip[name]; skipped {
			continue
		}
		if t.Skip() {
			continue
		}
		runnable = append(runnable, t)
	}
	return runnable
}

// runWaveSerial iterates tasks in order, binding each task's own event
// stream to the pipeline's emitter for the duration of its run.
func (p *Pipeline) runWaveSerial(ctx context.Context, tasks []*ptask.Task) ([]string, error) {
	var exited []string
	for _, t := range tasks {
		handler := func(event string, args ...interface{}) { p.Emit(event, args...) }
		for _, event := range forwardedEvents {
			_ = t.On(event, handler)
		}

		err := t.Run(ctx, p.ctx)

		for _, event := range forwardedEvents {
			t.RemoveListener(event, handler)
		}

		if err != nil {
			return exited, err
		}
		if t.ExitRequested() {
			exited = append(exited, t.Name())
		}
	}
	return exited, nil
}

func (p *Pipeline) runWaveConcurrent(ctx context.Context, tasks []*ptask.Task) ([]string, error) {
	result, err := dispatch.RunWave(ctx, p.ctx, tasks, p.concurrency, p.Emitter)
	if err != nil {
		return nil, err
	}
	return result.ExitedTasks, nil
}

// RunOne runs the named task directly, ignoring skip lists and
// dependencies.
func (p *Pipeline) RunOne(ctx context.Context, name string) error {
	t, ok := p.byName[name]
	if !ok {
		return pidlerrors.NewRuntimeError(fmt.Sprintf("no task named %q", name), nil)
	}

	start := time.Now()
	p.Emit("pipeline_start", p.name)

	handler := func(event string, args ...interface{}) { p.Emit(event, args...) }
	for _, event := range forwardedEvents {
		_ = t.On(event, handler)
	}
	err := t.Run(ctx, p.ctx)
	for _, event := range forwardedEvents {
		t.RemoveListener(event, handler)
	}

	p.Emit("pipeline_end", p.name, durationMs(start))
	return err
}

// invokeErrorHandler runs the configured error handler, if any, logging
// and suppressing any error it itself raises.
func (p *Pipeline) invokeErrorHandler(ctx context.Context) {
	if p.errorHandler == nil {
		return
	}
	if p.errorHandler.Skip() {
		return
	}
	if err := p.errorHandler.Run(ctx, p.ctx); err != nil {
		p.logger.Error(err, "error handler task failed")
	}
}

// DryRun writes a description of the plan to w, walking waves in order and
// delegating to each task's own DryRunDescribe.
func (p *Pipeline) DryRun(w io.Writer) error {
	plan, err := p.Explain()
	if err != nil {
		return err
	}
	for i, wave := range plan {
		names := append([]string(nil), wave...)
		sort.Strings(names)
		fmt.Fprintf(w, "wave %d: %v\n", i, names)
		for _, name := range wave {
			fmt.Fprintln(w, p.byName[name].DryRunDescribe())
		}
	}
	return nil
}

func durationMs(start time.Time) int {
	return int(time.Since(start).Milliseconds())
}
