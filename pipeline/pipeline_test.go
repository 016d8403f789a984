package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pidl-project/pidl/paction"
	"github.com/pidl-project/pidl/pctx"
	"github.com/pidl-project/pidl/pidlerrors"
	"github.com/pidl-project/pidl/ptask"
)

type fnAction struct {
	paction.BaseAction
	fn func() error
}

func newFnAction(name string, fn func() error) *fnAction {
	return &fnAction{BaseAction: paction.NewBaseAction("fnAction", name, "run"), fn: fn}
}

func (a *fnAction) Run(ctx context.Context, pipelineCtx *pctx.Context) error {
	if a.fn == nil {
		return nil
	}
	return a.fn()
}

func mustTask(t *testing.T, name string, after []string, actions ...paction.Action) *ptask.Task {
	task := ptask.New(name, nil)
	if len(after) > 0 {
		task.After(after...)
	}
	for _, a := range actions {
		require.NoError(t, task.AddAction(a))
	}
	return task
}

func TestNewRejectsNegativeConcurrency(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	_, err := New("p", ctx, Options{Concurrency: -1})
	require.Error(t, err)

	var aerr *pidlerrors.ArgumentError
	require.ErrorAs(t, err, &aerr)
}

func TestNewWritesConventionalContextKeys(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	_, err := New("release", ctx, Options{})
	require.NoError(t, err)

	require.Equal(t, "release", ctx.Get("job_name"))
	require.True(t, ctx.IsSet("run_date"))
}

func TestAddTaskRejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{})
	require.NoError(t, err)

	require.NoError(t, p.AddTask(mustTask(t, "build", nil)))
	err = p.AddTask(mustTask(t, "build", nil))
	require.Error(t, err)

	var aerr *pidlerrors.ArgumentError
	require.ErrorAs(t, err, &aerr)
}

func TestLayeredDependenciesScenario(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{})
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	record := func(event string, args ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, args[0].(string))
	}
	require.NoError(t, p.On("task_start", record))

	require.NoError(t, p.AddTask(mustTask(t, "A", nil, newFnAction("a", nil))))
	require.NoError(t, p.AddTask(mustTask(t, "B", []string{"A"}, newFnAction("b", nil))))
	require.NoError(t, p.AddTask(mustTask(t, "C", []string{"A"}, newFnAction("c", nil))))
	require.NoError(t, p.AddTask(mustTask(t, "D", []string{"B", "C"}, newFnAction("d", nil))))

	plan, err := p.Explain()
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, plan[0])
	require.ElementsMatch(t, []string{"B", "C"}, plan[1])
	require.Equal(t, []string{"D"}, plan[2])

	require.NoError(t, p.Run(context.Background()))
	require.Equal(t, "A", order[0])
	require.Equal(t, "D", order[len(order)-1])
}

func TestSerialWaveSkipScenario(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{SingleThread: true, Skip: []string{"B"}})
	require.NoError(t, err)

	var ran []string
	require.NoError(t, p.On("task_end", func(event string, args ...interface{}) {
		ran = append(ran, args[0].(string))
	}))

	require.NoError(t, p.AddTask(mustTask(t, "A", nil, newFnAction("a", nil))))
	require.NoError(t, p.AddTask(mustTask(t, "B", []string{"A"}, newFnAction("b", nil))))
	require.NoError(t, p.AddTask(mustTask(t, "C", []string{"B"}, newFnAction("c", nil))))

	plan, err := p.Explain()
	require.NoError(t, err)
	require.Equal(t, [][]string{{"A"}, {"B"}, {"C"}}, plan)

	require.NoError(t, p.Run(context.Background()))
	require.Equal(t, []string{"A", "C"}, ran)
}

func TestExitPolicyShortCircuitScenario(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{SingleThread: true})
	require.NoError(t, err)

	exitAction := newFnAction("push", func() error { return errors.New("deploy failed") })
	exitAction.OnError(paction.Exit, 101)

	var yRan bool
	yAction := newFnAction("notify", func() error { yRan = true; return nil })

	require.NoError(t, p.AddTask(mustTask(t, "X", nil, exitAction)))
	require.NoError(t, p.AddTask(mustTask(t, "Y", []string{"X"}, yAction)))

	var endSeen bool
	require.NoError(t, p.On("pipeline_end", func(event string, args ...interface{}) { endSeen = true }))

	err = p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 101, ctx.Get("exit_code"))
	require.True(t, ctx.IsSet("error"))
	require.False(t, yRan)
	require.True(t, endSeen)
}

func TestRaisePropagatesAndErrorHandlerFiresScenario(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{SingleThread: true})
	require.NoError(t, err)

	raising := newFnAction("compile", func() error { return errors.New("boom") })
	require.NoError(t, p.AddTask(mustTask(t, "X", nil, raising)))

	handlerRuns := 0
	handlerTask := ptask.New("error_handler", nil)
	require.NoError(t, handlerTask.AddAction(newFnAction("notify", func() error {
		handlerRuns++
		return nil
	})))
	p.SetErrorHandler(handlerTask)

	var endSeen bool
	require.NoError(t, p.On("pipeline_end", func(event string, args ...interface{}) { endSeen = true }))

	err = p.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, handlerRuns)
	require.False(t, endSeen, "pipeline_end must not be emitted when an exception escapes a wave")
}

func TestConcurrencyCapScenario(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{Concurrency: 3})
	require.NoError(t, err)

	for _, name := range []string{"A", "B", "C", "D"} {
		require.NoError(t, p.AddTask(mustTask(t, name, nil, newFnAction("work", nil))))
	}

	plan, err := p.Explain()
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, plan[0])
	require.Equal(t, []string{"D"}, plan[1])

	require.NoError(t, p.Run(context.Background()))
}

func TestCycleDetectionScenario(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{})
	require.NoError(t, err)

	require.NoError(t, p.AddTask(mustTask(t, "P", []string{"Q"})))
	require.NoError(t, p.AddTask(mustTask(t, "Q", []string{"P"})))

	_, err = p.Explain()
	require.Error(t, err)

	var rerr *pidlerrors.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Contains(t, rerr.Message, "P")
	require.Contains(t, rerr.Message, "Q")
}

func TestEmptyPipelineRunIsNoOpButEmitsStartAndEnd(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{})
	require.NoError(t, err)

	plan, err := p.Explain()
	require.NoError(t, err)
	require.Empty(t, plan)

	var events []string
	require.NoError(t, p.On("pipeline_start", func(event string, args ...interface{}) { events = append(events, event) }))
	require.NoError(t, p.On("pipeline_end", func(event string, args ...interface{}) { events = append(events, event) }))

	require.NoError(t, p.Run(context.Background()))
	require.Equal(t, []string{"pipeline_start", "pipeline_end"}, events)
}

func TestRunOneIgnoresSkipListsAndDependencies(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{Skip: []string{"B"}})
	require.NoError(t, err)

	var ran bool
	require.NoError(t, p.AddTask(mustTask(t, "A", nil, newFnAction("a", nil))))
	require.NoError(t, p.AddTask(mustTask(t, "B", []string{"missing"}, newFnAction("b", func() error { ran = true; return nil }))))

	require.NoError(t, p.RunOne(context.Background(), "B"))
	require.True(t, ran)
}

func TestRunOneUnknownNameFails(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{})
	require.NoError(t, err)

	err = p.RunOne(context.Background(), "ghost")
	require.Error(t, err)

	var rerr *pidlerrors.RuntimeError
	require.ErrorAs(t, err, &rerr)
}

func TestDryRunWalksPlanAndDescribesTasks(t *testing.T) {
	t.Parallel()

	ctx := pctx.New(pctx.Options{})
	p, err := New("p", ctx, Options{})
	require.NoError(t, err)

	require.NoError(t, p.AddTask(mustTask(t, "A", nil, newFnAction("a", nil))))

	var buf sealedWriter
	require.NoError(t, p.DryRun(&buf))
	require.Contains(t, buf.String(), "A")
	require.Contains(t, buf.String(), "fnAction:a:run")
}

type sealedWriter struct {
	data []byte
}

func (w *sealedWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *sealedWriter) String() string { return string(w.data) }
