// Package dispatch runs one pipeline wave of tasks concurrently, bounded by
// a semaphore, and aggregates both errors and events across the goroutines
// it starts. Events raised by a task while its wave is running are captured
// off-goroutine and replayed on the dispatcher's own goroutine once every
// task in the wave has finished, so subscribers never observe concurrent
// delivery even though the tasks themselves ran in parallel.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pidl-project/pidl/pctx"
	"github.com/pidl-project/pidl/pevent"
	"github.com/pidl-project/pidl/pidlerrors"
	"github.com/pidl-project/pidl/ptask"
)

var forwardedEvents = []string{"task_start", "task_end", "action_start", "action_end"}

// bufferedEvent is one captured (event, args) pair awaiting replay.
type bufferedEvent struct {
	event string
	args  []interface{}
}

// eventBuffer is a mutex-guarded FIFO of events captured from concurrently
// running tasks, replayed in capture order on the dispatcher's goroutine.
type eventBuffer struct {
	mu     sync.Mutex
	events []bufferedEvent
}

func (b *eventBuffer) add(event string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, bufferedEvent{event: event, args: args})
}

// flush replays every buffered event, in capture order, via emit — intended
// to be called from the dispatcher's own goroutine after the wave's
// goroutines have all terminated.
func (b *eventBuffer) flush(emit func(event string, args ...interface{})) {
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.mu.Unlock()

	for _, e := range events {
		emit(e.event, e.args...)
	}
}

// Result reports which of a wave's tasks requested pipeline exit.
type Result struct {
	ExitedTasks []string
}

// RunWave executes tasks concurrently, bounded by concurrency (<=0 means
// unbounded — one goroutine per task), against the shared pipelineCtx.
// Every task_start/task_end/action_start/action_end event any task emits
// is buffered and replayed on forward only after every task in the wave has
// terminated.
//
// If exactly one task's run raised, RunWave returns that error (wrapped
// with the task's name); if more than one raised, it returns a
// RuntimeError naming every offending task.
func RunWave(ctx context.Context, pipelineCtx *pctx.Context, tasks []*ptask.Task, concurrency int, forward *pevent.Emitter) (Result, error) {
	if len(tasks) == 0 {
		return Result{}, nil
	}

	buffer := &eventBuffer{}
	handler := func(event string, args ...interface{}) { buffer.add(event, args...) }

	for _, t := range tasks {
		for _, event := range forwardedEvents {
			_ = t.On(event, handler)
		}
	}

	sem := make(chan struct{}, semSize(concurrency, len(tasks)))
	var wg sync.WaitGroup
	var mu sync.Mutex
	errs := make(map[string]error)

	for _, t := range tasks {
		wg.Add(1)
		go func(task *ptask.Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := task.Run(ctx, pipelineCtx); err != nil {
				mu.Lock()
				errs[task.Name()] = err
				mu.Unlock()
			}
		}(t)
	}

	wg.Wait()
	buffer.flush(forward.Emit)

	var exited []string
	for _, t := range tasks {
		if t.ExitRequested() {
			exited = append(exited, t.Name())
		}
	}

	return Result{ExitedTasks: exited}, aggregateErrors(errs)
}

func semSize(concurrency, fallback int) int {
	if concurrency <= 0 {
		return fallback
	}
	return concurrency
}

func aggregateErrors(errs map[string]error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		for name, err := range errs {
			return pidlerrors.NewRuntimeError(fmt.Sprintf("task %q failed: %v", name, err), err)
		}
	}
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	return pidlerrors.NewRuntimeError(fmt.Sprintf("multiple tasks failed: %s", strings.Join(names, ", ")), nil)
}
