// Package planner computes the pipeline's execution plan: tasks grouped
// into ordered waves of mutually-runnable tasks, honoring a concurrency cap
// by splitting a wave into concurrency-sized sub-waves. Waves are built by
// repeated "compute ready, then expand seen" rounds rather than a
// Kahn's-algorithm queue, since the same ready-set computation also drives
// cycle/unreachability diagnosis once no task becomes ready anymore.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pidl-project/pidl/pidlerrors"
	"github.com/pidl-project/pidl/ptask"
)

// Build computes the wave plan for tasks in their declared insertion order.
// concurrency <= 0 means unbounded: each wave of ready tasks is emitted as
// a single sub-wave. A positive concurrency splits a wave of ready tasks
// into consecutive chunks of at most concurrency tasks, preserving
// insertion order across chunks.
//
// Build fails with a RuntimeError naming every task that never became
// ready (missing prerequisite references, or a prerequisite cycle).
func Build(tasks []*ptask.Task, concurrency int) ([][]string, error) {
	byName := make(map[string]*ptask.Task, len(tasks))
	for _, t := range tasks {
		byName[t.Name()] = t
	}

	seen := make(map[string]struct{}, len(tasks))
	var plan [][]string

	for {
		var ready []string
		for _, t := range tasks {
			if _, already := seen[t.Name()]; already {
				continue
			}
			if t.Ready(seen) {
				ready = append(ready, t.Name())
			}
		}
		if len(ready) == 0 {
			break
		}

		for _, subwave := range splitIntoSubwaves(ready, concurrency) {
			plan = append(plan, subwave)
			for _, name := range subwave {
				seen[name] = struct{}{}
			}
		}
	}

	if len(seen) != len(tasks) {
		var unreachable []string
		for _, t := range tasks {
			if _, ok := seen[t.Name()]; !ok {
				unreachable = append(unreachable, t.Name())
			}
		}
		sort.Strings(unreachable)
		return nil, pidlerrors.NewRuntimeError(
			fmt.Sprintf("unreachable tasks (missing prerequisites or a cycle): %s", strings.Join(unreachable, ", ")),
			nil,
		)
	}

	return plan, nil
}

func splitIntoSubwaves(ready []string, concurrency int) [][]string {
	if concurrency <= 0 || len(ready) <= concurrency {
		return [][]string{ready}
	}
	var out [][]string
	for start := 0; start < len(ready); start += concurrency {
		end := start + concurrency
		if end > len(ready) {
			end = len(ready)
		}
		out = append(out, ready[start:end])
	}
	return out
}
