package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pidl-project/pidl/pidlerrors"
	"github.com/pidl-project/pidl/ptask"
)

func newTask(name string, after ...string) *ptask.Task {
	t := ptask.New(name, nil)
	if len(after) > 0 {
		t.After(after...)
	}
	return t
}

func TestBuildLayeredDependencies(t *testing.T) {
	t.Parallel()

	a := newTask("A")
	b := newTask("B", "A")
	c := newTask("C", "A")
	d := newTask("D", "B", "C")

	plan, err := Build([]*ptask.Task{a, b, c, d}, 0)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	require.Equal(t, []string{"A"}, plan[0])
	require.ElementsMatch(t, []string{"B", "C"}, plan[1])
	require.Equal(t, []string{"D"}, plan[2])
}

func TestBuildConcurrencyCapSplitsWave(t *testing.T) {
	t.Parallel()

	a := newTask("A")
	b := newTask("B")
	c := newTask("C")
	d := newTask("D")

	plan, err := Build([]*ptask.Task{a, b, c, d}, 3)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	require.Equal(t, []string{"A", "B", "C"}, plan[0])
	require.Equal(t, []string{"D"}, plan[1])
}

func TestBuildZeroConcurrencyDoesNotSplit(t *testing.T) {
	t.Parallel()

	a := newTask("A")
	b := newTask("B")
	c := newTask("C")

	plan, err := Build([]*ptask.Task{a, b, c}, 0)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.Equal(t, []string{"A", "B", "C"}, plan[0])
}

func TestBuildEmptyTaskSet(t *testing.T) {
	t.Parallel()

	plan, err := Build(nil, 0)
	require.NoError(t, err)
	require.Empty(t, plan)
}

func TestBuildCycleDetectionNamesBothTasks(t *testing.T) {
	t.Parallel()

	p := newTask("P", "Q")
	q := newTask("Q", "P")

	_, err := Build([]*ptask.Task{p, q}, 0)
	require.Error(t, err)

	var rerr *pidlerrors.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Contains(t, rerr.Message, "P")
	require.Contains(t, rerr.Message, "Q")
}

func TestBuildMissingPrerequisiteIsUnreachable(t *testing.T) {
	t.Parallel()

	a := newTask("A", "ghost")

	_, err := Build([]*ptask.Task{a}, 0)
	require.Error(t, err)

	var rerr *pidlerrors.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Contains(t, rerr.Message, "A")
}
