package paction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pidl-project/pidl/pctx"
)

type fakeAction struct {
	BaseAction
	Command string
	ran     bool
}

func newFakeAction(name, command string) *fakeAction {
	a := &fakeAction{
		BaseAction: NewBaseAction("fakeAction", name, "run"),
		Command:    command,
	}
	return a
}

func (a *fakeAction) Run(ctx context.Context, pipelineCtx *pctx.Context) error {
	a.ran = true
	return nil
}

func TestBaseActionDefaultsToRaise(t *testing.T) {
	t.Parallel()

	a := newFakeAction("compile", "go build")
	require.True(t, a.RaiseOnError())
	require.False(t, a.ExitOnError())
	require.Equal(t, 0, a.ExitCode())
}

func TestOnErrorExitSetsExitCode(t *testing.T) {
	t.Parallel()

	a := newFakeAction("deploy", "deploy.sh")
	a.OnError(Exit, 101)

	require.False(t, a.RaiseOnError())
	require.True(t, a.ExitOnError())
	require.Equal(t, 101, a.ExitCode())
}

func TestParsePolicyRejectsUnknown(t *testing.T) {
	t.Parallel()

	_, err := ParsePolicy("retry")
	require.Error(t, err)
}

func TestParsePolicyAcceptsKnown(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"raise", "exit", "continue"} {
		p, err := ParsePolicy(s)
		require.NoError(t, err)
		require.Equal(t, ErrorPolicy(s), p)
	}
}

func TestNormalizeExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, NormalizeExitCode(0))
	require.Equal(t, 7, NormalizeExitCode(7))
	require.Equal(t, 7, NormalizeExitCode("7"))
	require.Equal(t, 0, NormalizeExitCode("0"))
	require.Equal(t, 1, NormalizeExitCode("not-a-number"))
	require.Equal(t, 1, NormalizeExitCode(3.7))
	require.Equal(t, 0, NormalizeExitCode(nil))
}

func TestActionStringForm(t *testing.T) {
	t.Parallel()

	a := newFakeAction("compile", "go build")
	require.Equal(t, "fakeAction:compile:run", a.String())
}

func TestSkipDefaultsToFalse(t *testing.T) {
	t.Parallel()

	a := newFakeAction("compile", "go build")
	require.False(t, a.Skip())
}

func TestOnlyIfConfiguresSkip(t *testing.T) {
	t.Parallel()

	a := newFakeAction("compile", "go build")
	a.OnlyIf(pctx.NewSkipPredicateFromValue(false))
	require.True(t, a.Skip())
}

func TestAttributesReflectsExportedFields(t *testing.T) {
	t.Parallel()

	a := newFakeAction("compile", "go build")
	attrs := a.Attributes(a)

	require.Equal(t, "go build", attrs["Command"])
	_, hasBase := attrs["BaseAction"]
	require.False(t, hasBase, "embedded BaseAction must not leak into attributes")
}

func TestRunIsCalledByEmbedder(t *testing.T) {
	t.Parallel()

	a := newFakeAction("compile", "go build")
	ctx := pctx.New(pctx.Options{})
	require.NoError(t, a.Run(context.Background(), ctx))
	require.True(t, a.ran)
}
