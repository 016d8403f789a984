// Package actionkit supplies ready-made Action implementations that
// exercise the full paction.Action contract: FuncAction wraps arbitrary Go
// code, ShellAction runs an external command, and HTTPAction issues a
// single HTTP request. They double as the fixtures the core engine's own
// tests run against.
package actionkit

import (
	"context"

	"github.com/pidl-project/pidl/paction"
	"github.com/pidl-project/pidl/pctx"
)

// Func is the signature FuncAction wraps.
type Func func(ctx context.Context, pipelineCtx *pctx.Context) error

// FuncAction adapts an arbitrary Go function to the Action contract —
// the simplest way to embed code directly as a pipeline action.
type FuncAction struct {
	paction.BaseAction
	fn Func
}

// NewFuncAction constructs a FuncAction with RAISE as its default error
// policy.
func NewFuncAction(name string, fn Func) *FuncAction {
	return &FuncAction{
		BaseAction: paction.NewBaseAction("FuncAction", name, name),
		fn:         fn,
	}
}

// Run invokes the wrapped function.
func (a *FuncAction) Run(ctx context.Context, pipelineCtx *pctx.Context) error {
	if a.fn == nil {
		return nil
	}
	return a.fn(ctx, pipelineCtx)
}
