package main

import (
	"context"
	"fmt"

	"github.com/pidl-project/pidl/actionkit"
	"github.com/pidl-project/pidl/paction"
	"github.com/pidl-project/pidl/pctx"
	"github.com/pidl-project/pidl/pidlconfig"
	"github.com/pidl-project/pidl/pidlerrors"
)

// defaultFactories wires every actionkit action kind to a declarative
// "type" string so a YAML document can reference them without the caller
// writing any Go.
func defaultFactories() map[string]pidlconfig.ActionFactory {
	return map[string]pidlconfig.ActionFactory{
		"shell": buildShellAction,
		"http":  buildHTTPAction,
		"noop":  buildNoopAction,
	}
}

func buildShellAction(taskName string, spec pidlconfig.ActionSpec) (paction.Action, error) {
	command, _ := spec.Attributes["command"].(string)
	if command == "" {
		return nil, pidlerrors.NewArgumentError("attributes.command", fmt.Sprintf("shell action %q requires a command", spec.Name), nil)
	}

	a := actionkit.NewShellAction(taskName, spec.Name, command)
	if shell, ok := spec.Attributes["shell"].(string); ok {
		a.Shell = shell
	}
	if dir, ok := spec.Attributes["workdir"].(string); ok {
		a.WorkDir = dir
	}
	if raw, ok := spec.Attributes["env"].(map[string]interface{}); ok {
		env := make(map[string]string, len(raw))
		for k, v := range raw {
			env[k] = fmt.Sprintf("%v", v)
		}
		a.Env = env
	}
	return a, nil
}

func buildHTTPAction(taskName string, spec pidlconfig.ActionSpec) (paction.Action, error) {
	url, _ := spec.Attributes["url"].(string)
	if url == "" {
		return nil, pidlerrors.NewArgumentError("attributes.url", fmt.Sprintf("http action %q requires a url", spec.Name), nil)
	}

	a := actionkit.NewHTTPAction(taskName, spec.Name, pctx.NewValue(url))
	if method, ok := spec.Attributes["method"].(string); ok {
		a.Method = pctx.NewValue(method)
	}
	if body, ok := spec.Attributes["body"].(string); ok {
		a.Body = pctx.NewValue(body)
	}
	return a, nil
}

// buildNoopAction backs the "noop" type used by `explain`/`dry-run` smoke
// tests and by pipelines whose tasks exist purely to express ordering.
func buildNoopAction(taskName string, spec pidlconfig.ActionSpec) (paction.Action, error) {
	return actionkit.NewFuncAction(spec.Name, func(ctx context.Context, pipelineCtx *pctx.Context) error {
		return nil
	}), nil
}
