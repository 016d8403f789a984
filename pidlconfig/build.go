package pidlconfig

import (
	"fmt"

	"github.com/pidl-project/pidl/logging"
	"github.com/pidl-project/pidl/paction"
	"github.com/pidl-project/pidl/pctx"
	"github.com/pidl-project/pidl/pidlerrors"
	"github.com/pidl-project/pidl/pipeline"
	"github.com/pidl-project/pidl/ptask"
)

// ActionFactory builds a named action instance for one declarative "type"
// string. taskName is the owning task's name, needed by action kinds that
// key context entries off it (actionkit.ShellAction, actionkit.HTTPAction).
// Callers register one factory per custom action type before calling
// Build; an ActionSpec whose Type has no registered factory fails with
// ArgumentError at build time, not at run time.
type ActionFactory func(taskName string, spec ActionSpec) (paction.Action, error)

// Build materializes a validated Document into a runnable *pipeline.Pipeline,
// resolving each task's actions against factories by their declared type.
// pipelineCtx is the shared run context every task's actions will read and
// write; logger, if nil, falls back to a no-op logger for every task.
func Build(doc *Document, factories map[string]ActionFactory, pipelineCtx *pctx.Context, logger *logging.Logger) (*pipeline.Pipeline, error) {
	p, err := pipeline.New(doc.Name, pipelineCtx, pipeline.Options{
		SingleThread: doc.Settings.SingleThread,
		Skip:         doc.Settings.Skip,
		Concurrency:  doc.Settings.Concurrency,
	})
	if err != nil {
		return nil, err
	}

	for _, spec := range doc.Tasks {
		t, err := buildTask(spec, factories, pipelineCtx, logger)
		if err != nil {
			return nil, err
		}
		if err := p.AddTask(t); err != nil {
			return nil, err
		}
	}

	if doc.OnError != nil {
		handler, err := buildTask(*doc.OnError, factories, pipelineCtx, logger)
		if err != nil {
			return nil, err
		}
		p.SetErrorHandler(handler)
	}

	return p, nil
}

func buildTask(spec TaskSpec, factories map[string]ActionFactory, pipelineCtx *pctx.Context, logger *logging.Logger) (*ptask.Task, error) {
	t := ptask.New(spec.Name, logger)
	t.After(spec.After...)

	if spec.OnlyIf != nil {
		pred, err := buildSkipPredicate(*spec.OnlyIf, pipelineCtx, logger)
		if err != nil {
			return nil, err
		}
		t.OnlyIf(pred)
	}

	for _, actionSpec := range spec.Actions {
		factory, ok := factories[actionSpec.Type]
		if !ok {
			return nil, pidlerrors.NewArgumentError("type", fmt.Sprintf("no action factory registered for type %q (task %q)", actionSpec.Type, spec.Name), nil)
		}
		action, err := factory(spec.Name, actionSpec)
		if err != nil {
			return nil, err
		}

		if err := applyActionSpec(action, actionSpec, pipelineCtx, logger); err != nil {
			return nil, err
		}

		if err := t.AddAction(action); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// actionConfigurer is implemented by concrete action types to accept the
// declarative only_if/on_error settings a BaseAction alone can't apply,
// since OnError/OnlyIf live on the embedded BaseAction's pointer receiver
// and factories hand back the paction.Action interface.
type actionConfigurer interface {
	paction.Action
	OnError(policy paction.ErrorPolicy, exitCode interface{})
	OnlyIf(pred *pctx.SkipPredicate)
}

func applyActionSpec(action paction.Action, spec ActionSpec, pipelineCtx *pctx.Context, logger *logging.Logger) error {
	configurer, ok := action.(actionConfigurer)
	if !ok {
		return nil
	}

	if spec.OnError != nil {
		policy, err := paction.ParsePolicy(spec.OnError.Policy)
		if err != nil {
			return err
		}
		configurer.OnError(policy, spec.OnError.ExitCode)
	}

	if spec.OnlyIf != nil {
		pred, err := buildSkipPredicate(*spec.OnlyIf, pipelineCtx, logger)
		if err != nil {
			return err
		}
		configurer.OnlyIf(pred)
	}

	return nil
}

func buildSkipPredicate(spec SkipSpec, pipelineCtx *pctx.Context, logger *logging.Logger) (*pctx.SkipPredicate, error) {
	if spec.ContextKey != "" {
		return pctx.NewSkipPredicateFromKey(spec.ContextKey, pipelineCtx), nil
	}
	if spec.Value != nil {
		return pctx.NewSkipPredicateFromValue(spec.Value), nil
	}
	if logger != nil {
		logger.Warn("only_if configured with neither value nor context_key; skip predicate left unset")
	}
	return &pctx.SkipPredicate{}, nil
}
