package main

import (
	"github.com/pidl-project/pidl/logging"
	"github.com/pidl-project/pidl/pctx"
	"github.com/pidl-project/pidl/pidlconfig"
	"github.com/pidl-project/pidl/pipeline"
)

// loadPipeline reads, validates, and materializes path into a runnable
// pipeline, wiring every built-in actionkit action type by its declarative
// name (see factories.go).
func loadPipeline(path string, verbose bool) (*pipeline.Pipeline, error) {
	doc, err := pidlconfig.Load(path)
	if err != nil {
		return nil, err
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, HumanReadable: true})
	if err != nil {
		return nil, err
	}

	pipelineCtx := pctx.New(pctx.Options{Logger: logger})
	return pidlconfig.Build(doc, defaultFactories(), pipelineCtx, logger)
}
