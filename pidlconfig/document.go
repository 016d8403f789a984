// Package pidlconfig implements a declarative YAML configuration surface
// for Pidl pipelines: parse a document, validate its shape, then build a
// running Pipeline from it. It is one way to assemble a pipeline among
// several — callers can still build one by hand with pipeline.New and
// ptask.New directly.
package pidlconfig

// Document is the root of a declarative pipeline YAML file.
type Document struct {
	Version  string          `yaml:"version" validate:"required"`
	Name     string          `yaml:"name" validate:"required,min=1"`
	Settings Settings        `yaml:"settings,omitempty"`
	Tasks    []TaskSpec      `yaml:"tasks" validate:"required,min=1,dive"`
	OnError  *TaskSpec       `yaml:"on_error,omitempty" validate:"omitempty"`
}

// Settings mirrors pipeline.Options.
type Settings struct {
	Concurrency  int      `yaml:"concurrency,omitempty" validate:"omitempty,min=0"`
	SingleThread bool     `yaml:"single_thread,omitempty"`
	Skip         []string `yaml:"skip,omitempty"`
}

// TaskSpec describes one declarative task.
type TaskSpec struct {
	Name    string       `yaml:"name" validate:"required,min=1"`
	After   []string     `yaml:"after,omitempty"`
	OnlyIf  *SkipSpec    `yaml:"only_if,omitempty" validate:"omitempty"`
	Actions []ActionSpec `yaml:"actions" validate:"required,min=1,dive"`
}

// ActionSpec describes one declarative action, resolved against a
// caller-supplied ActionFactory registry at Build time.
type ActionSpec struct {
	Type       string                 `yaml:"type" validate:"required,min=1"`
	Name       string                 `yaml:"name" validate:"required,min=1"`
	OnError    *ErrorPolicySpec       `yaml:"on_error,omitempty" validate:"omitempty"`
	OnlyIf     *SkipSpec              `yaml:"only_if,omitempty" validate:"omitempty"`
	Attributes map[string]interface{} `yaml:"attributes,omitempty"`
}

// ErrorPolicySpec describes an action's configured error policy.
type ErrorPolicySpec struct {
	Policy   string      `yaml:"policy" validate:"required,oneof=raise exit continue"`
	ExitCode interface{} `yaml:"exit_code,omitempty"`
}

// SkipSpec describes a skip predicate sourced from a raw value or a
// context key reference — exactly the two non-thunk Promise sources a
// declarative document can express (a YAML document cannot encode a Go
// closure).
type SkipSpec struct {
	Value      interface{} `yaml:"value,omitempty"`
	ContextKey string      `yaml:"context_key,omitempty"`
}
