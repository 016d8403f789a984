// Package logging wraps zerolog to give Pidl's engine a simplified,
// dependency-light logging contract. Callers who don't care about logging
// can pass nil to any Pidl constructor that accepts a *Logger; a no-op
// logger is used.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options describes logger configuration supplied at creation time.
type Options struct {
	Level         string
	HumanReadable bool
	Writer        io.Writer
}

// Logger wraps zerolog to provide a simplified API for the engine and CLI.
type Logger struct {
	base zerolog.Logger
	noop bool
}

// New creates a configured Logger instance based on Options.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	var output io.Writer = writer
	if opts.HumanReadable {
		console := zerolog.NewConsoleWriter()
		console.Out = writer
		console.TimeFormat = time.RFC3339
		output = console
	}

	base := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &Logger{base: base}, nil
}

// NoOp returns a logger that discards everything. Pidl falls back to this
// whenever a Context is built without an explicit logger option.
func NoOp() *Logger {
	return &Logger{base: zerolog.New(io.Discard), noop: true}
}

// IsNoOp reports whether this logger discards all output.
func (l *Logger) IsNoOp() bool {
	return l == nil || l.noop
}

// With returns a derived logger that always writes the supplied fields.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil {
		return NoOp()
	}
	builder := l.base.With()
	for key, value := range fields {
		builder = builder.Interface(key, value)
	}
	return &Logger{base: builder.Logger(), noop: l.noop}
}

// WithTask returns a derived logger tagging every entry with the owning
// task's name, so a task's actions can be grepped out of an interleaved
// concurrent wave's log output.
func (l *Logger) WithTask(name string) *Logger {
	return l.With(map[string]any{"task": name})
}

// WithAction returns a derived logger tagging every entry with the
// action's wire-form string (type:name:verb), as produced by
// paction.Action.String.
func (l *Logger) WithAction(action string) *Logger {
	return l.With(map[string]any{"action": action})
}

// Info writes an informational log entry.
func (l *Logger) Info(msg string) {
	if l == nil {
		return
	}
	l.base.Info().Msg(msg)
}

// Debug writes a debug-level log entry if enabled.
func (l *Logger) Debug(msg string) {
	if l == nil {
		return
	}
	l.base.Debug().Msg(msg)
}

// Warn writes a warning level log entry.
func (l *Logger) Warn(msg string) {
	if l == nil {
		return
	}
	l.base.Warn().Msg(msg)
}

// Error writes an error log entry including the supplied error context.
func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}
