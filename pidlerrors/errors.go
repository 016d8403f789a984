// Package pidlerrors defines the closed set of error kinds used across the
// module: configuration-time failures (ArgumentError, RuntimeError) and
// context-access failures (KeyError, NoMethodError). See DESIGN.md for why
// the taxonomy is a closed set of plain struct types.
package pidlerrors

import "fmt"

// ArgumentError reports misconfiguration discovered at construction time:
// a duplicate task name, a negative concurrency value, a value and a thunk
// supplied together to a Promise, a non-callable event handler, and so on.
type ArgumentError struct {
	Field   string
	Message string
	Err     error
}

// NewArgumentError constructs an ArgumentError for the named field.
func NewArgumentError(field, message string, err error) error {
	return &ArgumentError{Field: field, Message: message, Err: err}
}

func (e *ArgumentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("argument error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("argument error: %s", e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *ArgumentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KeyError reports a lookup against a mapping-typed Context view for a key
// that is not present in that view's backing map.
type KeyError struct {
	View string
	Key  string
}

// NewKeyError constructs a KeyError for the given view and key.
func NewKeyError(view, key string) error {
	return &KeyError{View: view, Key: key}
}

func (e *KeyError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("key error: view %q has no key %q", e.View, e.Key)
}

// NoMethodError reports a call to a Context view accessor that was never
// registered at construction time.
type NoMethodError struct {
	View string
}

// NewNoMethodError constructs a NoMethodError for the given view name.
func NewNoMethodError(view string) error {
	return &NoMethodError{View: view}
}

func (e *NoMethodError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("no method error: no view registered named %q", e.View)
}

// RuntimeError reports a failure discovered while validating a plan,
// parsing an error policy string, looking up an unknown task name for
// run_one, or propagating an exception out of a concurrent wave.
type RuntimeError struct {
	Message string
	Err     error
}

// NewRuntimeError constructs a RuntimeError, optionally wrapping a cause.
func NewRuntimeError(message string, err error) error {
	return &RuntimeError{Message: message, Err: err}
}

func (e *RuntimeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("runtime error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("runtime error: %s", e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *RuntimeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
