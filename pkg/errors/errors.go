package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across the codebase

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrExternal indicates an upstream service error
	ErrExternal = errors.New("external service error")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrNotImplemented indicates the operation is not implemented
	ErrNotImplemented = errors.New("not implemented")
)

// Configuration-time errors. These abort a run before any tool or LLM call.

var (
	// ErrConfig indicates an invalid crew or task configuration
	ErrConfig = errors.New("invalid configuration")

	// ErrCyclicDependency indicates the task dependency graph contains a cycle
	ErrCyclicDependency = errors.New("cyclic task dependency")

	// ErrUnresolvedDependency indicates a task depends on an unknown task id
	ErrUnresolvedDependency = errors.New("unresolved task dependency")
)

// Execution-time errors. These are scoped to a single task and retried.

var (
	// ErrTool indicates a tool or worker invocation failed
	ErrTool = errors.New("tool invocation failed")

	// ErrTimeout indicates a task exceeded its wall-clock timeout
	ErrTimeout = errors.New("task timeout")

	// ErrTaskSkipped indicates a task was skipped because a dependency failed
	ErrTaskSkipped = errors.New("task skipped: dependency failed")

	// ErrRunCancelled indicates the crew run was cancelled
	ErrRunCancelled = errors.New("run cancelled")
)

// ConfigError describes a fatal crew configuration problem detected at load
// time, before any execution starts.
type ConfigError struct {
	Crew    string
	TaskID  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("crew %s: task %s: %s", e.Crew, e.TaskID, e.Message)
	}
	return fmt.Sprintf("crew %s: %s", e.Crew, e.Message)
}

// Unwrap returns the wrapped sentinel
func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfig
}

// NewConfigError creates a configuration error for a crew
func NewConfigError(crew, taskID, message string, err error) *ConfigError {
	return &ConfigError{Crew: crew, TaskID: taskID, Message: message, Err: err}
}

// ValidationError reports a rejected knowledge entry. The caller is notified
// and the run continues.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// PartialRunFailure summarizes a crew run where some tasks failed and their
// dependents were skipped while independent branches completed.
type PartialRunFailure struct {
	Crew    string
	Failed  []string
	Skipped []string
}

// Error implements the error interface
func (e *PartialRunFailure) Error() string {
	return fmt.Sprintf("crew %s completed partially: failed=[%s] skipped=[%s]",
		e.Crew, strings.Join(e.Failed, ", "), strings.Join(e.Skipped, ", "))
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
