package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrEngineLoad      = errors.New("engine load failed")
	ErrEngineExecution = errors.New("engine execution failed")
	ErrMixdown         = errors.New("mixdown failed")
	ErrExternalTool    = errors.New("external tool error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
)

// Failure kinds reported by Classify and persisted with render history.
const (
	KindValidation      = "validation"
	KindEngineLoad      = "engine_load"
	KindEngineExecution = "engine_execution"
	KindCanceled        = "canceled"
	KindInternal        = "internal"
)

// InvalidInputError reports a caller-supplied value outside its accepted range.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// EngineLoadError reports that the transcode engine could not be brought up.
type EngineLoadError struct {
	Op  string
	Err error
}

func (e *EngineLoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("engine load: %s", e.Op)
	}
	return fmt.Sprintf("engine load: %s: %v", e.Op, e.Err)
}

func (e *EngineLoadError) Unwrap() error { return e.Err }

func (e *EngineLoadError) Is(target error) bool { return target == ErrEngineLoad }

// EngineExecutionError reports a failed engine invocation. Diagnostics carries
// the engine's own output and is not parsed.
type EngineExecutionError struct {
	Op          string
	Diagnostics string
	Err         error
}

func (e *EngineExecutionError) Error() string {
	msg := "engine execution"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if diag := strings.TrimSpace(e.Diagnostics); diag != "" {
		msg += ": " + diag
	}
	return msg
}

func (e *EngineExecutionError) Unwrap() error { return e.Err }

func (e *EngineExecutionError) Is(target error) bool { return target == ErrEngineExecution }

// MixdownError names the pipeline step that failed and wraps its cause.
type MixdownError struct {
	Step string
	Err  error
}

func (e *MixdownError) Error() string {
	return fmt.Sprintf("mixdown %s: %v", e.Step, e.Err)
}

func (e *MixdownError) Unwrap() error { return e.Err }

func (e *MixdownError) Is(target error) bool { return target == ErrMixdown }

// Wrap builds an error message that includes component context while tagging
// it with the provided marker. The marker should be one of the exported
// sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the failure kind recorded in render history.
// A nil error classifies as the empty string.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrEngineLoad):
		return KindEngineLoad
	case errors.Is(err, ErrEngineExecution):
		return KindEngineExecution
	default:
		return KindInternal
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
