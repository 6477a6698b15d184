package orchestrator

import (
	"errors"
	"fmt"
)

// ErrBusy is returned by StartRender/StartGroupRender when a different
// job already occupies the single episode (or group) job slot, per the
// concurrency model's "at most one in-flight job" invariant.
var ErrBusy = errors.New("orchestrator: a render job is already in flight")

// Kind classifies a RenderError per spec §7.
type Kind string

const (
	KindInvalid         Kind = "invalid_input"
	KindMissingResource Kind = "missing_resource"
	KindMalformed       Kind = "malformed_stream"
	KindTransient       Kind = "transient_external"
	KindCancelled       Kind = "cancelled"
	KindFatal           Kind = "fatal"
)

// RenderError wraps an error with the stage it happened in and its
// classification, replacing the teacher's single *PipelineError with one
// more field (Kind) per SPEC_FULL §10.
type RenderError struct {
	Stage   string
	Kind    Kind
	Message string
	Err     error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Stage, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Stage, e.Kind, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is also a *RenderError of the same Kind, so
// errors.Is treats two RenderErrors of one Kind as equal whatever their
// Stage or Message.
func (e *RenderError) Is(target error) bool {
	var other *RenderError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func newError(kind Kind, stage, message string, err error) *RenderError {
	return &RenderError{Stage: stage, Kind: kind, Message: message, Err: err}
}
