package render

import "fmt"

// ErrorKind identifies the semantic category of a RenderError, matching the
// error kinds recognized by the render driver: global-abort failures are
// surfaced here, while per-sample failures (numeric NaN, path construction,
// photon-structure emptiness) are recovered locally and never reach this type.
type ErrorKind int

const (
	// SceneLoadFailure means the scene could not be prepared for rendering.
	SceneLoadFailure ErrorKind = iota
	// CheckpointMismatch means a resume checkpoint's session id or record
	// count does not match the current render; resuming is refused.
	CheckpointMismatch
	// WorkerException means a worker's sub-task returned an error, captured
	// by its TaskGroup and re-raised here.
	WorkerException
)

func (k ErrorKind) String() string {
	switch k {
	case SceneLoadFailure:
		return "scene load failure"
	case CheckpointMismatch:
		return "checkpoint mismatch"
	case WorkerException:
		return "worker exception"
	default:
		return "unknown render error"
	}
}

// RenderError wraps one of the driver's fatal error kinds plus the
// underlying cause, if any.
type RenderError struct {
	Kind ErrorKind
	Err  error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *RenderError) Unwrap() error { return e.Err }

func newRenderError(kind ErrorKind, err error) *RenderError {
	return &RenderError{Kind: kind, Err: err}
}
