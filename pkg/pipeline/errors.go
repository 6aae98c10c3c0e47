package pipeline

import (
	"errors"
	"fmt"
)

// ErrCapabilityUnavailable marks a format whose optional writer is not
// wired in. It triggers fallback substitution, not a hard failure.
var ErrCapabilityUnavailable = errors.New("vector page capability unavailable")

// WorkspaceError is fatal for the whole request, no artifacts possible.
type WorkspaceError struct {
	Err error
}

func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("workspace creation failed: %v", e.Err)
}

func (e *WorkspaceError) Unwrap() error { return e.Err }

// RenderError is fatal for the whole request, no partial artifact.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// WriteError is fatal for one format's artifact only, the rest of the
// request still proceeds.
type WriteError struct {
	Format Format
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s failed: %v", e.Format, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
