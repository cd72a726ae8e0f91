package render

import (
	stderrors "errors"

	"mapserve/internal/pkg/errors"
)

// FailureKind is the closed set of render failure outcomes. Every waiter of
// a coalesced render observes the same kind and reason as the owner.
type FailureKind string

const (
	FailureExtraction        FailureKind = "EXTRACTION_FAILED"
	FailureTemplateNotFound  FailureKind = "TEMPLATE_NOT_FOUND"
	FailureRendering         FailureKind = "RENDERING_FAILED"
	FailureDestinationExists FailureKind = "DESTINATION_EXISTS"
	FailureExternal          FailureKind = "EXTERNAL"
)

// Error is a render pipeline failure.
type Error struct {
	Kind FailureKind
	// Reason carries free text for FailureExternal; empty otherwise.
	Reason string
}

func (e *Error) Error() string {
	switch e.Kind {
	case FailureExtraction:
		return "extraction failed"
	case FailureTemplateNotFound:
		return "config template not found"
	case FailureRendering:
		return "rendering failed"
	case FailureDestinationExists:
		return "destination already exists"
	default:
		if e.Reason != "" {
			return e.Reason
		}
		return "render failed"
	}
}

// Code maps the failure onto the service error taxonomy for HTTP responses.
func (e *Error) Code() errors.Code {
	switch e.Kind {
	case FailureDestinationExists:
		return errors.CodeAlreadyExists
	case FailureTemplateNotFound:
		return errors.CodeFailedPrecond
	case FailureExtraction, FailureRendering:
		return errors.CodeUpstream
	default:
		return errors.CodeInternal
	}
}

// External wraps an unanticipated fault, preserving its text as the reason.
func External(err error) *Error {
	return &Error{Kind: FailureExternal, Reason: err.Error()}
}

// KindOf extracts the failure kind from an error chain. The second return is
// false for nil and for errors outside the render taxonomy.
func KindOf(err error) (FailureKind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// normalizeError maps any pipeline error into the closed taxonomy before it
// is broadcast. Render errors pass through untouched so waiters and owner
// share the identical value.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return External(err)
}
