// Package errors maps handlescan failures onto gofulmen error envelopes and
// writes them as JSON error responses.
package errors

import (
	"context"
	stderrors "errors"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"

	"github.com/namelens/handlescan/internal/core/engine"
	"github.com/namelens/handlescan/internal/core/registry"
	"github.com/namelens/handlescan/internal/server/middleware"
)

// Error codes used by the HTTP API and CLI exits.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL_ERROR"
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

const wrappedErrorKey = "wrapped_error"

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

// The Wrap helpers take the request context so the envelope carries the
// request's correlation ID.

func WrapInvalidInput(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInvalidInput, err, message)
}

func WrapNotFound(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeNotFound, err, message)
}

func WrapValidationError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeValidationFailed, err, message)
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	envelope, _ := wrap(ctx, CodeInternal, err, message).WithSeverity(errors.SeverityHigh)
	return envelope
}

func WrapTimeout(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	envelope, _ := wrap(ctx, CodeTimeout, err, message).WithSeverity(errors.SeverityMedium)
	return envelope
}

func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := requestIDOrNew(ctx)
	envelope := errors.NewErrorEnvelope(code, message).
		WithCorrelationID(id).
		WithTraceID(id)
	return withWrappedError(envelope, err)
}

// FromCheckError maps errors returned by the check service onto envelopes.
// The message carries the service error text, which names the offending input.
func FromCheckError(ctx context.Context, err error) *errors.ErrorEnvelope {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, engine.ErrInvalidIdentifier):
		return WrapValidationError(ctx, err, err.Error())
	case stderrors.Is(err, engine.ErrUnknownTarget),
		stderrors.Is(err, engine.ErrUnknownCategory),
		stderrors.Is(err, registry.ErrNotFound):
		return WrapNotFound(ctx, err, err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return WrapTimeout(ctx, err, "check did not finish before the deadline")
	default:
		return WrapInternal(ctx, err, "check failed")
	}
}

// EnsureEnvelope returns err as an envelope, wrapping foreign errors as
// internal errors.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		envelope, _ := NewInternalError("unexpected nil error").WithSeverity(errors.SeverityCritical)
		return envelope
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return envelope
	}

	wrapped, _ := withWrappedError(NewInternalError("unexpected error"), err).WithSeverity(errors.SeverityHigh)
	return wrapped
}

// EnsureCorrelationID fills in a missing correlation ID from the request
// context, or a generated fallback when the context has none.
func EnsureCorrelationID(ctx context.Context, envelope *errors.ErrorEnvelope) *errors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}
	if id := middleware.GetRequestID(ctx); id != "" {
		return envelope.WithCorrelationID(id)
	}
	return envelope.WithCorrelationID("fallback-" + errors.GenerateCorrelationID())
}

func requestIDOrNew(ctx context.Context) string {
	if id := middleware.GetRequestID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}
	updated, updateErr := envelope.WithContext(map[string]interface{}{
		wrappedErrorKey: err.Error(),
	})
	if updateErr != nil {
		return envelope
	}
	return updated
}
