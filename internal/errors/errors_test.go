package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/handlescan/internal/core/engine"
	"github.com/namelens/handlescan/internal/core/registry"
)

func TestFromCheckError(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		err    error
		code   string
		status int
	}{
		{fmt.Errorf("%w: contains whitespace", engine.ErrInvalidIdentifier), CodeValidationFailed, http.StatusBadRequest},
		{fmt.Errorf("%w: Nope", engine.ErrUnknownTarget), CodeNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: gaming", engine.ErrUnknownCategory), CodeNotFound, http.StatusNotFound},
		{fmt.Errorf("lookup: %w", registry.ErrNotFound), CodeNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, CodeTimeout, http.StatusGatewayTimeout},
		{fmt.Errorf("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		envelope := FromCheckError(ctx, tc.err)
		require.NotNil(t, envelope, tc.err.Error())
		require.Equal(t, tc.code, envelope.Code, tc.err.Error())
		require.Equal(t, tc.status, HTTPStatusFromEnvelope(envelope))
		require.NotEmpty(t, envelope.CorrelationID)
	}

	require.Nil(t, FromCheckError(ctx, nil))
}

func TestEnsureEnvelope(t *testing.T) {
	original := NewNotFoundError("missing")
	require.Same(t, original, EnsureEnvelope(original))

	wrapped := EnsureEnvelope(fmt.Errorf("plain"))
	require.Equal(t, CodeInternal, wrapped.Code)
	require.Equal(t, "plain", wrapped.Context["wrapped_error"])

	require.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/check/bad%20name", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, FromCheckError(req.Context(), fmt.Errorf("%w: contains whitespace", engine.ErrInvalidIdentifier)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, CodeValidationFailed, body.Error.Code)
	require.Contains(t, body.Error.Message, "whitespace")
	require.NotEmpty(t, body.Error.RequestID)
}

func TestHTTPStatusFromCode(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, HTTPStatusFromCode(CodeInvalidInput))
	require.Equal(t, http.StatusMethodNotAllowed, HTTPStatusFromCode(CodeMethodNotAllowed))
	require.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromCode(CodeUnavailable))
	require.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("SOMETHING_ELSE"))
	require.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(nil))
}

func TestResponseDetailsHidesInternalErrorText(t *testing.T) {
	internal := WrapInternal(context.Background(), fmt.Errorf("dial tcp 10.0.0.1:5432: refused"), "check failed")
	require.Nil(t, ResponseDetails(internal))

	notFound := WrapNotFound(context.Background(), fmt.Errorf("unknown target: Nope"), "unknown target: Nope")
	details := ResponseDetails(notFound)
	require.Equal(t, "unknown target: Nope", details["wrapped_error"])
}

func TestRespondWithEnvelopeWithoutRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithEnvelope(rec, nil, NewNotFoundError("missing"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, CodeNotFound, body.Error.Code)
	require.NotEmpty(t, body.Error.RequestID)
}
