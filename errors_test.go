package tmfbridge

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeErrorHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *BridgeError
		status int
	}{
		{"translation", NewTranslationError("bad payload"), http.StatusBadRequest},
		{"validation", NewValidationFailedError("invalid", nil), http.StatusBadRequest},
		{"client", NewBadRequestError("bad input"), http.StatusBadRequest},
		{"upstream", NewUpstreamUnavailableError("http://backend", nil), http.StatusBadGateway},
		{"schema load", NewSchemaLoadError("load failed", nil), http.StatusInternalServerError},
		{"internal", NewInternalError("boom", nil), http.StatusInternalServerError},
		{"pinned status", NewValidationFailedError("invalid", nil).WithStatus(http.StatusBadGateway), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestBridgeErrorMessage(t *testing.T) {
	err := NewTranslationError("payload must be an object")
	assert.Equal(t, "[translation:TranslationError] payload must be an object", err.Error())

	err = err.WithResource("Item", DirectionTMFToNative)
	assert.Contains(t, err.Error(), "resource Item")
}

func TestBridgeErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUpstreamUnavailableError("http://backend:8000", cause)
	assert.ErrorIs(t, err, cause)
}

func TestValidationErrorCarriesViolations(t *testing.T) {
	violations := []string{"quantity: value must be an integer", "name: property is required"}
	err := NewValidationFailedError("payload failed validation", violations)
	assert.Equal(t, violations, err.Details["violations"])
}

func TestUpstreamErrorDetails(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewUpstreamUnavailableError("http://backend:8000", cause)

	assert.Equal(t, "http://backend:8000", err.Details["target"])
	// only the type of the cause is recorded, not its contents
	assert.Equal(t, "*errors.errorString", err.Details["cause"])
}

func TestWithDetailInitializesMap(t *testing.T) {
	err := NewTranslationError("bad")
	err.WithDetail("field", "quantity").WithDetail("attempts", 3)
	assert.Equal(t, "quantity", err.Details["field"])
	assert.Equal(t, 3, err.Details["attempts"])
}

func TestAsBridgeError(t *testing.T) {
	be := NewBadRequestError("nope")
	assert.Same(t, be, AsBridgeError(be))

	plain := errors.New("something broke")
	wrapped := AsBridgeError(plain)
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCodeInternal, wrapped.Code)
	assert.ErrorIs(t, wrapped, plain)

	assert.Nil(t, AsBridgeError(nil))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("tmf_to_native")
	require.NoError(t, err)
	assert.Equal(t, DirectionTMFToNative, d)

	d, err = ParseDirection("native_to_tmf")
	require.NoError(t, err)
	assert.Equal(t, DirectionNativeToTMF, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
