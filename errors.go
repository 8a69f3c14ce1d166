package tmfbridge

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeSchemaLoad  ErrorType = "schema_load"
	ErrorTypeTranslation ErrorType = "translation"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeUpstream    ErrorType = "upstream"
	ErrorTypeClient      ErrorType = "client"
	ErrorTypeInternal    ErrorType = "internal"
)

// Error codes surfaced in the uniform error body. Pipeline errors carry
// one of the taxonomy names.
const (
	ErrCodeSchemaLoad          = "SchemaLoadError"
	ErrCodeTranslation         = "TranslationError"
	ErrCodeValidationFailed    = "ValidationFailed"
	ErrCodeUpstreamUnavailable = "UpstreamUnavailable"
	ErrCodeBadRequest          = "BadRequest"
	ErrCodeInternal            = "InternalError"
)

// BridgeError is the unified error shape produced by the pipeline.
type BridgeError struct {
	Type      ErrorType      `json:"type"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Resource  string         `json:"resource,omitempty"`
	Direction Direction      `json:"direction,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Status    int            `json:"-"`
	Cause     error          `json:"-"`
}

func (e *BridgeError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("[%s:%s] resource %s: %s", e.Type, e.Code, e.Resource, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error taxonomy onto a transport-level status.
func (e *BridgeError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Type {
	case ErrorTypeTranslation, ErrorTypeValidation, ErrorTypeClient:
		return http.StatusBadRequest
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail adds a single detail to a BridgeError
func (e *BridgeError) WithDetail(key string, value any) *BridgeError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a BridgeError
func (e *BridgeError) WithCause(cause error) *BridgeError {
	e.Cause = cause
	return e
}

// WithResource adds resource context to a BridgeError
func (e *BridgeError) WithResource(resource string, direction Direction) *BridgeError {
	e.Resource = resource
	e.Direction = direction
	return e
}

// WithStatus pins the transport-level status for this error instance.
func (e *BridgeError) WithStatus(status int) *BridgeError {
	e.Status = status
	return e
}

// NewSchemaLoadError reports that schema resolution failed terminally.
func NewSchemaLoadError(message string, cause error) *BridgeError {
	return &BridgeError{
		Type:    ErrorTypeSchemaLoad,
		Code:    ErrCodeSchemaLoad,
		Message: message,
		Cause:   cause,
	}
}

// NewTranslationError reports a malformed input payload to the mapping step.
func NewTranslationError(message string) *BridgeError {
	return &BridgeError{
		Type:    ErrorTypeTranslation,
		Code:    ErrCodeTranslation,
		Message: message,
	}
}

// NewValidationFailedError reports a structural mismatch against the
// derived schema, carrying the full ordered violation list.
func NewValidationFailedError(message string, violations []string) *BridgeError {
	e := &BridgeError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: message,
	}
	return e.WithDetail("violations", violations)
}

// NewUpstreamUnavailableError reports a transport failure after exhausting
// retries. The target URL is included for diagnosis; auth material never is.
func NewUpstreamUnavailableError(target string, cause error) *BridgeError {
	e := &BridgeError{
		Type:    ErrorTypeUpstream,
		Code:    ErrCodeUpstreamUnavailable,
		Message: fmt.Sprintf("failed to reach upstream %s", target),
		Cause:   cause,
	}
	if cause != nil {
		e = e.WithDetail("cause", fmt.Sprintf("%T", cause))
	}
	return e.WithDetail("target", target)
}

// NewBadRequestError reports an invalid inbound request at the API boundary.
func NewBadRequestError(message string) *BridgeError {
	return &BridgeError{
		Type:    ErrorTypeClient,
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, cause error) *BridgeError {
	return &BridgeError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternal,
		Message: message,
		Cause:   cause,
	}
}

// AsBridgeError normalizes any error into a BridgeError.
func AsBridgeError(err error) *BridgeError {
	if err == nil {
		return nil
	}
	if be, ok := err.(*BridgeError); ok {
		return be
	}
	return NewInternalError(err.Error(), err)
}
