package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/telavant/tmfbridge"
)

// errorResponse is the uniform error body returned on every failure path.
type errorResponse struct {
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	RequestID string         `json:"requestId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// writeError writes the uniform error body
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string, details map[string]any) error {
	return writeJSON(w, statusCode, errorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestIDFrom(r.Context()),
		Details:   details,
	})
}

// writeBridgeError maps a pipeline error onto the uniform error body.
func writeBridgeError(w http.ResponseWriter, r *http.Request, err error) error {
	be := tmfbridge.AsBridgeError(err)
	return writeError(w, r, be.HTTPStatus(), be.Code, be.Message, be.Details)
}

// readJSONBody reads and decodes JSON from request body
func readJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// flattenQuery turns the URL query into the string-keyed mapping the
// pipeline consumes, dropping the reserved validate parameter.
func flattenQuery(r *http.Request) map[string]string {
	params := make(map[string]string)
	for key, values := range r.URL.Query() {
		if key == "validate" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	return params
}

// validateOverride parses the per-request ?validate= override.
func validateOverride(r *http.Request) *bool {
	raw := r.URL.Query().Get("validate")
	if raw == "" {
		return nil
	}
	v := false
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		v = true
	}
	return &v
}
