package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/telavant/tmfbridge"
)

// handleCollection handles GET and POST /tmf/{resource}
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	s.proxyRequest(w, r, "")
}

// handleItem handles GET/PATCH/PUT/DELETE /tmf/{resource}/{id}
func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	s.proxyRequest(w, r, mux.Vars(r)["id"])
}

func (s *Server) proxyRequest(w http.ResponseWriter, r *http.Request, itemID string) {
	resource := mux.Vars(r)["resource"]

	req := &tmfbridge.Request{
		Method:           r.Method,
		Resource:         resource,
		ItemID:           itemID,
		Query:            flattenQuery(r),
		Header:           r.Header,
		ValidateOverride: validateOverride(r),
	}

	if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
		var body any
		if err := readJSONBody(r, &body); err != nil {
			writeError(w, r, http.StatusBadRequest, tmfbridge.ErrCodeBadRequest,
				fmt.Sprintf("invalid json body: %v", err), nil)
			return
		}
		req.Body = body
		req.HasBody = true
	}

	resp, err := s.gateway.Handle(r.Context(), req)
	if err != nil {
		writeBridgeError(w, r, err)
		return
	}
	writeJSON(w, resp.StatusCode, resp.Body)
}

// handleCatalogue handles GET /catalogue
func (s *Server) handleCatalogue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gateway.Catalogue())
}

// validateRequest is the body accepted by POST /validate.
type validateRequest struct {
	Resource  string `json:"resource"`
	Payload   any    `json:"payload"`
	Direction string `json:"direction"`
}

// handleValidate handles POST /validate
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, tmfbridge.ErrCodeBadRequest,
			fmt.Sprintf("invalid json body: %v", err), nil)
		return
	}
	if req.Resource == "" {
		writeError(w, r, http.StatusBadRequest, tmfbridge.ErrCodeBadRequest, "resource is required", nil)
		return
	}
	direction, err := tmfbridge.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, tmfbridge.ErrCodeBadRequest, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, s.gateway.Validate(req.Resource, req.Payload, direction))
}

// handleSchemaReload handles POST /admin/schema/reload
func (s *Server) handleSchemaReload(w http.ResponseWriter, r *http.Request) {
	snap, changed, err := s.gateway.ReloadSchema(r.Context())
	if err != nil && snap == nil {
		writeBridgeError(w, r, err)
		return
	}

	body := map[string]any{
		"status":  "reloaded",
		"changed": changed,
		"origin":  snap.Meta.Origin,
	}
	if err != nil {
		body["status"] = "stale"
		body["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleSchemaInfo handles GET /admin/schema/info
func (s *Server) handleSchemaInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gateway.SchemaInfo())
}

// handleUpstreamHealth handles GET /admin/upstream/health
func (s *Server) handleUpstreamHealth(w http.ResponseWriter, r *http.Request) {
	health := s.gateway.UpstreamHealth(r.Context())
	status := http.StatusOK
	if !health.OK {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, health)
}

// handleMetrics handles GET /metrics; the read model is only exposed when
// metrics are enabled by configuration.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.MetricsEnabled {
		writeError(w, r, http.StatusNotFound, tmfbridge.ErrCodeBadRequest, "metrics are disabled", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.gateway.Metrics())
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"schema": s.gateway.SchemaInfo().Origin,
	})
}
