package tmfbridge

import (
	"context"
)

// Gateway is the translation pipeline consumed by the dispatch layer.
// The implementation lives in the internal package.
type Gateway interface {
	// Handle runs one request through translate -> validate -> proxy ->
	// translate back and returns the translated upstream response.
	Handle(ctx context.Context, req *Request) (*Response, error)

	// Catalogue derives the resource catalogue from the current schema snapshot.
	Catalogue() []CatalogueEntry

	// Validate checks a payload for a resource and direction against the
	// derived schema.
	Validate(resource string, payload any, direction Direction) ValidationResult

	// ReloadSchema re-runs schema resolution and atomically installs the
	// result. It reports whether the active snapshot changed.
	ReloadSchema(ctx context.Context) (*SchemaSnapshot, bool, error)

	// SchemaInfo returns metadata about the current snapshot.
	SchemaInfo() SchemaMetadata

	// UpstreamHealth probes the upstream base URL once.
	UpstreamHealth(ctx context.Context) HealthStatus

	// Metrics returns the current counters and latency aggregates.
	Metrics() MetricsSnapshot
}
