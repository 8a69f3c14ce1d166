package tmfbridge

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// Direction indicates which way a payload is being translated.
type Direction string

const (
	// DirectionTMFToNative is applied to inbound requests before they reach the upstream.
	DirectionTMFToNative Direction = "tmf_to_native"
	// DirectionNativeToTMF is applied to upstream responses before they are returned.
	DirectionNativeToTMF Direction = "native_to_tmf"
)

// ParseDirection converts the wire representation into a Direction.
// Any value other than the two known variants is a client error.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionTMFToNative, DirectionNativeToTMF:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Payload is a decoded JSON object passed through the translation pipeline.
type Payload = map[string]any

// SchemaOrigin identifies which ranked source produced the active schema.
type SchemaOrigin string

const (
	OriginPath      SchemaOrigin = "path"
	OriginURL       SchemaOrigin = "url"
	OriginLegacyURL SchemaOrigin = "legacy-url"
	OriginBundled   SchemaOrigin = "bundled-fallback"
)

// CacheValidators holds the opaque HTTP caching tokens captured when a
// schema was fetched over HTTP. Presence, not content, decides whether a
// conditional reload is attempted.
type CacheValidators struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// SchemaMetadata describes the provenance of the active schema document.
type SchemaMetadata struct {
	Origin         SchemaOrigin     `json:"origin"`
	LoadedAt       time.Time        `json:"loadedAt"`
	Validators     *CacheValidators `json:"cacheValidators,omitempty"`
	ComponentNames []string         `json:"componentNames"`
}

// SchemaSnapshot is an immutable (document, metadata) pair. A snapshot is
// replaced wholesale on reload, never mutated in place.
type SchemaSnapshot struct {
	Doc  *openapi3.T
	Raw  []byte
	Meta SchemaMetadata
}

// AttributeSpec describes a single catalogue attribute.
type AttributeSpec struct {
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Capabilities records which CRUD operations the native API exposes for a resource.
type Capabilities struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// GeneratedFrom makes a catalogue entry self-describing about provenance.
type GeneratedFrom struct {
	OpenAPIVersion string       `json:"openapiVersion"`
	Origin         SchemaOrigin `json:"origin"`
	Timestamp      time.Time    `json:"timestamp"`
}

// CatalogueEntry is the derived, client-facing description of one resource.
type CatalogueEntry struct {
	Resource      string                   `json:"resource"`
	Description   string                   `json:"description,omitempty"`
	KeyAttributes []string                 `json:"keyAttributes"`
	Attributes    map[string]AttributeSpec `json:"attributes"`
	Capabilities  Capabilities             `json:"capabilities"`
	GeneratedFrom GeneratedFrom            `json:"generatedFrom"`
}

// Hook is a pure post-processing function applied after structural mapping.
// Hooks run last and may remove passed-through fields; the core does not
// re-add what a hook removed.
type Hook func(Payload) Payload

// ResourceMapping holds the bidirectional field mappings for one resource.
// Entries are immutable after registration.
type ResourceMapping struct {
	Forward      map[string]string
	Backward     map[string]string
	QueryMapping map[string]string
	ForwardHook  Hook
	BackwardHook Hook
}

// UpstreamResult is a successfully received upstream response, including
// non-2xx application responses.
type UpstreamResult struct {
	StatusCode int
	Header     http.Header
	Body       any
}

// ValidationResult reports payload validation against a derived schema.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// HealthStatus reports reachability of the upstream base URL.
type HealthStatus struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status"`
	BaseURL    string `json:"baseUrl"`
}

// CounterSnapshot holds the monotonic request counters.
type CounterSnapshot struct {
	TotalRequests      uint64 `json:"total_requests"`
	ProxyErrors        uint64 `json:"proxy_errors"`
	ValidationFailures uint64 `json:"validation_failures"`
}

// LatencySnapshot aggregates observed request latency in milliseconds.
type LatencySnapshot struct {
	Count int64 `json:"count"`
	Avg   int64 `json:"avg"`
	Max   int64 `json:"max"`
	Min   int64 `json:"min"`
}

// MetricsSnapshot is the read model exposed by the metrics endpoint.
type MetricsSnapshot struct {
	Counters CounterSnapshot `json:"counters"`
	Latency  LatencySnapshot `json:"latency_ms"`
}

// Request is the parsed inbound request handed to the pipeline by the
// dispatch layer.
type Request struct {
	Method   string
	Resource string
	ItemID   string
	Query    map[string]string
	Body     any
	HasBody  bool
	Header   http.Header
	// ValidateOverride, when set, overrides the configured validation
	// toggles for this request only.
	ValidateOverride *bool
}

// Response is the translated result returned to the dispatch layer.
// StatusCode mirrors the upstream application status.
type Response struct {
	StatusCode int
	Body       any
}
