package internal

import (
	"context"
	"net/http"

	"github.com/telavant/tmfbridge"
)

// Engine wires the pipeline: translate query and body, optionally validate
// the request, forward upstream, translate the response back, optionally
// validate it. It implements tmfbridge.Gateway.
type Engine struct {
	cfg       *tmfbridge.Config
	cache     *SchemaCache
	registry  *Registry
	validator *Validator
	catalogue *CatalogueBuilder
	proxy     *ProxyClient
	metrics   *Metrics
}

func NewEngine(cfg *tmfbridge.Config, cache *SchemaCache, registry *Registry, validator *Validator, catalogue *CatalogueBuilder, proxy *ProxyClient, metrics *Metrics) *Engine {
	return &Engine{
		cfg:       cfg,
		cache:     cache,
		registry:  registry,
		validator: validator,
		catalogue: catalogue,
		proxy:     proxy,
		metrics:   metrics,
	}
}

var _ tmfbridge.Gateway = (*Engine)(nil)

// Handle runs one inbound request through the pipeline. Translation and
// validation errors resolve here, before the proxy step; transport errors
// resolve inside the proxy client. Upstream application responses,
// including non-2xx, pass through translated.
func (e *Engine) Handle(ctx context.Context, req *tmfbridge.Request) (*tmfbridge.Response, error) {
	nativeQuery := e.registry.TranslateQuery(req.Resource, tmfbridge.DirectionTMFToNative, req.Query)

	var nativeBody any
	if req.HasBody {
		if e.shouldValidate(e.cfg.ValidateRequests, req.ValidateOverride) {
			result := e.validator.Validate(req.Resource, req.Body, tmfbridge.DirectionTMFToNative)
			if !result.Valid {
				return nil, tmfbridge.NewValidationFailedError("request payload failed validation", result.Errors).
					WithResource(req.Resource, tmfbridge.DirectionTMFToNative)
			}
		}
		translated, err := e.registry.Translate(req.Resource, tmfbridge.DirectionTMFToNative, req.Body)
		if err != nil {
			return nil, tmfbridge.AsBridgeError(err).WithResource(req.Resource, tmfbridge.DirectionTMFToNative)
		}
		nativeBody = translated
	}

	path := "/" + req.Resource
	if req.ItemID != "" {
		path += "/" + req.ItemID
	}

	result, err := e.proxy.Forward(ctx, req.Method, path, req.Header, nativeBody, nativeQuery)
	if err != nil {
		return nil, err
	}

	translated, err := e.translateResponse(req.Resource, result.Body)
	if err != nil {
		return nil, err
	}

	if e.shouldValidate(e.cfg.ValidateResponses, req.ValidateOverride) {
		if obj, ok := translated.(map[string]any); ok {
			vres := e.validator.Validate(req.Resource, obj, tmfbridge.DirectionNativeToTMF)
			if !vres.Valid {
				status := http.StatusBadGateway
				if result.StatusCode >= 500 {
					status = result.StatusCode
				}
				return nil, tmfbridge.NewValidationFailedError("response payload failed validation", vres.Errors).
					WithResource(req.Resource, tmfbridge.DirectionNativeToTMF).
					WithStatus(status)
			}
		}
	}

	return &tmfbridge.Response{StatusCode: result.StatusCode, Body: translated}, nil
}

// translateResponse maps upstream bodies back to the TMF shape. Objects
// are translated directly and list responses element-wise; anything else
// passes through untouched.
func (e *Engine) translateResponse(resource string, body any) (any, error) {
	switch v := body.(type) {
	case map[string]any:
		return e.registry.Translate(resource, tmfbridge.DirectionNativeToTMF, v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			if obj, ok := item.(map[string]any); ok {
				translated, err := e.registry.Translate(resource, tmfbridge.DirectionNativeToTMF, obj)
				if err != nil {
					return nil, err
				}
				out[i] = translated
			} else {
				out[i] = item
			}
		}
		return out, nil
	default:
		return body, nil
	}
}

func (e *Engine) shouldValidate(configured bool, override *bool) bool {
	if override != nil {
		return *override
	}
	return configured
}

func (e *Engine) Catalogue() []tmfbridge.CatalogueEntry {
	return e.catalogue.Build()
}

func (e *Engine) Validate(resource string, payload any, direction tmfbridge.Direction) tmfbridge.ValidationResult {
	return e.validator.Validate(resource, payload, direction)
}

func (e *Engine) ReloadSchema(ctx context.Context) (*tmfbridge.SchemaSnapshot, bool, error) {
	return e.cache.Reload(ctx)
}

func (e *Engine) SchemaInfo() tmfbridge.SchemaMetadata {
	return e.cache.Current().Meta
}

func (e *Engine) UpstreamHealth(ctx context.Context) tmfbridge.HealthStatus {
	return e.proxy.Health(ctx)
}

func (e *Engine) Metrics() tmfbridge.MetricsSnapshot {
	return e.metrics.Snapshot()
}
