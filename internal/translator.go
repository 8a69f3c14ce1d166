package internal

import (
	"fmt"
	"sync"

	"github.com/telavant/tmfbridge"
)

// Registry maps resource names to translation rules. Lookup is
// case-sensitive; resources without a mapping translate as identity, with
// every field passed through unchanged.
type Registry struct {
	mu       sync.RWMutex
	mappings map[string]*tmfbridge.ResourceMapping
}

// NewRegistry creates a registry seeded with the built-in mappings.
func NewRegistry() *Registry {
	r := &Registry{mappings: make(map[string]*tmfbridge.ResourceMapping)}
	for name, m := range defaultMappings() {
		r.Register(name, m)
	}
	return r
}

// Register installs a mapping for a resource. Registration is serialized
// against concurrent translations; a mapping must not be mutated after it
// is registered.
func (r *Registry) Register(resource string, mapping *tmfbridge.ResourceMapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[resource] = mapping
}

// Lookup returns the mapping for a resource, or nil for identity.
func (r *Registry) Lookup(resource string) *tmfbridge.ResourceMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mappings[resource]
}

// Translate renames payload fields per the mapping for the given
// direction. Fields absent from the mapping are copied through unchanged,
// so partial mapping coverage cannot cause silent data loss. Nested arrays
// and objects are passed through verbatim without recursive renaming; the
// registered hook, if any, runs last.
func (r *Registry) Translate(resource string, direction tmfbridge.Direction, payload any) (tmfbridge.Payload, error) {
	obj, err := asObject(payload)
	if err != nil {
		return nil, err
	}

	mapping := r.Lookup(resource)
	if mapping == nil {
		out := make(tmfbridge.Payload, len(obj))
		for k, v := range obj {
			out[k] = v
		}
		return out, nil
	}

	fields := mapping.Forward
	hook := mapping.ForwardHook
	if direction == tmfbridge.DirectionNativeToTMF {
		fields = mapping.Backward
		hook = mapping.BackwardHook
	}

	out := make(tmfbridge.Payload, len(obj))
	for k, v := range obj {
		if renamed, ok := fields[k]; ok {
			out[renamed] = v
		} else {
			out[k] = v
		}
	}
	if hook != nil {
		out = hook(out)
	}
	return out, nil
}

// TranslateQuery renames query parameters using the resource's query
// sub-map only; the body mapping is never applied to query parameters.
// Unmapped keys pass through unchanged and no keys are invented.
func (r *Registry) TranslateQuery(resource string, direction tmfbridge.Direction, params map[string]string) map[string]string {
	out := make(map[string]string, len(params))

	mapping := r.Lookup(resource)
	if mapping == nil || len(mapping.QueryMapping) == 0 {
		for k, v := range params {
			out[k] = v
		}
		return out
	}

	qm := mapping.QueryMapping
	if direction == tmfbridge.DirectionNativeToTMF {
		qm = invert(qm)
	}
	for k, v := range params {
		if renamed, ok := qm[k]; ok {
			out[renamed] = v
		} else {
			out[k] = v
		}
	}
	return out
}

func asObject(payload any) (tmfbridge.Payload, error) {
	if payload == nil {
		return tmfbridge.Payload{}, nil
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, tmfbridge.NewTranslationError(
			fmt.Sprintf("payload must be a JSON object, got %T", payload))
	}
	return obj, nil
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// defaultMappings seeds the registry with the resources the gateway ships
// mappings for. Item maps one-to-one today; the backward hook normalizes
// numeric identifiers the native backend emits into strings.
func defaultMappings() map[string]*tmfbridge.ResourceMapping {
	return map[string]*tmfbridge.ResourceMapping{
		"Item": {
			Forward: map[string]string{
				"id":       "id",
				"name":     "name",
				"quantity": "quantity",
			},
			Backward: map[string]string{
				"id":       "id",
				"name":     "name",
				"quantity": "quantity",
			},
			QueryMapping: map[string]string{
				"name": "name",
			},
			BackwardHook: normalizeID,
		},
	}
}

func normalizeID(p tmfbridge.Payload) tmfbridge.Payload {
	if v, ok := p["id"]; ok {
		if _, isString := v.(string); !isString {
			p["id"] = fmt.Sprint(v)
		}
	}
	return p
}
