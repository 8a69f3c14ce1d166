package internal

import (
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/telavant/tmfbridge"
)

// CapabilityMatcher decides whether a path segment belongs to a resource.
// Real-world documents frequently use plural path segments for singular
// schema names, so the strategy is pluggable.
type CapabilityMatcher func(resource, pathSegment string) bool

// DefaultCapabilityMatcher matches the schema name case-insensitively and
// also accepts the naive plural form.
func DefaultCapabilityMatcher(resource, pathSegment string) bool {
	return strings.EqualFold(pathSegment, resource) ||
		strings.EqualFold(pathSegment, resource+"s")
}

// CatalogueBuilder derives the resource catalogue from the current snapshot.
type CatalogueBuilder struct {
	cache   *SchemaCache
	matcher CapabilityMatcher
}

func NewCatalogueBuilder(cache *SchemaCache, matcher CapabilityMatcher) *CatalogueBuilder {
	if matcher == nil {
		matcher = DefaultCapabilityMatcher
	}
	return &CatalogueBuilder{cache: cache, matcher: matcher}
}

// Build produces one entry per components.schemas entry, in document
// order, so repeated calls against an unchanged schema are deterministic.
func (b *CatalogueBuilder) Build() []tmfbridge.CatalogueEntry {
	snap := b.cache.Current()
	doc := snap.Doc

	version := "unknown"
	if doc.Info != nil && doc.Info.Version != "" {
		version = doc.Info.Version
	}
	generated := tmfbridge.GeneratedFrom{
		OpenAPIVersion: version,
		Origin:         snap.Meta.Origin,
		Timestamp:      time.Now().UTC(),
	}

	entries := make([]tmfbridge.CatalogueEntry, 0, len(snap.Meta.ComponentNames))
	if doc.Components == nil {
		return entries
	}
	for _, name := range snap.Meta.ComponentNames {
		ref, ok := doc.Components.Schemas[name]
		if !ok || ref == nil || ref.Value == nil {
			continue
		}
		schema := ref.Value

		entry := tmfbridge.CatalogueEntry{
			Resource:      name,
			Description:   schema.Description,
			Attributes:    buildAttributes(schema),
			KeyAttributes: buildKeyAttributes(schema),
			Capabilities:  b.buildCapabilities(doc, name),
			GeneratedFrom: generated,
		}
		entries = append(entries, entry)
	}
	return entries
}

func buildAttributes(schema *openapi3.Schema) map[string]tmfbridge.AttributeSpec {
	attrs := make(map[string]tmfbridge.AttributeSpec, len(schema.Properties))
	for propName, propRef := range schema.Properties {
		attrs[propName] = tmfbridge.AttributeSpec{
			Type:     attributeType(propRef),
			Required: containsString(schema.Required, propName),
		}
	}
	return attrs
}

// buildKeyAttributes returns the property literally named "id" if present,
// unioned with all required properties. An empty set is valid.
func buildKeyAttributes(schema *openapi3.Schema) []string {
	set := make(map[string]struct{})
	if _, ok := schema.Properties["id"]; ok {
		set["id"] = struct{}{}
	}
	for _, req := range schema.Required {
		set[req] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildCapabilities infers CRUD support from paths. A collection path with
// GET means read, with POST means create; an item path (resource segment
// plus a path parameter) with PATCH or PUT means update, with DELETE means
// delete. No matching paths means no guessing: all four stay false.
func (b *CatalogueBuilder) buildCapabilities(doc *openapi3.T, resource string) tmfbridge.Capabilities {
	var caps tmfbridge.Capabilities
	if doc.Paths == nil {
		return caps
	}
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		segments := strings.Split(strings.Trim(path, "/"), "/")
		if len(segments) == 0 || !b.matcher(resource, segments[0]) {
			continue
		}
		switch {
		case len(segments) == 1:
			if item.Get != nil {
				caps.Read = true
			}
			if item.Post != nil {
				caps.Create = true
			}
		case len(segments) == 2 && strings.HasPrefix(segments[1], "{"):
			if item.Patch != nil || item.Put != nil {
				caps.Update = true
			}
			if item.Delete != nil {
				caps.Delete = true
			}
		}
	}
	return caps
}

func attributeType(ref *openapi3.SchemaRef) string {
	if ref == nil {
		return "object"
	}
	if ref.Value != nil && ref.Value.Type != nil {
		if types := ref.Value.Type.Slice(); len(types) > 0 {
			return types[0]
		}
	}
	// $ref or untyped schemas surface as plain objects
	return "object"
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
