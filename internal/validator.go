package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/telavant/tmfbridge"
)

// Validator checks payloads against the schema derived for a resource
// from the current snapshot.
type Validator struct {
	cache   *SchemaCache
	metrics *Metrics
}

func NewValidator(cache *SchemaCache, metrics *Metrics) *Validator {
	return &Validator{cache: cache, metrics: metrics}
}

// Validate checks a payload for a resource and direction. The schema is
// located by case-insensitive match on component name or title; when no
// match exists the payload is validated against a permissive generic
// object schema, never rejected solely for lacking a specific schema.
// The structural check is the same for both directions; direction only
// selects where in the pipeline validation runs.
func (v *Validator) Validate(resource string, payload any, direction tmfbridge.Direction) tmfbridge.ValidationResult {
	schema := v.findSchema(resource)
	if schema == nil {
		schema = openapi3.NewObjectSchema()
	}

	if err := schema.VisitJSON(payload, openapi3.MultiErrors()); err != nil {
		result := tmfbridge.ValidationResult{
			Valid:  false,
			Errors: violationMessages(err),
		}
		if v.metrics != nil {
			v.metrics.IncValidationFailures()
		}
		return result
	}
	return tmfbridge.ValidationResult{Valid: true, Errors: []string{}}
}

// findSchema searches components.schemas for a case-insensitive match on
// the schema name or its title.
func (v *Validator) findSchema(resource string) *openapi3.Schema {
	doc := v.cache.Current().Doc
	if doc.Components == nil {
		return nil
	}
	for name, ref := range doc.Components.Schemas {
		if ref == nil || ref.Value == nil {
			continue
		}
		if strings.EqualFold(name, resource) || strings.EqualFold(ref.Value.Title, resource) {
			return ref.Value
		}
	}
	return nil
}

// violationMessages flattens validation failures into ordered
// "<path>: <reason>" strings.
func violationMessages(err error) []string {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		msgs := make([]string, 0, len(multi))
		for _, e := range multi {
			msgs = append(msgs, violationMessage(e))
		}
		return msgs
	}
	return []string{violationMessage(err)}
}

func violationMessage(err error) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		path := strings.Join(schemaErr.JSONPointer(), "/")
		if path == "" {
			return schemaErr.Error()
		}
		return fmt.Sprintf("%s: %s", path, schemaErr.Reason)
	}
	return err.Error()
}
