package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/telavant/tmfbridge"
)

const testSchemaJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Native Inventory API", "version": "2.4.0"},
  "paths": {
    "/Item": {
      "get": {"responses": {"200": {"description": "ok"}}},
      "post": {"responses": {"201": {"description": "created"}}}
    },
    "/Item/{itemId}": {
      "get": {
        "parameters": [{"name": "itemId", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "ok"}}
      },
      "patch": {
        "parameters": [{"name": "itemId", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "ok"}}
      },
      "delete": {
        "parameters": [{"name": "itemId", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"204": {"description": "deleted"}}
      }
    }
  },
  "components": {
    "schemas": {
      "Item": {
        "type": "object",
        "description": "A stocked inventory item.",
        "required": ["id", "name"],
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string"},
          "quantity": {"type": "integer"}
        }
      },
      "Category": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string"},
          "label": {"type": "string"}
        }
      }
    }
  }
}`

// newTestCache builds a cache around a snapshot parsed from raw, without
// going through source resolution.
func newTestCache(t *testing.T, raw []byte, origin tmfbridge.SchemaOrigin) *SchemaCache {
	t.Helper()
	snap, err := buildSnapshot(raw, origin, nil)
	require.NoError(t, err)
	c := &SchemaCache{}
	c.current.Store(snap)
	return c
}
