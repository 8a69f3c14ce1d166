package internal

import (
	"context"
	"sync/atomic"

	"github.com/telavant/tmfbridge"
	"go.uber.org/zap"
)

// SchemaCache holds the currently active snapshot. Installation is an
// atomic pointer swap: readers always see either the old or the new
// snapshot in full, and reload never blocks readers.
type SchemaCache struct {
	source  *SchemaSource
	current atomic.Pointer[tmfbridge.SchemaSnapshot]
}

// NewSchemaCache resolves the initial snapshot. Failure here is fatal at
// startup: running with no schema at all is not tolerated.
func NewSchemaCache(ctx context.Context, source *SchemaSource) (*SchemaCache, error) {
	snap, err := source.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	c := &SchemaCache{source: source}
	c.current.Store(snap)
	zap.S().Infow("schema loaded",
		"origin", snap.Meta.Origin,
		"components", len(snap.Meta.ComponentNames))
	return c, nil
}

// Current returns the active snapshot. The returned value is immutable.
func (c *SchemaCache) Current() *tmfbridge.SchemaSnapshot {
	return c.current.Load()
}

// Reload re-runs resolution and installs the result when it changed. A
// failed reload keeps the previous snapshot and reports the error.
func (c *SchemaCache) Reload(ctx context.Context) (*tmfbridge.SchemaSnapshot, bool, error) {
	snap, changed, err := c.source.Reload(ctx, c.Current())
	if changed && snap != nil {
		c.current.Store(snap)
		zap.S().Infow("schema reloaded",
			"origin", snap.Meta.Origin,
			"components", len(snap.Meta.ComponentNames))
	}
	return snap, changed, err
}
