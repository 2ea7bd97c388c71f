package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Notifuse/extfields/internal/domain"
	"github.com/Notifuse/extfields/pkg/logger"
	"github.com/Notifuse/extfields/pkg/tracing"
)

// ModelLoader builds a model from the current catalog
type ModelLoader interface {
	Load(ctx context.Context) (*domain.Model, error)
}

// ModelCache keeps the model of the last observed schema version for the lifetime of the process.
// Every Current call reads the version counter and reloads when it differs from the cached model.
// The model is replaced wholesale, never patched.
type ModelCache struct {
	versions domain.SchemaVersionRepository
	loader   ModelLoader
	logger   logger.Logger

	mu    sync.RWMutex
	model *domain.Model
	group singleflight.Group
}

func NewModelCache(versions domain.SchemaVersionRepository, loader ModelLoader, logger logger.Logger) *ModelCache {
	return &ModelCache{
		versions: versions,
		loader:   loader,
		logger:   logger,
	}
}

// Current returns a model at least as new as the version counter at call time
func (c *ModelCache) Current(ctx context.Context) (*domain.Model, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "ModelCache", "Current")
	defer span.End()

	version, err := c.versions.GetVersion(ctx)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	tracing.AddAttribute(ctx, "schema_version", version)

	if model := c.Cached(); model != nil && model.Version == version {
		return model, nil
	}

	// Callers racing on the same version share one reload. The load must not die with the
	// caller that happened to start it.
	loadCtx := context.WithoutCancel(ctx)
	result, err, _ := c.group.Do(fmt.Sprintf("v%d", version), func() (interface{}, error) {
		return c.reload(loadCtx, version)
	})
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, err
	}

	return result.(*domain.Model), nil
}

func (c *ModelCache) reload(ctx context.Context, observed int64) (*domain.Model, error) {
	started := time.Now()

	model, err := c.loader.Load(ctx)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"schema_version": observed,
			"error":          err.Error(),
		}).Error("Failed to reload metadata model")
		return nil, err
	}
	recordReload(ctx, started)

	previous := c.store(model)

	fields := map[string]interface{}{
		"schema_version": model.Version,
		"field_count":    model.FieldCount(),
		"duration_ms":    time.Since(started).Milliseconds(),
	}
	if previous != nil {
		fields["previous_version"] = previous.Version
	}
	c.logger.WithFields(fields).Info("Metadata model reloaded")

	return model, nil
}

// store swaps in model unless a newer one is already cached and returns what was cached before
func (c *ModelCache) store(model *domain.Model) *domain.Model {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.model
	if previous == nil || model.Version >= previous.Version {
		c.model = model
	}
	return previous
}

// Cached returns the cached model without consulting the store, or nil
func (c *ModelCache) Cached() *domain.Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Invalidate drops the cached model so the next Current call reloads
func (c *ModelCache) Invalidate() {
	c.mu.Lock()
	c.model = nil
	c.mu.Unlock()
}
