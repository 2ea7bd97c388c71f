package service

import (
	"context"
	"fmt"

	"github.com/Notifuse/extfields/internal/domain"
	"github.com/Notifuse/extfields/pkg/logger"
)

// MetadataLoader rebuilds entity metadata from the catalog. It never writes.
type MetadataLoader struct {
	fieldRepo domain.CustomFieldRepository
	registry  *domain.EntityRegistry
	logger    logger.Logger
}

func NewMetadataLoader(fieldRepo domain.CustomFieldRepository, registry *domain.EntityRegistry, logger logger.Logger) *MetadataLoader {
	return &MetadataLoader{
		fieldRepo: fieldRepo,
		registry:  registry,
		logger:    logger,
	}
}

// LoadActiveFields returns every active field in creation order. A catalog that does not exist
// yet yields an empty set.
func (l *MetadataLoader) LoadActiveFields(ctx context.Context) ([]*domain.FieldDefinition, error) {
	fields, err := l.fieldRepo.ListAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load active fields: %w", err)
	}
	if fields == nil {
		fields = []*domain.FieldDefinition{}
	}
	return fields, nil
}

// Load reads the version and the active fields in one snapshot and builds the model for it
func (l *MetadataLoader) Load(ctx context.Context) (*domain.Model, error) {
	version, fields, err := l.fieldRepo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog snapshot: %w", err)
	}
	return l.BuildModel(version, fields), nil
}

// BuildModel attaches fields to the registered entity types. Fields of entity types missing from
// the registry, or that cannot be attached, are skipped.
func (l *MetadataLoader) BuildModel(version int64, fields []*domain.FieldDefinition) *domain.Model {
	model := domain.NewModel(version)
	for _, entity := range l.registry.All() {
		model.Entities[entity.Name] = domain.NewEntityMetadata(entity)
	}

	for _, field := range fields {
		if field.IsDeleted {
			continue
		}

		entity, ok := model.Entities[field.EntityType]
		if !ok {
			l.logger.WithFields(map[string]interface{}{
				"field_id":    field.ID,
				"entity_type": field.EntityType,
				"column_name": field.ColumnName,
			}).Warn("Skipping extension field of unregistered entity type")
			continue
		}

		if err := entity.AddExtension(field); err != nil {
			l.logger.WithFields(map[string]interface{}{
				"field_id": field.ID,
				"error":    err.Error(),
			}).Warn("Skipping extension field")
		}
	}

	return model
}

// ResolveTable returns the host table mapping of an entity type
func (l *MetadataLoader) ResolveTable(entityType string) (domain.EntityType, error) {
	entity, ok := l.registry.Lookup(entityType)
	if !ok {
		return domain.EntityType{}, &domain.ErrNotFound{Entity: "entity type", ID: entityType}
	}
	return entity, nil
}
