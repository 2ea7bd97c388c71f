package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Notifuse/extfields/internal/domain"
	"github.com/Notifuse/extfields/pkg/logger"
	"github.com/Notifuse/extfields/pkg/tracing"
)

// DefaultActor is recorded when a mutation names no actor
const DefaultActor = "system"

// CustomFieldService provisions extension fields: it validates the request, derives the column,
// and commits the catalog row, the DDL and the version bump in one transaction.
type CustomFieldService struct {
	fieldRepo    domain.CustomFieldRepository
	versionRepo  domain.SchemaVersionRepository
	columnRepo   domain.ColumnRepository
	loader       *MetadataLoader
	logger       logger.Logger
	tracer       tracing.Tracer
	defaultActor string
	now          func() time.Time
}

type CustomFieldServiceConfig struct {
	FieldRepository   domain.CustomFieldRepository
	VersionRepository domain.SchemaVersionRepository
	ColumnRepository  domain.ColumnRepository
	Registry          *domain.EntityRegistry
	Logger            logger.Logger
	Tracer            tracing.Tracer
	DefaultActor      string
	Clock             func() time.Time
}

func NewCustomFieldService(cfg CustomFieldServiceConfig) *CustomFieldService {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracing.GetTracer()
	}

	actor := cfg.DefaultActor
	if actor == "" {
		actor = DefaultActor
	}

	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &CustomFieldService{
		fieldRepo:    cfg.FieldRepository,
		versionRepo:  cfg.VersionRepository,
		columnRepo:   cfg.ColumnRepository,
		loader:       NewMetadataLoader(cfg.FieldRepository, cfg.Registry, cfg.Logger),
		logger:       cfg.Logger,
		tracer:       tracer,
		defaultActor: actor,
		now:          clock,
	}
}

var _ domain.CustomFieldService = (*CustomFieldService)(nil)

func (s *CustomFieldService) actor(actor string) string {
	if actor == "" {
		return s.defaultActor
	}
	return actor
}

// CreateField adds an extension column to an entity's table and registers it in the catalog
func (s *CustomFieldService) CreateField(ctx context.Context, req *domain.CreateFieldRequest) (field *domain.FieldDefinition, err error) {
	ctx, span := s.tracer.StartServiceSpan(ctx, "CustomFieldService", "CreateField")
	defer func() { s.tracer.EndSpan(span, err) }()

	if req == nil {
		return nil, domain.NewValidationError("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	columnName := domain.GenerateColumnName(req.FieldName)
	s.tracer.AddAttribute(ctx, "entity_type", req.EntityType)
	s.tracer.AddAttribute(ctx, "column_name", columnName)

	// Every row that ever used the column counts, deleted ones included: the physical column
	// survives a soft delete and still holds the old values.
	existing, err := s.fieldRepo.FindByColumn(ctx, req.EntityType, columnName)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing fields: %w", err)
	}
	for _, other := range existing {
		if !other.IsDeleted {
			return nil, &domain.ConflictError{
				EntityType: req.EntityType,
				ColumnName: columnName,
				Message:    fmt.Sprintf("field %q already exists for %s as column %s", other.FieldName, req.EntityType, columnName),
			}
		}
	}
	if len(existing) > 0 {
		return nil, &domain.ConflictError{
			EntityType: req.EntityType,
			ColumnName: columnName,
			Message:    fmt.Sprintf("column %s of %s is retired and cannot be reused", columnName, req.EntityType),
		}
	}

	entity, err := s.loader.ResolveTable(req.EntityType)
	if err != nil {
		return nil, err
	}
	for _, core := range entity.Columns {
		if core == columnName {
			return nil, &domain.ConflictError{EntityType: req.EntityType, ColumnName: columnName}
		}
	}

	actor := s.actor(req.Actor)
	now := s.now()

	field = &domain.FieldDefinition{
		EntityType:   req.EntityType,
		FieldName:    req.FieldName,
		ColumnName:   columnName,
		DataType:     req.DataType,
		MaxLength:    req.MaxLength,
		IsRequired:   req.IsRequired,
		DefaultValue: req.DefaultValue,
		DisplayName:  req.DisplayName,
		Description:  req.Description,
		CreatedAt:    now,
		CreatedBy:    &actor,
	}
	if field.DisplayName == nil {
		displayName := req.FieldName
		field.DisplayName = &displayName
	}

	var version int64
	err = s.fieldRepo.WithTransaction(ctx, func(tx *sql.Tx) error {
		// The catalog insert goes first so the active-column unique index settles concurrent creates
		// before any DDL runs.
		if err := s.fieldRepo.CreateTx(ctx, tx, field); err != nil {
			return err
		}

		if err := s.columnRepo.AddColumnTx(ctx, tx, entity, columnName, field.ColumnType()); err != nil {
			return err
		}

		v, err := s.versionRepo.IncrementTx(ctx, tx, actor, now)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	recordMutation(ctx, "create", req.EntityType, err)
	if err != nil {
		if domain.IsConflict(err) {
			return nil, err
		}
		s.logger.WithFields(map[string]interface{}{
			"entity_type": req.EntityType,
			"column_name": columnName,
			"error":       err.Error(),
		}).Error("Failed to create extension field")
		return nil, err
	}

	s.tracer.AddAttribute(ctx, "schema_version", version)
	s.logger.WithFields(map[string]interface{}{
		"field_id":       field.ID,
		"entity_type":    field.EntityType,
		"column_name":    field.ColumnName,
		"data_type":      string(field.DataType),
		"schema_version": version,
		"actor":          actor,
	}).Info("Extension field created")

	return field, nil
}

// DeleteField soft-deletes an active field. The physical column is kept.
func (s *CustomFieldService) DeleteField(ctx context.Context, fieldID string, actor string) (err error) {
	ctx, span := s.tracer.StartServiceSpan(ctx, "CustomFieldService", "DeleteField")
	defer func() { s.tracer.EndSpan(span, err) }()
	s.tracer.AddAttribute(ctx, "field_id", fieldID)

	actor = s.actor(actor)
	now := s.now()

	var field *domain.FieldDefinition
	var version int64
	err = s.fieldRepo.WithTransaction(ctx, func(tx *sql.Tx) error {
		f, err := s.fieldRepo.GetActiveByIDTx(ctx, tx, fieldID)
		if err != nil {
			return err
		}
		field = f

		if err := s.fieldRepo.SoftDeleteTx(ctx, tx, fieldID, now); err != nil {
			return err
		}

		v, err := s.versionRepo.IncrementTx(ctx, tx, actor, now)
		if err != nil {
			return err
		}
		version = v
		return nil
	})

	entityType := ""
	if field != nil {
		entityType = field.EntityType
	}
	recordMutation(ctx, "delete", entityType, err)

	if err != nil {
		if !domain.IsNotFound(err) {
			s.logger.WithFields(map[string]interface{}{
				"field_id": fieldID,
				"error":    err.Error(),
			}).Error("Failed to delete extension field")
		}
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"field_id":       fieldID,
		"entity_type":    field.EntityType,
		"column_name":    field.ColumnName,
		"schema_version": version,
		"actor":          actor,
	}).Info("Extension field deleted")

	return nil
}

// ListFields returns the fields of an entity type in creation order. An empty entity type lists
// the fields of every entity type.
func (s *CustomFieldService) ListFields(ctx context.Context, entityType string, includeDeleted bool) ([]*domain.FieldDefinition, error) {
	ctx, span := s.tracer.StartServiceSpan(ctx, "CustomFieldService", "ListFields")
	defer span.End()
	s.tracer.AddAttribute(ctx, "entity_type", entityType)

	var fields []*domain.FieldDefinition
	var err error
	switch {
	case entityType != "":
		fields, err = s.fieldRepo.List(ctx, entityType, includeDeleted)
	case includeDeleted:
		fields, err = s.fieldRepo.ListAll(ctx, true)
	default:
		fields, err = s.loader.LoadActiveFields(ctx)
	}
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}

	return fields, nil
}

// GetSchemaVersion returns the current schema version
func (s *CustomFieldService) GetSchemaVersion(ctx context.Context) (int64, error) {
	version, err := s.versionRepo.GetVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
