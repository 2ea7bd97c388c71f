package service

import (
	"context"
	"fmt"

	"github.com/Notifuse/extfields/internal/domain"
	"github.com/Notifuse/extfields/pkg/logger"
	"github.com/Notifuse/extfields/pkg/tracing"
)

// RecordService opens units of work over entity records
type RecordService struct {
	cache   *ModelCache
	records domain.EntityRecordRepository
	logger  logger.Logger
}

func NewRecordService(cache *ModelCache, records domain.EntityRecordRepository, logger logger.Logger) *RecordService {
	return &RecordService{
		cache:   cache,
		records: records,
		logger:  logger,
	}
}

// Begin starts a unit of work. The session keeps the model current at this point for its whole
// life.
func (s *RecordService) Begin(ctx context.Context) (*Session, error) {
	model, err := s.cache.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin session: %w", err)
	}

	return &Session{
		ExtensionAccessor: NewExtensionAccessor(model),
		records:           s.records,
	}, nil
}

// Session is one unit of work bound to a single model
type Session struct {
	*ExtensionAccessor
	records domain.EntityRecordRepository
}

func (s *Session) entity(entityType string) (*domain.EntityMetadata, error) {
	entity, ok := s.Model().Entity(entityType)
	if !ok {
		return nil, &domain.ErrNotFound{Entity: "entity type", ID: entityType}
	}
	return entity, nil
}

// Load reads a record with its core and extension columns
func (s *Session) Load(ctx context.Context, entityType string, id interface{}) (*domain.Record, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "Session", "Load")
	defer span.End()
	tracing.AddAttribute(ctx, "entity_type", entityType)

	entity, err := s.entity(entityType)
	if err != nil {
		return nil, err
	}

	record, err := s.records.Get(ctx, entity, id)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, err
	}
	return record, nil
}

// New creates an unsaved record. id may be nil when the table generates keys.
func (s *Session) New(entityType string, id interface{}) (*domain.Record, error) {
	if _, err := s.entity(entityType); err != nil {
		return nil, err
	}
	return domain.NewRecord(entityType, id), nil
}

// Insert writes a new record. Extension columns left unset take their column default.
func (s *Session) Insert(ctx context.Context, record *domain.Record) error {
	ctx, span := tracing.StartServiceSpan(ctx, "Session", "Insert")
	defer span.End()

	entity, err := s.entity(record.EntityType)
	if err != nil {
		return err
	}

	if err := s.checkRequired(entity, record); err != nil {
		return err
	}

	if err := s.records.Insert(ctx, entity, record); err != nil {
		tracing.MarkSpanError(ctx, err)
		return err
	}
	return nil
}

// Save writes the staged changes of an existing record
func (s *Session) Save(ctx context.Context, record *domain.Record) error {
	ctx, span := tracing.StartServiceSpan(ctx, "Session", "Save")
	defer span.End()

	entity, err := s.entity(record.EntityType)
	if err != nil {
		return err
	}

	if err := s.records.Update(ctx, entity, record); err != nil {
		tracing.MarkSpanError(ctx, err)
		return err
	}
	return nil
}

// checkRequired rejects inserts that leave a NOT NULL extension column without value or default
func (s *Session) checkRequired(entity *domain.EntityMetadata, record *domain.Record) error {
	for _, property := range entity.Extensions {
		field := property.Field
		if !field.IsRequired || field.DefaultValue != nil {
			continue
		}
		if value, ok := record.Value(field.ColumnName); !ok || value == nil {
			return domain.NewValidationError(fmt.Sprintf("%s is required", field.ColumnName))
		}
	}
	return nil
}
