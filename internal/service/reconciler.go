package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Notifuse/extfields/internal/domain"
	"github.com/Notifuse/extfields/pkg/logger"
	"github.com/Notifuse/extfields/pkg/tracing"
)

// scanConcurrency bounds the introspection queries in flight during a scan
const scanConcurrency = 4

// SchemaReconciler finds drift between the catalog and the physical tables: extension columns
// with no catalog row (left behind by DDL that outlived its transaction) and active fields whose
// column is gone.
type SchemaReconciler struct {
	fieldRepo    domain.CustomFieldRepository
	versionRepo  domain.SchemaVersionRepository
	columnRepo   domain.ColumnRepository
	registry     *domain.EntityRegistry
	logger       logger.Logger
	defaultActor string
	now          func() time.Time
}

func NewSchemaReconciler(
	fieldRepo domain.CustomFieldRepository,
	versionRepo domain.SchemaVersionRepository,
	columnRepo domain.ColumnRepository,
	registry *domain.EntityRegistry,
	logger logger.Logger,
	defaultActor string,
) *SchemaReconciler {
	if defaultActor == "" {
		defaultActor = DefaultActor
	}
	return &SchemaReconciler{
		fieldRepo:    fieldRepo,
		versionRepo:  versionRepo,
		columnRepo:   columnRepo,
		registry:     registry,
		logger:       logger,
		defaultActor: defaultActor,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Scan compares every registered table with the catalog
func (r *SchemaReconciler) Scan(ctx context.Context) (report *domain.ReconcileReport, err error) {
	ctx, span := tracing.StartServiceSpan(ctx, "SchemaReconciler", "Scan")
	defer func() { tracing.EndSpan(span, err) }()

	version, err := r.versionRepo.GetVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	fields, err := r.fieldRepo.ListAll(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}

	// tracked holds every column any row ever claimed, active holds the live fields
	tracked := make(map[string]map[string]bool)
	active := make(map[string][]*domain.FieldDefinition)
	for _, field := range fields {
		if tracked[field.EntityType] == nil {
			tracked[field.EntityType] = make(map[string]bool)
		}
		tracked[field.EntityType][field.ColumnName] = true
		if !field.IsDeleted {
			active[field.EntityType] = append(active[field.EntityType], field)
		}
	}

	entities := r.registry.All()
	physical := make([][]domain.PhysicalColumn, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for i, entity := range entities {
		g.Go(func() error {
			columns, err := r.columnRepo.ListColumns(gctx, entity)
			if err != nil {
				if domain.IsNotFound(err) {
					r.logger.WithField("entity_type", entity.Name).Warn("Host table not found during scan")
					return nil
				}
				return err
			}
			physical[i] = columns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report = &domain.ReconcileReport{
		SchemaVersion: version,
		Orphans:       []domain.OrphanColumn{},
		Missing:       []*domain.FieldDefinition{},
	}

	for i, entity := range entities {
		present := make(map[string]bool, len(physical[i]))
		for _, column := range physical[i] {
			present[column.Name] = true

			if !domain.IsExtensionColumn(column.Name) || tracked[entity.Name][column.Name] || isCore(entity, column.Name) {
				continue
			}

			orphan := domain.OrphanColumn{
				EntityType:   entity.Name,
				ColumnName:   column.Name,
				PhysicalType: column.Type,
				Nullable:     column.Nullable,
			}
			if dataType, maxLength, ok := domain.InferDataType(column.Type); ok {
				orphan.DataType = dataType
				orphan.MaxLength = maxLength
				orphan.Adoptable = true
			}
			report.Orphans = append(report.Orphans, orphan)
		}

		for _, field := range active[entity.Name] {
			if !present[field.ColumnName] {
				report.Missing = append(report.Missing, field)
			}
		}
	}

	sort.SliceStable(report.Orphans, func(i, j int) bool {
		if report.Orphans[i].EntityType != report.Orphans[j].EntityType {
			return report.Orphans[i].EntityType < report.Orphans[j].EntityType
		}
		return report.Orphans[i].ColumnName < report.Orphans[j].ColumnName
	})

	if !report.Clean() {
		r.logger.WithFields(map[string]interface{}{
			"schema_version": version,
			"orphans":        len(report.Orphans),
			"missing":        len(report.Missing),
		}).Warn("Schema drift detected")
	}

	return report, nil
}

func isCore(entity domain.EntityType, column string) bool {
	for _, core := range entity.Columns {
		if core == column {
			return true
		}
	}
	return false
}

// Adopt registers an orphan column in the catalog without DDL, as an active field or directly
// retired. Either way the version is bumped.
func (r *SchemaReconciler) Adopt(ctx context.Context, req *domain.AdoptRequest) (field *domain.FieldDefinition, err error) {
	ctx, span := tracing.StartServiceSpan(ctx, "SchemaReconciler", "Adopt")
	defer func() { tracing.EndSpan(span, err) }()

	if req == nil {
		return nil, domain.NewValidationError("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	entity, ok := r.registry.Lookup(req.EntityType)
	if !ok {
		return nil, &domain.ErrNotFound{Entity: "entity type", ID: req.EntityType}
	}

	existing, err := r.fieldRepo.FindByColumn(ctx, req.EntityType, req.ColumnName)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing fields: %w", err)
	}
	if len(existing) > 0 {
		return nil, &domain.ConflictError{
			EntityType: req.EntityType,
			ColumnName: req.ColumnName,
			Message:    fmt.Sprintf("column %s of %s is already tracked by the catalog", req.ColumnName, req.EntityType),
		}
	}

	columns, err := r.columnRepo.ListColumns(ctx, entity)
	if err != nil {
		return nil, err
	}

	var column *domain.PhysicalColumn
	for i := range columns {
		if columns[i].Name == req.ColumnName {
			column = &columns[i]
			break
		}
	}
	if column == nil {
		return nil, &domain.ErrNotFound{Entity: "column", ID: entity.QualifiedName() + "." + req.ColumnName}
	}

	dataType, maxLength, ok := domain.InferDataType(column.Type)
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("column %s has type %s which no extension field type maps to", req.ColumnName, column.Type))
	}

	actor := req.Actor
	if actor == "" {
		actor = r.defaultActor
	}
	now := r.now()
	fieldName := domain.FieldNameFromColumn(req.ColumnName)

	field = &domain.FieldDefinition{
		EntityType:  req.EntityType,
		FieldName:   fieldName,
		ColumnName:  req.ColumnName,
		DataType:    dataType,
		MaxLength:   maxLength,
		IsRequired:  !column.Nullable,
		DisplayName: &fieldName,
		CreatedAt:   now,
		CreatedBy:   &actor,
		IsDeleted:   req.Retire,
	}
	if req.Retire {
		field.DeletedAt = &now
	}

	var version int64
	err = r.fieldRepo.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.fieldRepo.CreateTx(ctx, tx, field); err != nil {
			return err
		}
		v, err := r.versionRepo.IncrementTx(ctx, tx, actor, now)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	recordMutation(ctx, "adopt", req.EntityType, err)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(map[string]interface{}{
		"field_id":       field.ID,
		"entity_type":    field.EntityType,
		"column_name":    field.ColumnName,
		"retired":        req.Retire,
		"schema_version": version,
		"actor":          actor,
	}).Info("Orphan column adopted")

	return field, nil
}
