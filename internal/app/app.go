package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"

	"github.com/Notifuse/extfields/config"
	"github.com/Notifuse/extfields/internal/database"
	"github.com/Notifuse/extfields/internal/domain"
	"github.com/Notifuse/extfields/internal/repository"
	"github.com/Notifuse/extfields/internal/service"
	"github.com/Notifuse/extfields/pkg/logger"
	"github.com/Notifuse/extfields/pkg/tracing"
)

// AppInterface defines the interface for the App
type AppInterface interface {
	Initialize() error
	Shutdown(ctx context.Context) error

	// Getters for app components
	GetConfig() *config.Config
	GetLogger() logger.Logger
	GetDB() *sql.DB
	GetRegistry() *domain.EntityRegistry

	GetCustomFieldService() *service.CustomFieldService
	GetModelCache() *service.ModelCache
	GetRecordService() *service.RecordService
	GetReconciler() *service.SchemaReconciler

	// Methods for initialization steps
	InitTracing() error
	InitDB() error
	InitRepositories() error
	InitRegistry() error
	InitServices() error
}

// App encapsulates the application dependencies and configuration
type App struct {
	config   *config.Config
	logger   logger.Logger
	db       *sql.DB
	dialect  database.Dialect
	registry *domain.EntityRegistry

	// stops the periodic pool stats recording, set when tracing is on
	stopDBStats func()

	// Repositories
	fieldRepo   domain.CustomFieldRepository
	versionRepo domain.SchemaVersionRepository
	columnRepo  domain.ColumnRepository
	recordRepo  domain.EntityRecordRepository

	// Services
	customFieldService *service.CustomFieldService
	metadataLoader     *service.MetadataLoader
	modelCache         *service.ModelCache
	recordService      *service.RecordService
	reconciler         *service.SchemaReconciler
}

// AppOption defines a functional option for configuring the App
type AppOption func(*App)

// WithMockDB configures the app to use a mock database
func WithMockDB(db *sql.DB) AppOption {
	return func(a *App) {
		a.db = db
	}
}

// WithLogger sets a custom logger
func WithLogger(logger logger.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// WithRegistry skips host table introspection and uses the given entity types as they are
func WithRegistry(registry *domain.EntityRegistry) AppOption {
	return func(a *App) {
		a.registry = registry
	}
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, opts ...AppOption) AppInterface {
	app := &App{
		config:  cfg,
		logger:  logger.NewLoggerWithLevel(cfg.LogLevel),
		dialect: database.DialectFor(cfg.Database.Driver),
	}

	// Apply options
	for _, opt := range opts {
		opt(app)
	}

	return app
}

// InitTracing initializes OpenCensus tracing and registers the catalog views
func (a *App) InitTracing() error {
	tracingConfig := &a.config.Tracing

	if err := tracing.InitTracing(tracingConfig, a.logger); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if !tracingConfig.Enabled {
		return nil
	}

	if err := tracing.RegisterViews(service.Views...); err != nil {
		return fmt.Errorf("failed to register catalog views: %w", err)
	}

	a.logger.WithField("trace_exporter", tracingConfig.TraceExporter).
		WithField("metrics_exporter", tracingConfig.MetricsExporter).
		WithField("sampling_rate", tracingConfig.SamplingProbability).
		Info("Tracing initialized successfully")

	return nil
}

// InitDB opens the database and creates the catalog tables when missing
func (a *App) InitDB() error {
	if a.db != nil {
		return nil
	}

	dbConfig := &a.config.Database

	if a.dialect == database.DialectSQLite {
		a.logger.WithField("path", dbConfig.Path).Info("Opening SQLite database")
	} else {
		password := dbConfig.Password
		maskedPassword := ""
		if len(password) > 0 {
			maskedPassword = fmt.Sprintf("%c...%c", password[0], password[len(password)-1])
		}
		a.logger.Info(fmt.Sprintf("Connecting to database %s:%d, user %s, sslmode %s, password: %s, dbname: %s",
			dbConfig.Host, dbConfig.Port, dbConfig.User, dbConfig.SSLMode, maskedPassword, dbConfig.DBName))

		driverName := dbConfig.Driver
		if driverName == "" {
			driverName = config.DriverPostgres
		}
		if err := database.EnsureSystemDatabaseExists(driverName, database.GetPostgresDSN(dbConfig), dbConfig.DBName); err != nil {
			a.logger.Error(err.Error())
			return fmt.Errorf("failed to ensure system database exists: %w", err)
		}
		a.logger.Info("System database check completed")
	}

	db, err := database.Open(dbConfig, a.config.Tracing.Enabled)
	if err != nil {
		return err
	}
	if a.config.Tracing.Enabled {
		a.stopDBStats = ocsql.RecordStats(db, 5*time.Second)
		a.logger.Info("Database driver wrapped with OpenCensus tracing")
	}

	if err := database.InitializeDatabase(context.Background(), db, a.config.DefaultActor); err != nil {
		if a.stopDBStats != nil {
			a.stopDBStats()
			a.stopDBStats = nil
		}
		db.Close()
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	a.db = db
	return nil
}

// InitRepositories initializes all repositories
func (a *App) InitRepositories() error {
	if a.db == nil {
		return fmt.Errorf("database must be initialized before repositories")
	}

	a.fieldRepo = repository.NewCustomFieldRepository(a.db, a.dialect)
	a.versionRepo = repository.NewSchemaVersionRepository(a.db)
	a.columnRepo = repository.NewColumnRepository(a.db, a.dialect)
	a.recordRepo = repository.NewEntityRecordRepository(a.db)

	return nil
}

// InitRegistry builds the entity registry from the configured mappings. The core columns of each
// host table are read from the store: every column without the extension prefix.
func (a *App) InitRegistry() error {
	if a.registry != nil {
		return nil
	}
	if a.columnRepo == nil {
		return fmt.Errorf("repositories must be initialized before the entity registry")
	}

	ctx := context.Background()
	entities := make([]domain.EntityType, 0, len(a.config.Entities))

	for _, mapping := range a.config.Entities {
		entity := domain.EntityType{
			Name:       mapping.Name,
			Schema:     mapping.Schema,
			Table:      mapping.Table,
			PrimaryKey: mapping.PrimaryKey,
		}
		// SQLite has no schemas beyond the attached database
		if a.dialect == database.DialectSQLite {
			entity.Schema = ""
		} else if entity.Schema == "" {
			entity.Schema = a.config.Database.Schema
		}

		columns, err := a.columnRepo.ListColumns(ctx, entity)
		switch {
		case err == nil:
			for _, column := range columns {
				if !domain.IsExtensionColumn(column.Name) {
					entity.Columns = append(entity.Columns, column.Name)
				}
			}
		case domain.IsNotFound(err):
			a.logger.WithFields(map[string]interface{}{
				"entity_type": entity.Name,
				"table":       entity.QualifiedName(),
			}).Warn("Host table not found, only the primary key is known")
		default:
			return fmt.Errorf("failed to introspect %s: %w", entity.QualifiedName(), err)
		}

		entities = append(entities, entity)
	}

	registry, err := domain.NewEntityRegistry(entities...)
	if err != nil {
		return fmt.Errorf("failed to build entity registry: %w", err)
	}

	a.registry = registry
	a.logger.WithField("entity_types", len(entities)).Info("Entity registry built")
	return nil
}

// InitServices initializes all services
func (a *App) InitServices() error {
	if a.fieldRepo == nil || a.registry == nil {
		return fmt.Errorf("repositories and registry must be initialized before services")
	}

	a.customFieldService = service.NewCustomFieldService(service.CustomFieldServiceConfig{
		FieldRepository:   a.fieldRepo,
		VersionRepository: a.versionRepo,
		ColumnRepository:  a.columnRepo,
		Registry:          a.registry,
		Logger:            a.logger,
		DefaultActor:      a.config.DefaultActor,
	})

	a.metadataLoader = service.NewMetadataLoader(a.fieldRepo, a.registry, a.logger)
	a.modelCache = service.NewModelCache(a.versionRepo, a.metadataLoader, a.logger)
	a.recordService = service.NewRecordService(a.modelCache, a.recordRepo, a.logger)
	a.reconciler = service.NewSchemaReconciler(a.fieldRepo, a.versionRepo, a.columnRepo, a.registry, a.logger, a.config.DefaultActor)

	return nil
}

// Initialize sets up all components of the application
func (a *App) Initialize() error {
	a.logger.WithField("version", a.config.Version).Info("Starting extension field catalog")

	if err := a.InitTracing(); err != nil {
		return err
	}

	if err := a.InitDB(); err != nil {
		return err
	}

	if err := a.InitRepositories(); err != nil {
		return err
	}

	if err := a.InitRegistry(); err != nil {
		return err
	}

	if err := a.InitServices(); err != nil {
		return err
	}

	a.logger.Info("Application successfully initialized")
	return nil
}

// Shutdown releases the database connection
func (a *App) Shutdown(ctx context.Context) error {
	if a.db == nil {
		return nil
	}

	if a.stopDBStats != nil {
		a.stopDBStats()
		a.stopDBStats = nil
	}

	a.logger.Debug("Closing database connection")
	if err := a.db.Close(); err != nil {
		a.logger.WithField("error", err.Error()).Error("Error closing database connection")
		return err
	}
	a.db = nil

	return nil
}

// GetConfig returns the app's configuration
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetLogger returns the app's logger
func (a *App) GetLogger() logger.Logger {
	return a.logger
}

// GetDB returns the app's database connection
func (a *App) GetDB() *sql.DB {
	return a.db
}

// GetRegistry returns the entity registry
func (a *App) GetRegistry() *domain.EntityRegistry {
	return a.registry
}

func (a *App) GetCustomFieldService() *service.CustomFieldService {
	return a.customFieldService
}

func (a *App) GetModelCache() *service.ModelCache {
	return a.modelCache
}

func (a *App) GetRecordService() *service.RecordService {
	return a.recordService
}

func (a *App) GetReconciler() *service.SchemaReconciler {
	return a.reconciler
}
