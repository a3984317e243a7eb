// Package container provides dependency injection and lifecycle management
// for the branch forms service.
package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/branch-forms/internal/application/dispatcher"
	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/application/projection"
	"github.com/garyjia/branch-forms/internal/application/refcode"
	"github.com/garyjia/branch-forms/internal/application/service"
	"github.com/garyjia/branch-forms/internal/application/workflow"
	"github.com/garyjia/branch-forms/internal/config"
	"github.com/garyjia/branch-forms/internal/infrastructure/export"
	"github.com/garyjia/branch-forms/internal/infrastructure/persistence/repository"
	"github.com/garyjia/branch-forms/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/branch-forms/migrations"
	"github.com/garyjia/branch-forms/pkg/database"
	"github.com/garyjia/branch-forms/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// WorkflowBundle holds the lifecycle tables, gate and engine.
type WorkflowBundle struct {
	Registry *workflow.Registry
	Gate     *workflow.Gate
	Engine   workflow.LifecycleEngine
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Records:   repository.NewRecordRepository(sqlDB, logger),
		Audit:     repository.NewAuditRepository(sqlDB, logger),
		Sequences: repository.NewSequenceRepository(sqlDB, logger),
		Profiles:  repository.NewProfileRepository(sqlDB, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *config.LifecycleConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher")))}
	if cfg != nil && cfg.HandlerTimeout > 0 {
		opts = append(opts, dispatcher.WithHandlerTimeout(cfg.HandlerTimeout))
	}
	return dispatcher.NewDispatcher(opts...), nil
}

// ProvideStatusBoard seeds the dashboard counts from storage and subscribes it to record events.
func ProvideStatusBoard(ctx context.Context, records port.RecordRepository, disp dispatcher.Dispatcher) (*projection.StatusBoard, error) {
	counts, err := records.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed status board: %w", err)
	}

	board := projection.NewStatusBoard()
	board.Seed(counts)
	board.Register(disp)
	return board, nil
}

// WorkflowDeps holds dependencies for the lifecycle engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Config     *config.LifecycleConfig
	Logger     *zap.Logger

	// Timezone decides the calendar day and year stamped on records. Empty means UTC.
	Timezone string
	Clock    func() time.Time
}

// ProvideWorkflow builds the lifecycle tables and the engine over them.
func ProvideWorkflow(deps *WorkflowDeps) (*WorkflowBundle, error) {
	if deps == nil || deps.Repos == nil || deps.TxManager == nil || deps.Logger == nil {
		return nil, fmt.Errorf("workflow dependencies are incomplete")
	}

	now, err := zonedClock(deps.Timezone, deps.Clock)
	if err != nil {
		return nil, err
	}

	registry := workflow.NewRegistry()
	gate := workflow.NewGate(registry)

	codeOpts := []refcode.Option{refcode.WithClock(now)}
	engineOpts := []workflow.EngineOption{
		workflow.WithLogger(utils.NewKVLogger(deps.Logger.Named("lifecycle"))),
		workflow.WithClock(now),
	}
	if deps.Dispatcher != nil {
		engineOpts = append(engineOpts, workflow.WithDispatcher(deps.Dispatcher))
	}
	if deps.Config != nil {
		codeOpts = append(codeOpts, refcode.WithDigits(deps.Config.CodeDigits))
		engineOpts = append(engineOpts, workflow.WithPersistTimeout(deps.Config.PersistTimeout))
	}

	codes := refcode.NewGenerator(deps.Repos.Sequences, codeOpts...)
	engine := workflow.NewEngine(
		registry,
		gate,
		codes,
		deps.Repos.Records,
		deps.Repos.Audit,
		deps.TxManager,
		engineOpts...,
	)

	return &WorkflowBundle{Registry: registry, Gate: gate, Engine: engine}, nil
}

// zonedClock reports base() in the named zone.
func zonedClock(name string, base func() time.Time) (func() time.Time, error) {
	loc := time.UTC
	if name != "" {
		l, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
		}
		loc = l
	}
	if base == nil {
		base = time.Now
	}
	return func() time.Time { return base().In(loc) }, nil
}

// ServiceDeps holds dependencies for the application services.
type ServiceDeps struct {
	Repos    *RepositoryBundle
	Workflow *WorkflowBundle
	Board    *projection.StatusBoard
	Report   *config.ReportConfig
	Logger   *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Workflow == nil || deps.Logger == nil {
		return nil, fmt.Errorf("service dependencies are incomplete")
	}

	var company, timezone string
	if deps.Report != nil {
		company, timezone = deps.Report.CompanyName, deps.Report.Timezone
	}
	writer, err := export.NewXLSXWriter(company, timezone, deps.Logger.Named("report"))
	if err != nil {
		return nil, err
	}

	logger := utils.NewKVLogger(deps.Logger.Named("service"))
	return &ServiceBundle{
		Requests: service.NewRequestService(
			deps.Workflow.Registry,
			deps.Workflow.Gate,
			deps.Workflow.Engine,
			deps.Repos.Records,
			deps.Board,
			logger,
		),
		Profiles: service.NewProfileService(deps.Repos.Profiles, logger),
		Reports:  service.NewReportService(deps.Workflow.Gate, deps.Repos.Records, writer, logger),
	}, nil
}
