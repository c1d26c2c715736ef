package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"mcsim/adapters/memory"
	"mcsim/adapters/sqlstore"
	"mcsim/app"
	"mcsim/internal"
	"mcsim/internal/api"
	"mcsim/internal/config"
	"mcsim/internal/dispatch"
	"mcsim/internal/errors"
	"mcsim/internal/migration"
	"mcsim/internal/seeding"
	"mcsim/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	RunRepo    ports.RunRepository
	Seeder     ports.RNGPort
	Dispatcher *dispatch.Dispatcher
	Service    *app.SimulationService
	SSEHub     *api.SSEHub
}

// New creates a container with an in-memory run store. Call InitWithDatabase
// to switch to a SQL store.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		RunRepo:    memory.NewRunRepository(),
		Seeder:     seeding.NewSplitMixSeeder(),
		Dispatcher: dispatch.New(cfg.Simulation.Workers, logger),
		SSEHub:     api.NewSSEHub(),
	}
	c.buildService()
	return c, nil
}

// Open creates a container and connects to postgres or sqlite when
// DATABASE_URL is set.
func Open(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	c, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if !cfg.Database.HasDatabase() {
		c.Logger.With("Container").Info("DATABASE_URL not set, runs are kept in memory")
		return c, nil
	}

	driver, dsn := cfg.Database.Driver()
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		c.Shutdown(ctx)
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to database"))
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	if driver == "sqlite3" {
		// sqlite allows one writer
		db.SetMaxOpenConns(1)
	}
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := c.InitWithDatabase(ctx, db); err != nil {
		db.Close()
		c.Shutdown(ctx)
		return nil, err
	}
	return c, nil
}

// InitWithDatabase migrates the schema and switches the run store to db
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	c.DB = db
	c.RunRepo = sqlstore.NewRunRepository(db)
	c.buildService()
	c.Logger.With("Container").Info("initialized with %s run store", db.DriverName())
	return nil
}

func (c *Container) buildService() {
	c.Service = app.NewSimulationService(c.RunRepo, c.Seeder, c.Dispatcher, c.Config.Simulation, c.Logger)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.SSEHub != nil {
		c.SSEHub.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
