package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/secgroups/internal/authz/graph"
	"github.com/aussiebroadwan/secgroups/internal/authz/service"
	"github.com/aussiebroadwan/secgroups/internal/authz/store"
	"github.com/aussiebroadwan/secgroups/internal/authz/store/drivers/sqlite"
	"github.com/aussiebroadwan/secgroups/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application bundles the store, graph cache and services for embedding in
// administrative tooling. There is no ambient global; everything hangs off
// this explicitly constructed object.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	cache *graph.Cache

	Groups      *service.GroupsService
	Inclusions  *service.InclusionsService
	Memberships *service.MembershipsService
	Resolution  *service.ResolutionService
	Audit       *service.AuditService
}

// New opens the database, applies migrations and wires all services.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "secgroups",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	return app, nil
}

func (app *Application) Logger() *slog.Logger { return app.logger }

// Close releases the underlying database.
func (app *Application) Close() error {
	return app.db.Close()
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices wires the shared cache, recorder and per-scope locks into the
// business logic services.
func (app *Application) initServices() {
	app.cache = graph.NewCache(app.db, app.cfg.GraphCacheTTL)

	recorder := &service.Recorder{}
	locks := service.NewScopeLocks()

	app.Groups = &service.GroupsService{
		Store:    app.db,
		Cache:    app.cache,
		Recorder: recorder,
		Locks:    locks,
	}
	app.Inclusions = &service.InclusionsService{
		Store:    app.db,
		Cache:    app.cache,
		Recorder: recorder,
		Locks:    locks,
		MaxHops:  app.cfg.MaxHops,
	}
	app.Memberships = &service.MembershipsService{
		Store:    app.db,
		Cache:    app.cache,
		Recorder: recorder,
		Locks:    locks,
	}
	app.Resolution = &service.ResolutionService{
		Cache:   app.cache,
		MaxHops: app.cfg.MaxHops,
	}
	app.Audit = &service.AuditService{Store: app.db}
}
