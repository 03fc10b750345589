package main

import (
	"context"
	"fmt"
	"time"

	"spmodel/application"
	"spmodel/database"
	domainevents "spmodel/domain/events"
	"spmodel/infrastructure/config"
	"spmodel/infrastructure/repositories"
	"spmodel/infrastructure/spclient"
	"spmodel/infrastructure/storage"
	"spmodel/logging"
	"spmodel/platform/events"
	"spmodel/spauth"
)

const activityLogSize = 200

// App holds the dependencies shared by the commands.
type App struct {
	Config   *config.AppConfig
	Logger   *logging.Logger
	DB       *database.Database
	Client   *spclient.SOAPClient
	Catalog  *application.ListCatalog
	Users    *application.UserService
	EventBus *events.ListEventBus
	Activity *events.ActivityLog
	Location *time.Location

	localStore *storage.LocalStore
}

// buildApp connects to SharePoint, opens the snapshot database and builds one
// model per configured list. Activity entries go to the in-memory log and to sinks.
func buildApp(cfg *config.AppConfig, logger *logging.Logger, sinks ...events.ActivitySink) (*App, error) {
	loc, err := time.LoadLocation(cfg.Query.Location)
	if err != nil {
		return nil, fmt.Errorf("load time zone %s: %w", cfg.Query.Location, err)
	}

	schema, err := config.LoadSchemaFile(cfg.SchemaPath)
	if err != nil {
		return nil, err
	}

	client, err := newSOAPClient(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.New(*cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Client:   client,
		Users:    application.NewUserService(client),
		EventBus: events.NewListEventBus(),
		Activity: events.NewActivityLog(activityLogSize),
		Location: loc,
		localStore: storage.NewLocalStore(
			repositories.NewStorageEntryRepository(db, "local", cfg.Storage.LocalMaxBytes),
		),
	}

	sink := append(events.Fanout{app.Activity}, sinks...)
	events.NewActivityEventHandlers(sink).RegisterHandlers(app.EventBus)

	catalog, err := application.NewListCatalog(application.CatalogConfig{
		Schema:         schema,
		Service:        client,
		Events:         app.EventBus,
		Environment:    cfg.Environment,
		Location:       loc,
		Query:          cfg.Query,
		DefaultStorage: cfg.Storage.Default,
		Stores: map[string]application.SnapshotStore{
			"local":   app.localStore,
			"session": storage.NewSessionStore(cfg.Storage.SessionTTL, cfg.Storage.SessionMaxBytes),
		},
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	app.Catalog = catalog
	app.EventBus.OnStorageDisabled(app.recordDisabledStorage)

	return app, nil
}

func newSOAPClient(cfg *config.AppConfig) (*spclient.SOAPClient, error) {
	authCfg, err := spauth.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = authCfg.SiteURL
	}

	authClient, err := spauth.NewClient(authCfg)
	if err != nil {
		return nil, fmt.Errorf("create SharePoint client: %w", err)
	}
	return spclient.NewSOAPClient(spclient.NewGosipTransport(authClient), cfg.SiteURL), nil
}

// recordDisabledStorage persists the quota failure of lists snapshotted in
// sqlite so the next run can report it.
func (a *App) recordDisabledStorage(event domainevents.StorageDisabledEvent) {
	if a.Catalog.StorageBackend(event.ListName) != "local" {
		return
	}
	reason := fmt.Sprintf("%s: %s", event.ListName, event.Reason)
	if err := a.localStore.RecordDisabled(context.Background(), reason); err != nil {
		a.Logger.Warn("Failed to record disabled snapshot storage", "list", event.ListName, "error", err)
	}
}

// DatabaseHealth pings both database connections.
func (a *App) DatabaseHealth(ctx context.Context) error {
	_, err := a.DB.Health(ctx)
	return err
}

func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database", "error", err)
	}
}

// withApp builds the application for the duration of fn.
func (c *cli) withApp(ctx context.Context, fn func(ctx context.Context, app *App) error) error {
	app, err := buildApp(c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}
