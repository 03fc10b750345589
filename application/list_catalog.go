package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"spmodel/domain/events"
	"spmodel/domain/listmodel"
	"spmodel/infrastructure/config"
	"spmodel/infrastructure/storage"
	"spmodel/logging"
)

var ErrListNotFound = errors.New("list not found")

// SnapshotStore is a storage backend that can report its usage.
type SnapshotStore interface {
	listmodel.Storage
	Stats(ctx context.Context) (storage.Stats, error)
}

// CatalogConfig wires every list of a schema file to the same service, event
// publisher and storage backends.
type CatalogConfig struct {
	Schema      *config.SchemaFile
	Service     listmodel.DataService
	Events      events.ListEventPublisher
	Environment string
	Location    *time.Location
	Query       *config.QueryConfig
	// DefaultStorage names the backend used by lists that do not choose one.
	DefaultStorage string
	Stores         map[string]SnapshotStore
}

// ListCatalog holds one model per configured list.
type ListCatalog struct {
	models map[string]*listmodel.Model
	order  []string
	// defaults holds the query run when a caller names none.
	defaults map[string]string
	backends map[string]string
	stores   map[string]SnapshotStore
	logger   *logging.Logger
}

func NewListCatalog(cfg CatalogConfig) (*ListCatalog, error) {
	if cfg.Schema == nil {
		return nil, fmt.Errorf("list catalog requires a schema")
	}
	if cfg.Query == nil {
		cfg.Query = &config.QueryConfig{Debounce: listmodel.DefaultDebounce}
	}

	c := &ListCatalog{
		models:   make(map[string]*listmodel.Model, len(cfg.Schema.Lists)),
		defaults: make(map[string]string, len(cfg.Schema.Lists)),
		backends: make(map[string]string, len(cfg.Schema.Lists)),
		stores:   cfg.Stores,
		logger:   logging.Default().WithComponent("list_catalog"),
	}
	for _, schema := range cfg.Schema.Lists {
		model, err := c.buildModel(cfg, schema)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(model.Definition().Name())
		c.models[key] = model
		c.defaults[key] = firstQueryName(schema)
		c.backends[key] = strings.ToLower(firstNonEmpty(schema.Storage, cfg.DefaultStorage))
		c.order = append(c.order, model.Definition().Name())
	}
	c.logger.Info("List catalog ready", "lists", len(c.order), "environment", cfg.Environment)
	return c, nil
}

func (c *ListCatalog) buildModel(cfg CatalogConfig, schema config.ListSchema) (*listmodel.Model, error) {
	def, err := listmodel.NewListDefinition(schema.ListConfig)
	if err != nil {
		return nil, err
	}
	model, err := listmodel.NewModel(listmodel.ModelConfig{
		Definition:  def,
		Service:     cfg.Service,
		Environment: cfg.Environment,
		Location:    cfg.Location,
		Events:      cfg.Events,
		Debounce:    cfg.Query.Debounce,
	})
	if err != nil {
		return nil, err
	}

	store := c.storeFor(firstNonEmpty(schema.Storage, cfg.DefaultStorage))
	queries := schema.Queries
	if len(queries) == 0 {
		queries = []config.QuerySchema{{Name: listmodel.PrimaryQueryName}}
	}
	for _, qs := range queries {
		opts := qs.Options()
		if store != nil {
			opts.Storage = store
		}
		if opts.StorageExpiration == 0 {
			opts.StorageExpiration = cfg.Query.StorageExpiration
		}
		model.RegisterQuery(opts)
	}
	return model, nil
}

func (c *ListCatalog) storeFor(name string) listmodel.Storage {
	name = strings.ToLower(name)
	if name == "" || name == "none" {
		return nil
	}
	if s, ok := c.stores[name]; ok {
		return s
	}
	c.logger.Warn("Storage backend not configured, snapshots disabled", "backend", name)
	return nil
}

// Names returns the list names in schema order.
func (c *ListCatalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Model returns the model of the named list, case-insensitively.
func (c *ListCatalog) Model(name string) (*listmodel.Model, error) {
	m, ok := c.models[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrListNotFound, name)
	}
	return m, nil
}

// DefaultQuery returns the query used for list when none is named: the first
// query of its schema entry, or the primary query.
func (c *ListCatalog) DefaultQuery(list string) string {
	if name, ok := c.defaults[strings.ToLower(list)]; ok {
		return name
	}
	return listmodel.PrimaryQueryName
}

// StorageBackend names the snapshot backend of a list, "" when it has none.
func (c *ListCatalog) StorageBackend(list string) string {
	name := c.backends[strings.ToLower(list)]
	if _, ok := c.stores[name]; !ok {
		return ""
	}
	return name
}

// Items executes the named query of a list and returns its items ordered by id.
// An empty query name selects DefaultQuery.
func (c *ListCatalog) Items(ctx context.Context, list, query string) ([]*listmodel.ListItem, error) {
	m, err := c.Model(list)
	if err != nil {
		return nil, err
	}
	if query == "" {
		query = c.DefaultQuery(list)
	}
	cache, err := m.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	items := cache.Values()
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// StorageStats reports every configured backend, sorted by name.
func (c *ListCatalog) StorageStats(ctx context.Context) ([]storage.Stats, error) {
	names := make([]string, 0, len(c.stores))
	for name := range c.stores {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]storage.Stats, 0, len(names))
	for _, name := range names {
		stats, err := c.stores[name].Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("stats for %s storage: %w", name, err)
		}
		out = append(out, stats)
	}
	return out, nil
}

func firstQueryName(schema config.ListSchema) string {
	if len(schema.Queries) == 0 {
		return listmodel.PrimaryQueryName
	}
	return firstNonEmpty(schema.Queries[0].Name, listmodel.PrimaryQueryName)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
