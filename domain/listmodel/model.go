package listmodel

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"spmodel/domain/events"
	"spmodel/domain/sharepoint"
	"spmodel/logging"
)

// PrimaryQueryName is used when a query is registered or looked up without a name.
const PrimaryQueryName = "primary"

// Factory customizes items after every decode, for derived values or defaults.
type Factory func(item *ListItem)

// ModelConfig wires a Model.
type ModelConfig struct {
	Definition *ListDefinition
	Service    DataService
	Factory    Factory
	// Environment selects the list GUID from the definition's mapping.
	Environment string
	// Location is used for DateTime values without a zone. Defaults to UTC.
	Location *time.Location
	Events   events.ListEventPublisher
	Debounce time.Duration
}

// Model is the aggregate root of one list: its definition, registered queries
// and the operations that read and write items.
type Model struct {
	def         *ListDefinition
	service     DataService
	factory     Factory
	environment string
	location    *time.Location
	events      events.ListEventPublisher
	debounce    time.Duration
	logger      *logging.Logger

	mu               sync.RWMutex
	queries          map[string]*Query
	lastServerUpdate time.Time
	permissions      *sharepoint.Permissions

	metaMu           sync.Mutex
	metadataExtended bool
	metadataCall     *metadataCall
	metadata         *ListMetadata
}

type metadataCall struct {
	done chan struct{}
	err  error
}

// NewModel validates cfg and creates a model without any registered query.
func NewModel(cfg ModelConfig) (*Model, error) {
	if cfg.Definition == nil {
		return nil, fmt.Errorf("model requires a list definition")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("model for list %s requires a data service", cfg.Definition.Name())
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	return &Model{
		def:         cfg.Definition,
		service:     cfg.Service,
		factory:     cfg.Factory,
		environment: cfg.Environment,
		location:    cfg.Location,
		events:      cfg.Events,
		debounce:    cfg.Debounce,
		logger:      logging.Default().WithComponent("list_model").WithList(cfg.Definition.Name()),
		queries:     make(map[string]*Query),
	}, nil
}

func (m *Model) Definition() *ListDefinition { return m.def }

func (m *Model) Environment() string { return m.environment }

// GetListID resolves the list GUID for the model's environment.
func (m *Model) GetListID() (string, error) {
	return m.def.ListID(m.environment)
}

// FieldDefinition finds a field by mapped name.
func (m *Model) FieldDefinition(name string) (*FieldDefinition, error) {
	f, ok := m.def.Field(name)
	if !ok {
		return nil, fieldNotFound(m.def.Name(), name)
	}
	return f, nil
}

// RegisterQuery adds a query, replacing any query with the same name.
func (m *Model) RegisterQuery(opts QueryOptions) *Query {
	q := newQuery(m, opts)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.queries[q.name]; exists {
		m.logger.Debug("Replacing registered query", "query", q.name)
	}
	m.queries[q.name] = q
	return q
}

// GetQuery returns the named query, or the primary query when no name is given.
func (m *Model) GetQuery(name ...string) *Query {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queries[queryName(name)]
}

// Queries returns the registered queries sorted by name.
func (m *Model) Queries() []*Query {
	qs := m.queryList()
	sort.Slice(qs, func(a, b int) bool { return qs[a].name < qs[b].name })
	return qs
}

func (m *Model) queryList() []*Query {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Query, 0, len(m.queries))
	for _, q := range m.queries {
		out = append(out, q)
	}
	return out
}

// ExecuteQuery runs the named (or primary) query.
func (m *Model) ExecuteQuery(ctx context.Context, name ...string) (*ItemCache, error) {
	q := m.GetQuery(name...)
	if q == nil {
		return nil, fmt.Errorf("list %s: %w: %s", m.def.Name(), ErrQueryNotFound, queryName(name))
	}
	return q.Execute(ctx)
}

// GetCache returns the cache of the named (or primary) query, nil if unknown.
func (m *Model) GetCache(name ...string) *ItemCache {
	q := m.GetQuery(name...)
	if q == nil {
		return nil
	}
	return q.cache
}

// GetListItemByID fetches a single item through a query dedicated to that id,
// registered on first use.
func (m *Model) GetListItemByID(ctx context.Context, id int, opts QueryOptions) (*ListItem, error) {
	name := "GetListItemByID-" + strconv.Itoa(id)
	q := m.GetQuery(name)
	if q == nil {
		opts.Name = name
		if opts.Operation == "" {
			opts.Operation = OpGetListItems
		}
		if opts.Query == "" {
			opts.Query = CAMLByID(id)
		}
		q = m.RegisterQuery(opts)
	}

	cache, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	item, ok := cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("list %s: %w: id %d", m.def.Name(), ErrItemNotFound, id)
	}
	return item, nil
}

// GetCachedEntity finds an item in any query cache.
func (m *Model) GetCachedEntity(id int) (*ListItem, bool) {
	for _, q := range m.Queries() {
		if item, ok := q.cache.Get(id); ok {
			return item, true
		}
	}
	return nil, false
}

// GetCachedEntities returns every cached item once, ordered by id.
func (m *Model) GetCachedEntities() []*ListItem {
	all := NewItemCache()
	for _, q := range m.Queries() {
		q.cache.Range(func(id int, item *ListItem) bool {
			if !all.Has(id) {
				_ = all.Set(id, item)
			}
			return true
		})
	}
	return all.Values()
}

// CreateEmptyItem builds an unsaved item with every editable field at its
// default, then applies overrides.
func (m *Model) CreateEmptyItem(overrides map[string]any) *ListItem {
	item := newListItem(m)
	for _, f := range m.def.EditableFields() {
		item.Set(f.MappedName(), f.DefaultValue())
	}
	for name, v := range overrides {
		item.Set(name, v)
	}
	if m.factory != nil {
		m.factory(item)
	}
	item.setPristine(item.Snapshot())
	return item
}

// GenerateMockData builds n detached items with synthetic values for every field.
func (m *Model) GenerateMockData(n int, opts MockOptions) []*ListItem {
	items := make([]*ListItem, 0, n)
	for i := 1; i <= n; i++ {
		item := newListItem(m)
		for _, f := range m.def.Fields() {
			if f.MappedName() == FieldNameID {
				continue
			}
			item.Set(f.MappedName(), f.MockData(opts))
		}
		item.ID = i
		item.PermMask = sharepoint.FullMask.String()
		if m.factory != nil {
			m.factory(item)
		}
		item.setPristine(item.Snapshot())
		items = append(items, item)
	}
	return items
}

// FormattedValue renders a field of item for display.
func (m *Model) FormattedValue(item *ListItem, name string) (string, error) {
	f, err := m.FieldDefinition(name)
	if err != nil {
		return "", err
	}
	return f.FormattedValue(item), nil
}

// ValidateEntity checks the required fields of item and stops at the first
// invalid one.
func (m *Model) ValidateEntity(item *ListItem) bool {
	for _, f := range m.def.Fields() {
		if !f.Required() {
			continue
		}
		if !validValue(f.Type(), item.Get(f.MappedName())) {
			m.logger.Debug("Required field is not valid", "field", f.MappedName(), "id", item.ID)
			return false
		}
	}
	return true
}

func validValue(t FieldType, v any) bool {
	switch t {
	case FieldBoolean:
		_, ok := v.(bool)
		return ok
	case FieldDateTime:
		tm, ok := v.(time.Time)
		return ok && !tm.IsZero()
	case FieldLookup, FieldUser:
		return validLookup(v)
	case FieldLookupMulti:
		items, ok := v.([]*Lookup)
		if !ok || len(items) == 0 {
			return false
		}
		for _, l := range items {
			if !validLookup(l) {
				return false
			}
		}
		return true
	case FieldUserMulti:
		users, ok := v.([]*User)
		if !ok || len(users) == 0 {
			return false
		}
		for _, u := range users {
			if !validLookup(u) {
				return false
			}
		}
		return true
	}

	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []string:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

func validLookup(v any) bool {
	switch l := v.(type) {
	case *Lookup:
		return l != nil && l.LookupID > 0
	case *User:
		return l != nil && l.LookupID > 0
	default:
		return false
	}
}

// AddNewItem creates item on the server. Items that already carry an id are
// rejected before any request is made. The created item is the highest id in
// the response; the draft instance is updated in place and returned.
func (m *Model) AddNewItem(ctx context.Context, item *ListItem, opts SaveOptions) (*ListItem, error) {
	if item.ID != 0 {
		return nil, fmt.Errorf("list %s: %w (id %d)", m.def.Name(), ErrItemHasID, item.ID)
	}
	if item.model == nil {
		item.model = m
	}
	pairs := opts.ValuePairs
	if pairs == nil {
		pairs = Encode(m.def.Fields(), item)
	}

	resp, err := m.updateListItems(ctx, BatchNew, 0, pairs)
	if err != nil {
		return nil, err
	}

	seed := map[int]*ListItem{}
	if maxID := maxRowID(resp.Rows); maxID > 0 {
		seed[maxID] = item
	}
	scratch := NewItemCache()
	if _, err := m.decodeResponse(resp, scratch, seed); err != nil {
		return nil, err
	}
	created, ok := scratch.Last()
	if !ok {
		return nil, fmt.Errorf("list %s: %w: create returned no rows", m.def.Name(), ErrItemNotFound)
	}

	target := opts.Target
	if target == nil {
		target = m.GetCache()
	}
	if target != nil {
		if err := target.Set(created.ID, created); err != nil {
			return nil, err
		}
	}

	m.logger.Info("Created list item", "id", created.ID)
	m.publishItemSaved(events.ItemSavedEvent{ListName: m.def.Name(), ItemID: created.ID, Created: true, Timestamp: time.Now()})
	return created, nil
}

// UpdateListItem sends the editable fields of item, or the supplied value pairs,
// and returns the item refreshed from the response.
func (m *Model) UpdateListItem(ctx context.Context, item *ListItem, opts SaveOptions) (*ListItem, error) {
	if item.ID == 0 {
		return m.AddNewItem(ctx, item, opts)
	}
	pairs := opts.ValuePairs
	if pairs == nil {
		pairs = Encode(m.def.Fields(), item)
	}

	resp, err := m.updateListItems(ctx, BatchUpdate, item.ID, pairs)
	if err != nil {
		return nil, err
	}

	scratch := NewItemCache()
	if _, err := m.decodeResponse(resp, scratch, map[int]*ListItem{item.ID: item}); err != nil {
		return nil, err
	}
	updated, ok := scratch.Get(item.ID)
	if !ok {
		return nil, fmt.Errorf("list %s: %w: id %d", m.def.Name(), ErrItemNotFound, item.ID)
	}
	if opts.Target != nil {
		if err := opts.Target.Set(updated.ID, updated); err != nil {
			return nil, err
		}
	}

	m.logger.Info("Updated list item", "id", updated.ID, "fields", len(pairs))
	m.publishItemSaved(events.ItemSavedEvent{ListName: m.def.Name(), ItemID: updated.ID, Timestamp: time.Now()})
	return updated, nil
}

// DeleteListItem deletes item on the server and removes it from every cache.
// Documents are addressed by file reference as well as id.
func (m *Model) DeleteListItem(ctx context.Context, item *ListItem) error {
	if item.ID == 0 {
		return fmt.Errorf("list %s: %w: cannot delete an unsaved item", m.def.Name(), ErrInvalidEntity)
	}
	var pairs []ValuePair
	fileRef := ""
	if item.IsDocument() {
		fileRef = item.FileRef.LookupValue
		pairs = append(pairs, ValuePair{Name: "FileRef", Value: fileRef})
	}

	if _, err := m.updateListItems(ctx, BatchDelete, item.ID, pairs); err != nil {
		return err
	}

	for _, q := range m.queryList() {
		q.cache.Delete(item.ID)
	}
	m.logger.Info("Deleted list item", "id", item.ID, "document", fileRef != "")
	m.publishItemDeleted(events.ItemDeletedEvent{ListName: m.def.Name(), ItemID: item.ID, FileRef: fileRef, Timestamp: time.Now()})
	return nil
}

func (m *Model) updateListItems(ctx context.Context, cmd BatchCmd, id int, pairs []ValuePair) (*Response, error) {
	listID, err := m.GetListID()
	if err != nil {
		return nil, err
	}
	raw, err := m.service.ServiceWrapper(ctx, &Request{
		Operation:  OpUpdateListItems,
		ListName:   listID,
		WebURL:     m.def.WebURL(),
		BatchCmd:   cmd,
		ItemID:     id,
		ValuePairs: pairs,
	})
	if err != nil {
		return nil, fmt.Errorf("%s item %d on list %s: %w", cmd, id, m.def.Name(), err)
	}
	resp, err := ParseResponse(OpUpdateListItems, raw)
	if err != nil {
		return nil, err
	}
	m.touch()
	return resp, nil
}

func maxRowID(rows []Attrs) int {
	max := 0
	for _, row := range rows {
		if id, err := strconv.Atoi(row[WirePrefix+"ID"]); err == nil && id > max {
			max = id
		}
	}
	return max
}

// ResolvePermissions returns the list-wide permissions. They are derived from
// the permission mask of a cached item when not yet known; without any cached
// item an all-false set is returned.
func (m *Model) ResolvePermissions() sharepoint.Permissions {
	m.mu.RLock()
	perms := m.permissions
	m.mu.RUnlock()
	if perms != nil {
		return *perms
	}

	if p, ok := m.permissionsFromCache(); ok {
		m.mu.Lock()
		m.permissions = &p
		m.mu.Unlock()
		return p
	}

	m.logger.Error("Unable to resolve list permissions, no cached item carries a permission mask")
	return sharepoint.Permissions{}
}

// RefreshPermissions forgets the resolved permissions and derives them again
// from the cached items.
func (m *Model) RefreshPermissions() sharepoint.Permissions {
	m.mu.Lock()
	m.permissions = nil
	m.mu.Unlock()
	return m.ResolvePermissions()
}

// derivePermissions treats the first entity of a response as authoritative for
// the whole list, unless permissions are already known.
func (m *Model) derivePermissions(items []*ListItem) {
	m.mu.RLock()
	known := m.permissions != nil
	m.mu.RUnlock()
	if known || len(items) == 0 {
		return
	}
	first := items[0]
	if first.PermMask == "" {
		return
	}
	p, err := sharepoint.DecodePermissions(first.PermMask)
	if err != nil {
		m.logger.Warn("Invalid permission mask", "id", first.ID, "mask", first.PermMask, "error", err)
		return
	}
	m.mu.Lock()
	if m.permissions == nil {
		m.permissions = &p
	}
	m.mu.Unlock()
}

func (m *Model) permissionsFromCache() (sharepoint.Permissions, bool) {
	for _, item := range m.GetCachedEntities() {
		if item.PermMask == "" {
			continue
		}
		p, err := sharepoint.DecodePermissions(item.PermMask)
		if err != nil {
			continue
		}
		return p, true
	}
	return sharepoint.Permissions{}, false
}

// ExtendListMetadata fetches the list schema and extends the field definitions.
// Concurrent callers share one request; once extended the call is a no-op.
func (m *Model) ExtendListMetadata(ctx context.Context) (*Model, error) {
	m.metaMu.Lock()
	if m.metadataExtended {
		m.metaMu.Unlock()
		return m, nil
	}
	if call := m.metadataCall; call != nil {
		m.metaMu.Unlock()
		select {
		case <-call.done:
			if call.err != nil {
				return nil, call.err
			}
			return m, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &metadataCall{done: make(chan struct{})}
	m.metadataCall = call
	m.metaMu.Unlock()

	call.err = m.fetchMetadata(context.WithoutCancel(ctx))

	m.metaMu.Lock()
	m.metadataCall = nil
	m.metaMu.Unlock()
	close(call.done)

	if call.err != nil {
		return nil, call.err
	}
	return m, nil
}

func (m *Model) fetchMetadata(ctx context.Context) error {
	listID, err := m.GetListID()
	if err != nil {
		return err
	}
	raw, err := m.service.GetList(ctx, listID, m.def.WebURL())
	if err != nil {
		return fmt.Errorf("failed to get metadata for list %s: %w", m.def.Name(), err)
	}
	resp, err := ParseResponse(OpGetList, raw)
	if err != nil {
		return err
	}
	if resp.List == nil {
		return fmt.Errorf("list %s: metadata response has no list element", m.def.Name())
	}
	m.extendFromMetadata(resp.List)
	return nil
}

// extendFromMetadata applies server metadata to the field definitions exactly
// once for the lifetime of the model.
func (m *Model) extendFromMetadata(meta *ListMetadata) {
	m.metaMu.Lock()
	if m.metadataExtended {
		m.metaMu.Unlock()
		return
	}
	m.metadataExtended = true
	m.metadata = meta
	m.metaMu.Unlock()

	extended := 0
	for _, fm := range meta.Fields {
		if f, ok := m.def.FieldByStaticName(fm.StaticName); ok && f.Extend(fm) {
			extended++
		}
	}
	m.logger.SharePoint("Extended field definitions from list metadata", "fields", extended)
}

// MetadataExtended reports whether server metadata has been applied.
func (m *Model) MetadataExtended() bool {
	m.metaMu.Lock()
	defer m.metaMu.Unlock()
	return m.metadataExtended
}

// ListMetadata returns the server metadata once fetched.
func (m *Model) ListMetadata() *ListMetadata {
	m.metaMu.Lock()
	defer m.metaMu.Unlock()
	return m.metadata
}

// LastServerUpdate is the time of the last successful server response.
func (m *Model) LastServerUpdate() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastServerUpdate
}

func (m *Model) touch() {
	m.mu.Lock()
	m.lastServerUpdate = time.Now()
	m.mu.Unlock()
}

// rebuild materializes a detached item from a snapshot through the factory.
func (m *Model) rebuild(snapshot map[string]any, keepID bool) *ListItem {
	item := newListItem(m)
	if !keepID {
		delete(snapshot, FieldNameID)
	}
	item.load(m.def.Fields(), snapshot)
	if m.factory != nil {
		m.factory(item)
	}
	return item
}

func (m *Model) resolveFields(names []string) ([]*FieldDefinition, error) {
	if len(names) == 0 {
		return m.def.EditableFields(), nil
	}
	fields := make([]*FieldDefinition, 0, len(names))
	for _, name := range names {
		f, err := m.FieldDefinition(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (m *Model) publishQueryExecuted(event events.QueryExecutedEvent) {
	if m.events != nil {
		m.events.PublishQueryExecuted(event)
	}
}

func (m *Model) publishItemSaved(event events.ItemSavedEvent) {
	if m.events != nil {
		m.events.PublishItemSaved(event)
	}
}

func (m *Model) publishItemDeleted(event events.ItemDeletedEvent) {
	if m.events != nil {
		m.events.PublishItemDeleted(event)
	}
}

func queryName(names []string) string {
	if len(names) == 0 || names[0] == "" {
		return PrimaryQueryName
	}
	return names[0]
}
