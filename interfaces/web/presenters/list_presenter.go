// Package presenters transforms domain data into UI-ready view models.
package presenters

import (
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"spmodel/domain/listmodel"
	"spmodel/domain/sharepoint"
)

// ListRowVM is one configured list on the index page.
type ListRowVM struct {
	Name             string   `json:"name"`
	Title            string   `json:"title"`
	WebURL           string   `json:"webUrl"`
	ListID           string   `json:"listId,omitempty"`
	FieldCount       int      `json:"fieldCount"`
	Queries          []string `json:"queries"`
	CachedItems      int      `json:"cachedItems"`
	MetadataExtended bool     `json:"metadataExtended"`
	LastServerUpdate string   `json:"lastServerUpdate,omitempty"`
}

// ListIndexVM is the view model for the list index page.
type ListIndexVM struct {
	Environment string      `json:"environment"`
	Lists       []ListRowVM `json:"lists"`
}

// ColumnVM is a table column backed by a field definition.
type ColumnVM struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
}

// ItemRowVM is one table row with values formatted per column.
type ItemRowVM struct {
	ID       int      `json:"id"`
	FileRef  string   `json:"fileRef,omitempty"`
	Cells    []string `json:"cells"`
	Document bool     `json:"document"`
}

// QueryMetricsVM summarizes the request statistics of a query.
type QueryMetricsVM struct {
	Executions       int    `json:"executions"`
	NetworkCalls     int    `json:"networkCalls"`
	Failures         int    `json:"failures"`
	Coalesced        int    `json:"coalesced"`
	StorageHits      int    `json:"storageHits"`
	LastRoundTrip    string `json:"lastRoundTrip"`
	AverageRoundTrip string `json:"averageRoundTrip"`
	LastRun          string `json:"lastRun,omitempty"`
	ChangeToken      string `json:"changeToken,omitempty"`
}

// ItemTableVM is the view model for the items page of one query.
type ItemTableVM struct {
	List    string         `json:"list"`
	Query   string         `json:"query"`
	Columns []ColumnVM     `json:"columns"`
	Rows    []ItemRowVM    `json:"rows"`
	Total   int            `json:"total"`
	Metrics QueryMetricsVM `json:"metrics"`
	CanAdd  bool           `json:"canAdd"`
	CanEdit bool           `json:"canEdit"`
}

// FieldValueVM is one field of an item with its formatted and raw value.
type FieldValueVM struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
	Formatted   string `json:"formatted"`
	Value       any    `json:"value"`
}

// ItemDetailVM is the view model for a single item.
type ItemDetailVM struct {
	List      string         `json:"list"`
	ID        int            `json:"id"`
	UniqueID  string         `json:"uniqueId,omitempty"`
	FileRef   string         `json:"fileRef,omitempty"`
	Fields    []FieldValueVM `json:"fields"`
	CanEdit   bool           `json:"canEdit"`
	CanDelete bool           `json:"canDelete"`
	Valid     bool           `json:"valid"`
}

// ChangeVM is one field change between two versions.
type ChangeVM struct {
	Field       string `json:"field"`
	DisplayName string `json:"displayName"`
	Before      string `json:"before"`
	After       string `json:"after"`
}

// VersionVM is one version of an item with the changes it introduced.
type VersionVM struct {
	Version  int        `json:"version"`
	Editor   string     `json:"editor,omitempty"`
	Modified string     `json:"modified,omitempty"`
	Changes  []ChangeVM `json:"changes"`
}

// HistoryVM is the view model for the version history of one item.
type HistoryVM struct {
	List                string      `json:"list"`
	ItemID              int         `json:"itemId"`
	Versions            []VersionVM `json:"versions"`
	SignificantVersions int         `json:"significantVersions"`
}

// FieldDefVM describes one field definition.
type FieldDefVM struct {
	MappedName  string   `json:"mappedName"`
	WireName    string   `json:"wireName"`
	Type        string   `json:"type"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description,omitempty"`
	ReadOnly    bool     `json:"readOnly"`
	Required    bool     `json:"required"`
	Choices     []string `json:"choices,omitempty"`
}

// FieldsVM is the view model for the field definitions of a list.
type FieldsVM struct {
	List             string       `json:"list"`
	MetadataExtended bool         `json:"metadataExtended"`
	Fields           []FieldDefVM `json:"fields"`
}

// ListPresenter transforms list models, items and version histories for UI display.
type ListPresenter struct {
	location *time.Location
}

// NewListPresenter creates a list presenter formatting dates in loc (UTC when nil).
func NewListPresenter(loc *time.Location) *ListPresenter {
	if loc == nil {
		loc = time.UTC
	}
	return &ListPresenter{location: loc}
}

// ToListIndexViewModel converts the configured models to the index view model.
func (p *ListPresenter) ToListIndexViewModel(environment string, models []*listmodel.Model) *ListIndexVM {
	vm := &ListIndexVM{Environment: environment, Lists: []ListRowVM{}}
	for _, m := range models {
		if m == nil {
			continue
		}
		def := m.Definition()
		row := ListRowVM{
			Name:             def.Name(),
			Title:            def.Title(),
			WebURL:           def.WebURL(),
			FieldCount:       len(def.Fields()),
			Queries:          []string{},
			CachedItems:      len(m.GetCachedEntities()),
			MetadataExtended: m.MetadataExtended(),
		}
		if id, err := m.GetListID(); err == nil {
			row.ListID = id
		}
		for _, q := range m.Queries() {
			row.Queries = append(row.Queries, q.Name())
		}
		sort.Strings(row.Queries)
		if t := m.LastServerUpdate(); !t.IsZero() {
			row.LastServerUpdate = humanize.Time(t)
		}
		vm.Lists = append(vm.Lists, row)
	}
	return vm
}

// ToItemTableViewModel formats items for the table of one query. Columns follow
// the definition order of the list.
func (p *ListPresenter) ToItemTableViewModel(m *listmodel.Model, query *listmodel.Query, items []*listmodel.ListItem) *ItemTableVM {
	def := m.Definition()
	vm := &ItemTableVM{
		List:    def.Name(),
		Columns: []ColumnVM{},
		Rows:    make([]ItemRowVM, 0, len(items)),
		Total:   len(items),
	}
	if query != nil {
		vm.Query = query.Name()
		vm.Metrics = p.toMetrics(query)
	}

	perms := m.ResolvePermissions()
	vm.CanAdd = perms.CanAdd()
	vm.CanEdit = perms.CanEdit()

	fields := tableFields(def)
	for _, f := range fields {
		vm.Columns = append(vm.Columns, ColumnVM{
			Name:        f.MappedName(),
			DisplayName: f.DisplayName(),
			Type:        string(f.Type()),
		})
	}
	for _, item := range items {
		row := ItemRowVM{ID: item.ID, Document: item.IsDocument(), Cells: make([]string, 0, len(fields))}
		if item.FileRef != nil {
			row.FileRef = item.FileRef.LookupValue
		}
		for _, f := range fields {
			row.Cells = append(row.Cells, f.FormattedValue(item))
		}
		vm.Rows = append(vm.Rows, row)
	}
	return vm
}

// tableFields skips identity columns that every row already shows.
func tableFields(def *listmodel.ListDefinition) []*listmodel.FieldDefinition {
	var out []*listmodel.FieldDefinition
	for _, f := range def.Fields() {
		switch f.MappedName() {
		case listmodel.FieldNameID, listmodel.FieldNameUniqueID, listmodel.FieldNamePermMask, listmodel.FieldNameFileRef:
			continue
		}
		out = append(out, f)
	}
	return out
}

func (p *ListPresenter) toMetrics(q *listmodel.Query) QueryMetricsVM {
	metrics := q.Metrics()
	vm := QueryMetricsVM{
		Executions:       metrics.Executions,
		NetworkCalls:     metrics.NetworkCalls,
		Failures:         metrics.Failures,
		Coalesced:        metrics.Coalesced,
		StorageHits:      metrics.StorageHits,
		LastRoundTrip:    metrics.LastRoundTrip.Round(time.Millisecond).String(),
		AverageRoundTrip: metrics.AverageRoundTrip.Round(time.Millisecond).String(),
		ChangeToken:      q.ChangeToken(),
	}
	if last := q.LastRun(); !last.IsZero() {
		vm.LastRun = p.formatTime(last)
	}
	return vm
}

// ToItemDetailViewModel lists every field of an item with its formatted value.
func (p *ListPresenter) ToItemDetailViewModel(m *listmodel.Model, item *listmodel.ListItem) *ItemDetailVM {
	vm := &ItemDetailVM{
		List:     m.Definition().Name(),
		ID:       item.ID,
		UniqueID: item.UniqueID,
		Fields:   []FieldValueVM{},
		Valid:    item.Validate(),
	}
	if item.FileRef != nil {
		vm.FileRef = item.FileRef.LookupValue
	}

	// Items without a permMask fall back to the list level permissions.
	perms := m.ResolvePermissions()
	if item.PermMask != "" {
		if decoded, err := sharepoint.DecodePermissions(item.PermMask); err == nil {
			perms = decoded
		}
	}
	vm.CanEdit = perms.CanEdit()
	vm.CanDelete = perms.CanDelete()

	for _, f := range tableFields(m.Definition()) {
		vm.Fields = append(vm.Fields, FieldValueVM{
			Name:        f.MappedName(),
			DisplayName: f.DisplayName(),
			Type:        string(f.Type()),
			Formatted:   f.FormattedValue(item),
			Value:       item.Get(f.MappedName()),
		})
	}
	return vm
}

// ToHistoryViewModel converts a change summary, newest version first.
func (p *ListPresenter) ToHistoryViewModel(list string, summary *listmodel.ChangeSummary) *HistoryVM {
	if summary == nil {
		return &HistoryVM{List: list, Versions: []VersionVM{}}
	}
	vm := &HistoryVM{
		List:                list,
		ItemID:              summary.ItemID,
		SignificantVersions: summary.SignificantVersions,
		Versions:            make([]VersionVM, 0, len(summary.Versions)),
	}
	for i := len(summary.Versions) - 1; i >= 0; i-- {
		v := summary.Versions[i]
		version := VersionVM{Version: v.Version, Changes: []ChangeVM{}}
		if v.Editor != nil {
			version.Editor = v.Editor.LookupValue
		}
		if !v.Modified.IsZero() {
			version.Modified = p.formatTime(v.Modified)
		}
		for _, c := range v.Changes {
			version.Changes = append(version.Changes, ChangeVM{
				Field:       c.Field,
				DisplayName: c.DisplayName,
				Before:      c.BeforeFormatted,
				After:       c.AfterFormatted,
			})
		}
		vm.Versions = append(vm.Versions, version)
	}
	return vm
}

// ToFieldsViewModel describes the field definitions of a model.
func (p *ListPresenter) ToFieldsViewModel(m *listmodel.Model) *FieldsVM {
	vm := &FieldsVM{
		List:             m.Definition().Name(),
		MetadataExtended: m.MetadataExtended(),
		Fields:           []FieldDefVM{},
	}
	for _, f := range m.Definition().Fields() {
		vm.Fields = append(vm.Fields, FieldDefVM{
			MappedName:  f.MappedName(),
			WireName:    f.WireName(),
			Type:        string(f.Type()),
			DisplayName: f.DisplayName(),
			Description: f.Description(),
			ReadOnly:    f.ReadOnly(),
			Required:    f.Required(),
			Choices:     f.Choices(),
		})
	}
	return vm
}

func (p *ListPresenter) formatTime(t time.Time) string {
	return t.In(p.location).Format("2006-01-02 15:04")
}

// ParseFieldList splits a comma separated list of mapped field names.
func ParseFieldList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
