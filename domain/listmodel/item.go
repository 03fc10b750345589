package listmodel

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"spmodel/domain/sharepoint"
)

// ListItem is one row of a list. Identity lives in the struct fields; every
// other column is kept in a value map keyed by mapped name.
type ListItem struct {
	ID       int
	UniqueID string
	PermMask string
	FileRef  *Lookup

	mu       sync.RWMutex
	values   map[string]any
	pristine map[string]any
	model    *Model
}

// SaveOptions tunes a save. ValuePairs replaces the encoded field values when set.
type SaveOptions struct {
	ValuePairs []ValuePair
	// Target receives the saved item in addition to the caches already holding it.
	Target *ItemCache
}

func newListItem(m *Model) *ListItem {
	return &ListItem{
		values: make(map[string]any),
		model:  m,
	}
}

// EntityID implements Entity.
func (i *ListItem) EntityID() int {
	if i == nil {
		return 0
	}
	return i.ID
}

// Model returns the owning model, nil for detached items.
func (i *ListItem) Model() *Model { return i.model }

// Get returns the value of a field by mapped name. Identity fields are resolved
// from the struct.
func (i *ListItem) Get(name string) any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	switch name {
	case FieldNameID:
		if i.ID == 0 {
			return nil
		}
		return i.ID
	case FieldNameUniqueID:
		if i.UniqueID == "" {
			return nil
		}
		return i.UniqueID
	case FieldNamePermMask:
		return i.PermMask
	case FieldNameFileRef:
		if i.FileRef == nil {
			return nil
		}
		return i.FileRef
	}
	return i.values[name]
}

// Set assigns a field value by mapped name.
func (i *ListItem) Set(name string, value any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.setLocked(name, value)
}

func (i *ListItem) setLocked(name string, value any) {
	switch name {
	case FieldNameID:
		switch v := value.(type) {
		case int:
			i.ID = v
		case float64:
			i.ID = int(v)
		case nil:
			i.ID = 0
		}
	case FieldNameUniqueID:
		switch v := value.(type) {
		case string:
			i.UniqueID = v
		case *Lookup:
			if v != nil {
				i.UniqueID = v.LookupValue
			}
		case nil:
			i.UniqueID = ""
		}
	case FieldNamePermMask:
		s, _ := value.(string)
		i.PermMask = s
	case FieldNameFileRef:
		l, _ := value.(*Lookup)
		i.FileRef = l
	default:
		i.values[name] = value
	}
}

// load resets every field to its default and applies decoded values.
func (i *ListItem) load(fields []*FieldDefinition, values map[string]any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.values = make(map[string]any, len(fields))
	i.UniqueID, i.PermMask, i.FileRef = "", "", nil
	for _, f := range fields {
		if f.MappedName() == FieldNameID {
			continue
		}
		i.setLocked(f.MappedName(), f.DefaultValue())
	}
	for name, v := range values {
		i.setLocked(name, v)
	}
}

// Values returns a shallow copy of the non-identity values.
func (i *ListItem) Values() map[string]any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(map[string]any, len(i.values))
	for k, v := range i.values {
		out[k] = v
	}
	return out
}

// Snapshot returns a deep copy of the item's state including identity fields.
func (i *ListItem) Snapshot() map[string]any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(map[string]any, len(i.values)+4)
	for k, v := range i.values {
		out[k] = cloneValue(v)
	}
	if i.ID != 0 {
		out[FieldNameID] = i.ID
	}
	out[FieldNameUniqueID] = i.UniqueID
	out[FieldNamePermMask] = i.PermMask
	if i.FileRef != nil {
		out[FieldNameFileRef] = cloneValue(i.FileRef)
	}
	return out
}

func (i *ListItem) setPristine(snapshot map[string]any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.pristine = snapshot
}

// Pristine returns a deep copy of the state as of the last decode.
func (i *ListItem) Pristine() map[string]any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(map[string]any, len(i.pristine))
	for k, v := range i.pristine {
		out[k] = cloneValue(v)
	}
	return out
}

// IsDocument reports whether the item lives in a document library. Plain list
// items have a file reference like "Lists/Tasks/5_.000".
func (i *ListItem) IsDocument() bool {
	if i.FileRef == nil || i.FileRef.LookupValue == "" {
		return false
	}
	ext := strings.TrimPrefix(path.Ext(i.FileRef.LookupValue), ".")
	if ext == "" {
		return false
	}
	_, err := strconv.Atoi(ext)
	return err != nil
}

// Text returns a string field, or its formatted form for other types.
func (i *ListItem) Text(name string) string {
	switch v := i.Get(name).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return FormatValue(FieldText, v)
	}
}

func (i *ListItem) Bool(name string) bool {
	b, _ := i.Get(name).(bool)
	return b
}

func (i *ListItem) Int(name string) int {
	switch v := i.Get(name).(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (i *ListItem) Float(name string) float64 {
	f, _ := toFloat(i.Get(name))
	return f
}

// Time returns a DateTime field and whether it is set.
func (i *ListItem) Time(name string) (time.Time, bool) {
	t, ok := i.Get(name).(time.Time)
	return t, ok && !t.IsZero()
}

func (i *ListItem) Lookup(name string) *Lookup {
	switch v := i.Get(name).(type) {
	case *Lookup:
		return v
	case *User:
		if v != nil {
			return v.AsLookup()
		}
	}
	return nil
}

func (i *ListItem) User(name string) *User {
	u, _ := i.Get(name).(*User)
	return u
}

func (i *ListItem) Lookups(name string) []*Lookup {
	l, _ := i.Get(name).([]*Lookup)
	return l
}

func (i *ListItem) Users(name string) []*User {
	u, _ := i.Get(name).([]*User)
	return u
}

// Strings returns a MultiChoice or attachment list value.
func (i *ListItem) Strings(name string) []string {
	s, _ := i.Get(name).([]string)
	return s
}

// SaveChanges sends every editable field to the server. Items without an id are
// created instead.
func (i *ListItem) SaveChanges(ctx context.Context, opts SaveOptions) (*ListItem, error) {
	if i.model == nil {
		return nil, ErrNoModel
	}
	if i.ID == 0 {
		return i.model.AddNewItem(ctx, i, opts)
	}
	return i.model.UpdateListItem(ctx, i, opts)
}

// SaveFields saves only the named fields. Names without a definition are skipped.
func (i *ListItem) SaveFields(ctx context.Context, names ...string) (*ListItem, error) {
	if i.model == nil {
		return nil, ErrNoModel
	}
	fields := make([]*FieldDefinition, 0, len(names))
	for _, name := range names {
		if f, ok := i.model.def.Field(name); ok {
			fields = append(fields, f)
		}
	}
	return i.SaveChanges(ctx, SaveOptions{ValuePairs: Encode(fields, i)})
}

// DeleteItem deletes the item on the server and from every cache.
func (i *ListItem) DeleteItem(ctx context.Context) error {
	if i.model == nil {
		return ErrNoModel
	}
	return i.model.DeleteListItem(ctx, i)
}

// Changes compares the item against its pristine snapshot. Only editable fields
// whose formatted values differ are counted.
func (i *ListItem) Changes() FieldChangeSummary {
	if i.model == nil {
		return FieldChangeSummary{}
	}
	baseline := i.model.rebuild(i.Pristine(), false)
	return FieldChangeSummary{
		Changes: diffItems(i.model.def.Fields(), baseline, i),
	}
}

// IsPristine reports whether the item has no significant local changes.
func (i *ListItem) IsPristine() bool {
	return !i.Changes().HasChanges()
}

// Validate checks the required fields.
func (i *ListItem) Validate() bool {
	if i.model == nil {
		return false
	}
	return i.model.ValidateEntity(i)
}

// GetAvailableWorkflows lists the workflow templates that can run on the item.
func (i *ListItem) GetAvailableWorkflows(ctx context.Context) ([]sharepoint.WorkflowTemplate, error) {
	if i.model == nil {
		return nil, ErrNoModel
	}
	if i.FileRef == nil {
		return nil, fmt.Errorf("item %d has no file reference", i.ID)
	}
	return i.model.service.GetAvailableWorkflows(ctx, i.model.def.WebURL(), i.FileRef.LookupValue)
}

// StartWorkflow starts the workflow template with the given name on the item.
func (i *ListItem) StartWorkflow(ctx context.Context, templateName string, params map[string]string) error {
	templates, err := i.GetAvailableWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to get workflows for item %d: %w", i.ID, err)
	}
	for _, t := range templates {
		if t.Name != templateName {
			continue
		}
		return i.model.service.StartWorkflow(ctx, StartWorkflowRequest{
			WebURL:     i.model.def.WebURL(),
			FileRef:    i.FileRef.LookupValue,
			TemplateID: t.TemplateID,
			Params:     params,
		})
	}
	return fmt.Errorf("workflow %q is not available for item %d", templateName, i.ID)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case *Lookup:
		if val == nil {
			return (*Lookup)(nil)
		}
		c := *val
		return &c
	case *User:
		if val == nil {
			return (*User)(nil)
		}
		c := *val
		return &c
	case []*Lookup:
		out := make([]*Lookup, 0, len(val))
		for _, l := range val {
			c := *l
			out = append(out, &c)
		}
		return out
	case []*User:
		out := make([]*User, 0, len(val))
		for _, u := range val {
			c := *u
			out = append(out, &c)
		}
		return out
	case []string:
		return append([]string{}, val...)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, inner := range val {
			out = append(out, cloneValue(inner))
		}
		return out
	default:
		return val
	}
}
