package listmodel

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// FieldChange is one field whose formatted value differs between two states.
type FieldChange struct {
	Field           string
	DisplayName     string
	Before          any
	After           any
	BeforeFormatted string
	AfterFormatted  string
}

// FieldChangeSummary lists the significant changes of one item state. Version,
// Editor and Modified are only set for version history entries.
type FieldChangeSummary struct {
	Version  int
	Editor   *User
	Modified time.Time
	Changes  []FieldChange
}

func (s FieldChangeSummary) HasChanges() bool { return len(s.Changes) > 0 }

func (s FieldChangeSummary) ChangeCount() int { return len(s.Changes) }

// Changed returns the change recorded for a mapped field name.
func (s FieldChangeSummary) Changed(name string) (FieldChange, bool) {
	for _, c := range s.Changes {
		if c.Field == name {
			return c, true
		}
	}
	return FieldChange{}, false
}

// FieldVersion is the value of one field at one version.
type FieldVersion struct {
	Version  int
	Editor   *User
	Modified time.Time
	Value    any
}

// FieldVersionCollection holds every version of a single field, oldest first.
type FieldVersionCollection struct {
	Field    *FieldDefinition
	Versions []FieldVersion
}

// VersionSnapshot is a synthetic detached item holding the requested fields as
// they were at one version.
type VersionSnapshot struct {
	Version  int
	Editor   *User
	Modified time.Time
	Item     *ListItem
}

// VersionHistory is ordered by ascending version number.
type VersionHistory struct {
	ItemID   int
	Fields   []*FieldDefinition
	Versions []*VersionSnapshot
}

// ChangeSummary reduces a version history to per-version diffs.
type ChangeSummary struct {
	ItemID   int
	Versions []FieldChangeSummary
	// SignificantVersions counts versions with at least one change.
	SignificantVersions int
}

// GetFieldVersions fetches every version of a single field.
func (i *ListItem) GetFieldVersions(ctx context.Context, field *FieldDefinition) (*FieldVersionCollection, error) {
	m := i.model
	if m == nil {
		return nil, ErrNoModel
	}
	if i.ID == 0 {
		return nil, fmt.Errorf("%w: version history needs a saved item", ErrInvalidEntity)
	}
	listID, err := m.GetListID()
	if err != nil {
		return nil, err
	}

	raw, err := m.service.GetFieldVersionHistory(ctx, VersionHistoryRequest{
		ListName:  listID,
		WebURL:    m.def.WebURL(),
		ItemID:    i.ID,
		FieldName: field.WireName(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get versions of %s for item %d: %w", field.WireName(), i.ID, err)
	}
	resp, err := ParseResponse(OpGetVersionCollection, raw)
	if err != nil {
		return nil, err
	}

	// The server lists the newest version first.
	n := len(resp.Versions)
	collection := &FieldVersionCollection{Field: field, Versions: make([]FieldVersion, 0, n)}
	for idx := n - 1; idx >= 0; idx-- {
		attrs := resp.Versions[idx]
		value, err := field.Decode(attrs[field.WireName()], m.location)
		if err != nil {
			return nil, err
		}
		fv := FieldVersion{Version: n - idx, Value: value}
		if editor, err := ParseUser(attrs["Editor"]); err == nil {
			fv.Editor = editor
		}
		if modified, err := parseDateTime(attrs["Modified"], m.location); err == nil {
			fv.Modified = modified
		}
		collection.Versions = append(collection.Versions, fv)
	}
	return collection, nil
}

// GetVersionHistory fetches the named fields (all editable fields when none are
// given) concurrently and merges them into one snapshot per version. Values
// missing at a version are carried forward from the previous one.
func (i *ListItem) GetVersionHistory(ctx context.Context, names ...string) (*VersionHistory, error) {
	m := i.model
	if m == nil {
		return nil, ErrNoModel
	}
	fields, err := m.resolveFields(names)
	if err != nil {
		return nil, err
	}

	collections := make([]*FieldVersionCollection, len(fields))
	g, gctx := errgroup.WithContext(ctx)
	for idx, f := range fields {
		g.Go(func() error {
			c, err := i.GetFieldVersions(gctx, f)
			if err != nil {
				return err
			}
			collections[idx] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshots := make(map[int]*VersionSnapshot)
	assigned := make(map[int]map[string]bool)
	for _, c := range collections {
		for _, fv := range c.Versions {
			snap, ok := snapshots[fv.Version]
			if !ok {
				item := newListItem(m)
				item.ID = i.ID
				snap = &VersionSnapshot{Version: fv.Version, Item: item}
				snapshots[fv.Version] = snap
				assigned[fv.Version] = make(map[string]bool)
			}
			if snap.Editor == nil {
				snap.Editor = fv.Editor
			}
			if snap.Modified.IsZero() {
				snap.Modified = fv.Modified
			}
			snap.Item.Set(c.Field.MappedName(), fv.Value)
			assigned[fv.Version][c.Field.MappedName()] = true
		}
	}

	numbers := make([]int, 0, len(snapshots))
	for n := range snapshots {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	history := &VersionHistory{ItemID: i.ID, Fields: fields, Versions: make([]*VersionSnapshot, 0, len(numbers))}
	var prev *VersionSnapshot
	for _, n := range numbers {
		snap := snapshots[n]
		for _, f := range fields {
			if assigned[n][f.MappedName()] {
				continue
			}
			if prev != nil {
				snap.Item.Set(f.MappedName(), cloneValue(prev.Item.Get(f.MappedName())))
			} else {
				snap.Item.Set(f.MappedName(), f.DefaultValue())
			}
		}
		if m.factory != nil {
			m.factory(snap.Item)
		}
		history.Versions = append(history.Versions, snap)
		prev = snap
	}
	return history, nil
}

// GetChangeSummary diffs each version against the one before it. The first
// version has nothing to compare against and reports no changes.
func (i *ListItem) GetChangeSummary(ctx context.Context, names ...string) (*ChangeSummary, error) {
	history, err := i.GetVersionHistory(ctx, names...)
	if err != nil {
		return nil, err
	}
	return history.Summarize(), nil
}

// Summarize reduces the history to per-version change summaries.
func (h *VersionHistory) Summarize() *ChangeSummary {
	summary := &ChangeSummary{ItemID: h.ItemID, Versions: make([]FieldChangeSummary, 0, len(h.Versions))}
	for idx, snap := range h.Versions {
		s := FieldChangeSummary{Version: snap.Version, Editor: snap.Editor, Modified: snap.Modified}
		if idx > 0 {
			s.Changes = diffItems(h.Fields, h.Versions[idx-1].Item, snap.Item)
		}
		if s.HasChanges() {
			summary.SignificantVersions++
		}
		summary.Versions = append(summary.Versions, s)
	}
	return summary
}

// diffItems compares the formatted values of the editable fields.
func diffItems(fields []*FieldDefinition, before, after *ListItem) []FieldChange {
	var changes []FieldChange
	for _, f := range fields {
		if f.ReadOnly() {
			continue
		}
		bf := f.FormattedValue(before)
		af := f.FormattedValue(after)
		if bf == af {
			continue
		}
		changes = append(changes, FieldChange{
			Field:           f.MappedName(),
			DisplayName:     f.DisplayName(),
			Before:          before.Get(f.MappedName()),
			After:           after.Get(f.MappedName()),
			BeforeFormatted: bf,
			AfterFormatted:  af,
		})
	}
	return changes
}
