package listmodel

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Decode converts a raw wire value into the field's Go value. Empty input yields
// the type's default value.
func (f *FieldDefinition) Decode(raw string, loc *time.Location) (any, error) {
	if raw == "" {
		return f.DefaultValue(), nil
	}
	v, err := decodeValue(f.fieldType, raw, loc)
	if err != nil {
		return nil, &DecodeError{Field: f.mappedName, Value: raw, Err: err}
	}
	return v, nil
}

func decodeValue(t FieldType, raw string, loc *time.Location) (any, error) {
	switch t {
	case FieldBoolean:
		return parseBool(raw), nil
	case FieldDateTime:
		return parseDateTime(raw, loc)
	case FieldInteger, FieldCounter:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			// Counters occasionally arrive as "5.00000000000000"
			f, ferr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if ferr != nil {
				return nil, err
			}
			return int(f), nil
		}
		return n, nil
	case FieldFloat, FieldNumber, FieldCurrency:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case FieldLookup:
		return ParseLookup(raw)
	case FieldUser:
		return ParseUser(raw)
	case FieldLookupMulti:
		return ParseLookupMulti(raw)
	case FieldUserMulti:
		return ParseUserMulti(raw)
	case FieldMultiChoice:
		return ParseMultiChoice(raw), nil
	case FieldJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, err
		}
		return v, nil
	case FieldCalc:
		return decodeCalc(raw, loc)
	case FieldAttachments:
		if strings.HasPrefix(raw, ListDelimiter) {
			return ParseMultiChoice(raw), nil
		}
		return parseBool(raw), nil
	default:
		return raw, nil
	}
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "-1", "true", "yes":
		return true
	default:
		return false
	}
}

func parseDateTime(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// decodeCalc handles calculated values, which carry their result type as a
// prefix: "float;#12.5", "datetime;#2024-01-02 10:00:00".
func decodeCalc(raw string, loc *time.Location) (any, error) {
	kind, value, found := strings.Cut(raw, ListDelimiter)
	if !found {
		return raw, nil
	}
	switch strings.ToLower(kind) {
	case "float", "number", "currency":
		if value == "" {
			return nil, nil
		}
		return strconv.ParseFloat(value, 64)
	case "datetime":
		if value == "" {
			return nil, nil
		}
		return parseDateTime(value, loc)
	case "boolean":
		return parseBool(value), nil
	default:
		return value, nil
	}
}

// decodeResponse merges a parsed response into target: deletions first, then
// list metadata, then rows. seed supplies instances that must be updated in place
// when their id shows up.
func (m *Model) decodeResponse(resp *Response, target *ItemCache, seed map[int]*ListItem) ([]*ListItem, error) {
	for _, id := range resp.DeletedIDs {
		if target.Delete(id) {
			m.logger.Cache("Removed deleted item", "id", id)
		}
	}

	if resp.List != nil {
		m.extendFromMetadata(resp.List)
	}

	items := make([]*ListItem, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		item, err := m.decodeRow(row, target, seed)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *Model) decodeRow(row Attrs, target *ItemCache, seed map[int]*ListItem) (*ListItem, error) {
	values := make(map[string]any, len(row))
	for attr, raw := range row {
		field, ok := m.def.FieldByWireName(attr)
		if !ok {
			continue
		}
		v, err := field.Decode(raw, m.location)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", m.def.Name(), err)
		}
		values[field.MappedName()] = v
	}

	id, _ := values[FieldNameID].(int)
	if id <= 0 {
		return nil, fmt.Errorf("list %s: %w: row without an id", m.def.Name(), ErrInvalidEntity)
	}

	item := m.findInstance(id, target, seed)
	if item == nil {
		item = newListItem(m)
	}
	item.load(m.def.Fields(), values)
	if m.factory != nil {
		m.factory(item)
	}
	item.setPristine(item.Snapshot())

	if err := target.Set(id, item); err != nil {
		return nil, err
	}
	return item, nil
}

// findInstance looks for an existing instance to update in place: the target
// cache first, then seeded instances, then every other query cache.
func (m *Model) findInstance(id int, target *ItemCache, seed map[int]*ListItem) *ListItem {
	if item, ok := target.Get(id); ok {
		return item
	}
	if item, ok := seed[id]; ok {
		return item
	}
	for _, q := range m.queryList() {
		if q.cache == target {
			continue
		}
		if item, ok := q.cache.Get(id); ok {
			return item
		}
	}
	return nil
}
