package listmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type storedQuery struct {
	ChangeToken  string                    `json:"changeToken"`
	IndexedCache map[string]map[string]any `json:"indexedCache"`
	LastRun      time.Time                 `json:"lastRun"`
}

type storedQueryRaw struct {
	ChangeToken  string                                `json:"changeToken"`
	IndexedCache map[string]map[string]json.RawMessage `json:"indexedCache"`
	LastRun      time.Time                             `json:"lastRun"`
}

// StorageKey is the key snapshots of this query are stored under.
func (q *Query) StorageKey() (string, error) {
	listID, err := q.model.GetListID()
	if err != nil {
		return "", err
	}
	return listID + ".query." + q.name, nil
}

// persist writes the cache snapshot. Failures are logged by the storage guard.
func (q *Query) persist(ctx context.Context) {
	if q.storage == nil || q.storage.Disabled() {
		return
	}
	key, err := q.StorageKey()
	if err != nil {
		return
	}

	snapshot := storedQuery{
		ChangeToken:  q.ChangeToken(),
		IndexedCache: make(map[string]map[string]any, q.cache.Size()),
		LastRun:      q.now().UTC(),
	}
	q.cache.Range(func(id int, item *ListItem) bool {
		snapshot.IndexedCache[strconv.Itoa(id)] = item.Snapshot()
		return true
	})

	data, err := json.Marshal(snapshot)
	if err != nil {
		q.logger.Warn("Failed to encode query snapshot", "key", key, "error", err)
		return
	}
	q.storage.set(ctx, key, data)
}

// hydrate loads a stored snapshot into the cache. Expired or unreadable
// snapshots are removed.
func (q *Query) hydrate(ctx context.Context) bool {
	key, err := q.StorageKey()
	if err != nil {
		return false
	}
	data, ok := q.storage.get(ctx, key)
	if !ok {
		return false
	}

	var snapshot storedQueryRaw
	if err := json.Unmarshal(data, &snapshot); err != nil {
		q.logger.Warn("Discarding unreadable query snapshot", "key", key, "error", err)
		q.storage.delete(ctx, key)
		return false
	}
	if q.expiration > 0 && q.now().Sub(snapshot.LastRun) > q.expiration {
		q.logger.Storage("Query snapshot expired", "key", key, "last_run", snapshot.LastRun)
		q.storage.delete(ctx, key)
		return false
	}

	fields := q.model.def.Fields()
	for idKey, raw := range snapshot.IndexedCache {
		id, err := strconv.Atoi(idKey)
		if err != nil || id <= 0 {
			continue
		}
		values, err := q.model.restoreValues(raw)
		if err != nil {
			q.logger.Warn("Skipping unreadable cached item", "key", key, "id", id, "error", err)
			continue
		}
		values[FieldNameID] = id

		item := q.model.findInstance(id, q.cache, nil)
		if item == nil {
			item = newListItem(q.model)
		}
		item.load(fields, values)
		if q.model.factory != nil {
			q.model.factory(item)
		}
		item.setPristine(item.Snapshot())
		if err := q.cache.Set(id, item); err != nil {
			q.logger.Warn("Skipping cached item", "key", key, "id", id, "error", err)
		}
	}

	q.mu.Lock()
	q.changeToken = snapshot.ChangeToken
	q.mu.Unlock()

	q.logger.Storage("Hydrated query from storage", "key", key, "items", len(snapshot.IndexedCache))
	return true
}

// restoreValues converts stored JSON values back to typed field values.
func (m *Model) restoreValues(raw map[string]json.RawMessage) (map[string]any, error) {
	values := make(map[string]any, len(raw))
	for name, msg := range raw {
		switch name {
		case FieldNameID:
			continue
		case FieldNameUniqueID, FieldNamePermMask:
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return nil, fmt.Errorf("restore %s: %w", name, err)
			}
			values[name] = s
			continue
		}
		field, ok := m.def.Field(name)
		if !ok {
			continue
		}
		v, err := field.FromJSON(msg)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", name, err)
		}
		values[name] = v
	}
	return values, nil
}

// FromJSON converts a stored JSON value to the field's Go type.
func (f *FieldDefinition) FromJSON(msg json.RawMessage) (any, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return f.DefaultValue(), nil
	}

	switch f.fieldType {
	case FieldBoolean:
		var b bool
		err := json.Unmarshal(msg, &b)
		return b, err
	case FieldDateTime:
		var t time.Time
		err := json.Unmarshal(msg, &t)
		return t, err
	case FieldInteger, FieldCounter:
		var n float64
		err := json.Unmarshal(msg, &n)
		return int(n), err
	case FieldFloat, FieldNumber, FieldCurrency:
		var n float64
		err := json.Unmarshal(msg, &n)
		return n, err
	case FieldLookup:
		var l Lookup
		err := json.Unmarshal(msg, &l)
		return &l, err
	case FieldUser:
		var u User
		err := json.Unmarshal(msg, &u)
		return &u, err
	case FieldLookupMulti:
		out := []*Lookup{}
		err := json.Unmarshal(msg, &out)
		return out, err
	case FieldUserMulti:
		out := []*User{}
		err := json.Unmarshal(msg, &out)
		return out, err
	case FieldMultiChoice:
		out := []string{}
		err := json.Unmarshal(msg, &out)
		return out, err
	case FieldAttachments:
		out := []string{}
		if err := json.Unmarshal(msg, &out); err == nil {
			return out, nil
		}
		var b bool
		err := json.Unmarshal(msg, &b)
		return b, err
	case FieldCalc, FieldJSON:
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, err
		}
		if s, ok := v.(string); ok && f.fieldType == FieldCalc {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t, nil
			}
		}
		return v, nil
	default:
		var s string
		err := json.Unmarshal(msg, &s)
		return s, err
	}
}
