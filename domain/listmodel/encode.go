package listmodel

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WireTimeLayout is the format DateTime values are submitted in.
const WireTimeLayout = "2006-01-02T15:04:05Z"

// Encode builds the value pairs for the given fields of item, skipping read-only
// fields.
func Encode(fields []*FieldDefinition, item *ListItem) []ValuePair {
	pairs := make([]ValuePair, 0, len(fields))
	for _, f := range fields {
		if f.ReadOnly() {
			continue
		}
		pairs = append(pairs, ValuePair{
			Name:  f.WireName(),
			Value: f.Encode(item.Get(f.MappedName())),
		})
	}
	return pairs
}

// Encode renders a Go value in the form SharePoint expects for this field.
func (f *FieldDefinition) Encode(v any) string {
	if v == nil {
		return ""
	}

	switch f.fieldType {
	case FieldJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	case FieldMultiChoice:
		if choices, ok := v.([]string); ok {
			if len(choices) == 0 {
				return ""
			}
			return ListDelimiter + strings.Join(choices, ListDelimiter) + ListDelimiter
		}
	}

	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return "0"
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.UTC().Format(WireTimeLayout)
	case *time.Time:
		if val == nil || val.IsZero() {
			return ""
		}
		return val.UTC().Format(WireTimeLayout)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case *Lookup:
		if val == nil {
			return ""
		}
		return val.String()
	case *User:
		if val == nil {
			return ""
		}
		return val.String()
	case []*Lookup:
		parts := make([]string, 0, len(val))
		for _, l := range val {
			parts = append(parts, l.String())
		}
		return strings.Join(parts, ListDelimiter)
	case []*User:
		parts := make([]string, 0, len(val))
		for _, u := range val {
			parts = append(parts, u.String())
		}
		return strings.Join(parts, ListDelimiter)
	case []string:
		return strings.Join(val, ListDelimiter)
	default:
		return fmt.Sprint(val)
	}
}
