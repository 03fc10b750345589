package listmodel

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
)

// DisplayTimeLayout is used for formatted DateTime values.
const DisplayTimeLayout = "2006-01-02 15:04"

var stripTags = bluemonday.StrictPolicy()

// FormatValue renders a decoded value of type t as display text. Two values that
// render identically are treated as unchanged by change detection.
func FormatValue(t FieldType, v any) string {
	if v == nil {
		return ""
	}

	switch t {
	case FieldJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	case FieldHTML:
		if s, ok := v.(string); ok {
			return strings.TrimSpace(html.UnescapeString(stripTags.Sanitize(s)))
		}
	case FieldCurrency:
		if f, ok := toFloat(v); ok {
			return "$" + humanize.FormatFloat("#,###.##", f)
		}
	}

	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(DisplayTimeLayout)
	case *time.Time:
		if val == nil || val.IsZero() {
			return ""
		}
		return val.Format(DisplayTimeLayout)
	case int:
		return humanize.Comma(int64(val))
	case int64:
		return humanize.Comma(val)
	case float64:
		return humanize.Commaf(val)
	case *Lookup:
		if val == nil {
			return ""
		}
		return val.LookupValue
	case *User:
		if val == nil {
			return ""
		}
		return val.LookupValue
	case []*Lookup:
		parts := make([]string, 0, len(val))
		for _, l := range val {
			parts = append(parts, l.LookupValue)
		}
		return strings.Join(parts, "; ")
	case []*User:
		parts := make([]string, 0, len(val))
		for _, u := range val {
			parts = append(parts, u.LookupValue)
		}
		return strings.Join(parts, "; ")
	case []string:
		return strings.Join(val, "; ")
	default:
		return fmt.Sprint(val)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
