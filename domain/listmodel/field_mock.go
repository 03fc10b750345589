package listmodel

import (
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MockOptions controls synthetic value generation.
type MockOptions struct {
	// StaticValue produces the same value on every call.
	StaticValue bool
}

var mockEpoch = time.Date(2015, time.January, 1, 9, 30, 0, 0, time.UTC)

// MockData generates a value of the field's type for tests and demos.
func (f *FieldDefinition) MockData(opts MockOptions) any {
	static := opts.StaticValue
	label := f.DisplayName()
	choices := f.Choices()

	switch f.fieldType {
	case FieldText, FieldNote:
		if static {
			return "Test " + label
		}
		return "Test " + label + " " + uuid.NewString()[:8]
	case FieldHTML:
		if static {
			return "<p>Test " + label + "</p>"
		}
		return "<p>Test " + label + " <b>" + uuid.NewString()[:8] + "</b></p>"
	case FieldChoice:
		if len(choices) == 0 {
			return "Test Choice"
		}
		if static {
			return choices[0]
		}
		return choices[rand.IntN(len(choices))]
	case FieldMultiChoice:
		if len(choices) == 0 {
			return []string{"Test Choice"}
		}
		if static {
			return []string{choices[0]}
		}
		return pickChoices(choices)
	case FieldBoolean:
		if static {
			return true
		}
		return rand.IntN(2) == 1
	case FieldDateTime:
		if static {
			return mockEpoch
		}
		return time.Now().UTC().Truncate(time.Second).Add(-time.Duration(rand.IntN(365*24)) * time.Hour)
	case FieldInteger, FieldCounter:
		if static {
			return 1
		}
		return rand.IntN(10000) + 1
	case FieldFloat, FieldNumber:
		if static {
			return 1.5
		}
		return math.Round(rand.Float64()*100000) / 100
	case FieldCurrency:
		if static {
			return 10.0
		}
		return math.Round(rand.Float64()*100000) / 100
	case FieldLookup:
		id := mockID(static)
		return &Lookup{LookupID: id, LookupValue: "Lookup " + strconv.Itoa(id)}
	case FieldLookupMulti:
		n := mockCount(static)
		out := make([]*Lookup, 0, n)
		for i := 1; i <= n; i++ {
			id := i
			if !static {
				id = mockID(false)
			}
			out = append(out, &Lookup{LookupID: id, LookupValue: "Lookup " + strconv.Itoa(id)})
		}
		return out
	case FieldUser:
		return mockUser(mockID(static))
	case FieldUserMulti:
		n := mockCount(static)
		out := make([]*User, 0, n)
		for i := 1; i <= n; i++ {
			id := i
			if !static {
				id = mockID(false)
			}
			out = append(out, mockUser(id))
		}
		return out
	case FieldJSON:
		if static {
			return map[string]any{"test": true}
		}
		return map[string]any{"test": true, "id": uuid.NewString()}
	case FieldAttachments:
		return []string{}
	default:
		return f.DefaultValue()
	}
}

func mockUser(id int) *User {
	name := "Test User " + strconv.Itoa(id)
	return &User{
		LookupID:    id,
		LookupValue: name,
		LoginName:   "i:0#.f|membership|user" + strconv.Itoa(id) + "@example.com",
		Email:       "user" + strconv.Itoa(id) + "@example.com",
	}
}

func mockID(static bool) int {
	if static {
		return 1
	}
	return rand.IntN(1000) + 1
}

func mockCount(static bool) int {
	if static {
		return 1
	}
	return rand.IntN(3) + 1
}

func pickChoices(choices []string) []string {
	out := []string{}
	for _, c := range choices {
		if rand.IntN(2) == 1 {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		out = append(out, choices[0])
	}
	return out
}
