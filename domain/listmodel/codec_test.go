package listmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldDefinition_EncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		fieldType FieldType
		value     any
	}{
		{"text", FieldText, "Quarterly plan"},
		{"note", FieldNote, "line one\nline two"},
		{"choice", FieldChoice, "Open"},
		{"boolean_true", FieldBoolean, true},
		{"boolean_false", FieldBoolean, false},
		{"datetime", FieldDateTime, time.Date(2024, time.February, 29, 23, 59, 1, 0, time.UTC)},
		{"integer", FieldInteger, 42},
		{"counter", FieldCounter, 7},
		{"float", FieldFloat, 3.25},
		{"number", FieldNumber, -0.5},
		{"currency", FieldCurrency, 1999.99},
		{"multichoice", FieldMultiChoice, []string{"Red", "Green"}},
		{"lookup", FieldLookup, &Lookup{LookupID: 3, LookupValue: "Project X"}},
		{"lookup_multi", FieldLookupMulti, []*Lookup{{LookupID: 1, LookupValue: "A"}, {LookupID: 2, LookupValue: "B"}}},
		{"user", FieldUser, &User{LookupID: 9, LookupValue: "Jane Doe"}},
		{"user_multi", FieldUserMulti, []*User{{LookupID: 1, LookupValue: "Alice"}, {LookupID: 2, LookupValue: "Bob"}}},
		{"html", FieldHTML, `<p class="x">Fish & "chips"</p>`},
		{"json", FieldJSON, map[string]any{"enabled": true, "limit": float64(5), "tags": []any{"a", "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			field, err := NewFieldDefinition(FieldConfig{WireName: "Value", Type: tt.fieldType})
			require.NoError(t, err)

			// Act
			wire := field.Encode(tt.value)
			decoded, err := field.Decode(wire, time.UTC)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.value, decoded, "wire value %q", wire)
		})
	}
}

func TestFieldDefinition_Encode_WireForms(t *testing.T) {
	tests := []struct {
		name      string
		fieldType FieldType
		value     any
		expected  string
	}{
		{"boolean", FieldBoolean, true, "1"},
		{"datetime_converted_to_utc", FieldDateTime, time.Date(2024, 1, 2, 10, 0, 0, 0, time.FixedZone("CET", 3600)), "2024-01-02T09:00:00Z"},
		{"multichoice", FieldMultiChoice, []string{"a", "b"}, ";#a;#b;#"},
		{"lookup", FieldLookup, &Lookup{LookupID: 4, LookupValue: "Four"}, "4;#Four"},
		{"html_left_for_the_envelope", FieldHTML, "<b>x</b>", "<b>x</b>"},
		{"nil", FieldDateTime, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, err := NewFieldDefinition(FieldConfig{WireName: "Value", Type: tt.fieldType})
			require.NoError(t, err)

			assert.Equal(t, tt.expected, field.Encode(tt.value))
		})
	}
}

func TestEncode_SkipsReadOnlyFields(t *testing.T) {
	// Arrange
	def, err := NewListDefinition(taskListConfig())
	require.NoError(t, err)
	item := newListItem(nil)
	item.ID = 5
	item.Set("title", "Write report")
	item.Set("modified", time.Now())

	// Act
	pairs := Encode(def.Fields(), item)

	// Assert
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "Title")
	assert.NotContains(t, names, "ID")
	assert.NotContains(t, names, "Modified")
	assert.NotContains(t, names, "Editor")
	assert.NotContains(t, names, "PermMask")
}

func TestFieldDefinition_Decode_MalformedJSON(t *testing.T) {
	field, err := NewFieldDefinition(FieldConfig{WireName: "Settings", Type: FieldJSON})
	require.NoError(t, err)

	_, err = field.Decode(`{"broken":`, time.UTC)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "settings", decodeErr.Field)
	assert.Equal(t, `{"broken":`, decodeErr.Value)
}

func TestFieldDefinition_Decode_WireVariants(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	tests := []struct {
		name      string
		fieldType FieldType
		raw       string
		expected  any
	}{
		{"boolean_minus_one", FieldBoolean, "-1", true},
		{"boolean_yes", FieldBoolean, "Yes", true},
		{"boolean_zero", FieldBoolean, "0", false},
		{"datetime_space_in_location", FieldDateTime, "2024-03-01 10:00:00", time.Date(2024, 3, 1, 10, 0, 0, 0, loc)},
		{"datetime_date_only", FieldDateTime, "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, loc)},
		{"counter_float_form", FieldCounter, "5.00000000000000", 5},
		{"calc_float", FieldCalc, "float;#12.5", 12.5},
		{"calc_string", FieldCalc, "string;#Late", "Late"},
		{"attachments_flag", FieldAttachments, "1", true},
		{"attachments_urls", FieldAttachments, ";#https://x/a.pdf;#https://x/b.pdf;#", []string{"https://x/a.pdf", "https://x/b.pdf"}},
		{"empty_uses_default", FieldMultiChoice, "", []string{}},
		{"html_entities_kept", FieldHTML, "<p>Fish &amp; chips</p>", "<p>Fish &amp; chips</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, err := NewFieldDefinition(FieldConfig{WireName: "Value", Type: tt.fieldType})
			require.NoError(t, err)

			decoded, err := field.Decode(tt.raw, loc)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, decoded)
		})
	}
}

func TestFieldDefinition_FromJSON_RestoresTypes(t *testing.T) {
	field, err := NewFieldDefinition(FieldConfig{WireName: "DueDate", Type: FieldDateTime})
	require.NoError(t, err)

	restored, err := field.FromJSON([]byte(`"2024-03-01T10:00:00Z"`))

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), restored)
}
