package listmodel

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// FieldType is the SharePoint field type driving (de)serialization.
type FieldType string

const (
	FieldText        FieldType = "Text"
	FieldNote        FieldType = "Note"
	FieldBoolean     FieldType = "Boolean"
	FieldDateTime    FieldType = "DateTime"
	FieldInteger     FieldType = "Integer"
	FieldFloat       FieldType = "Float"
	FieldNumber      FieldType = "Number"
	FieldCurrency    FieldType = "Currency"
	FieldCounter     FieldType = "Counter"
	FieldChoice      FieldType = "Choice"
	FieldMultiChoice FieldType = "MultiChoice"
	FieldLookup      FieldType = "Lookup"
	FieldLookupMulti FieldType = "LookupMulti"
	FieldUser        FieldType = "User"
	FieldUserMulti   FieldType = "UserMulti"
	FieldHTML        FieldType = "HTML"
	FieldJSON        FieldType = "JSON"
	FieldCalc        FieldType = "Calc"
	FieldAttachments FieldType = "Attachments"
)

var knownFieldTypes = map[FieldType]bool{
	FieldText: true, FieldNote: true, FieldBoolean: true, FieldDateTime: true,
	FieldInteger: true, FieldFloat: true, FieldNumber: true, FieldCurrency: true,
	FieldCounter: true, FieldChoice: true, FieldMultiChoice: true, FieldLookup: true,
	FieldLookupMulti: true, FieldUser: true, FieldUserMulti: true, FieldHTML: true,
	FieldJSON: true, FieldCalc: true, FieldAttachments: true,
}

// Valid reports whether t is a supported field type.
func (t FieldType) Valid() bool {
	return knownFieldTypes[t]
}

// IsMulti reports whether values of this type are slices.
func (t FieldType) IsMulti() bool {
	return t == FieldMultiChoice || t == FieldLookupMulti || t == FieldUserMulti
}

// Formatter renders a field of an item for display.
type Formatter func(item *ListItem) string

// FieldConfig is the plain configuration a FieldDefinition is built from.
type FieldConfig struct {
	WireName    string    `yaml:"staticName" json:"staticName"`
	MappedName  string    `yaml:"mappedName" json:"mappedName"`
	Type        FieldType `yaml:"objectType" json:"objectType"`
	ReadOnly    bool      `yaml:"readOnly" json:"readOnly"`
	Required    bool      `yaml:"required" json:"required"`
	DisplayName string    `yaml:"displayName" json:"displayName"`
	Description string    `yaml:"description" json:"description"`
	Choices     []string  `yaml:"choices" json:"choices"`
	Formatter   Formatter `yaml:"-" json:"-"`
}

// FieldMetadata is what the server reports about a field.
type FieldMetadata struct {
	StaticName  string
	DisplayName string
	Description string
	Type        string
	Required    bool
	ReadOnly    bool
	Choices     []string
}

// FieldDefinition describes one list column. Wire name, mapped name and type are
// immutable; display name, description and choices may be extended once from
// server metadata.
type FieldDefinition struct {
	wireName   string
	mappedName string
	fieldType  FieldType
	readOnly   bool
	required   bool
	formatter  Formatter

	mu          sync.RWMutex
	displayName string
	description string
	choices     []string
	extended    bool
}

// NewFieldDefinition validates cfg and builds a field definition.
func NewFieldDefinition(cfg FieldConfig) (*FieldDefinition, error) {
	if cfg.WireName == "" {
		return nil, fmt.Errorf("field definition requires a static name")
	}
	if cfg.MappedName == "" {
		cfg.MappedName = lowerFirst(cfg.WireName)
	}
	if cfg.Type == "" {
		cfg.Type = FieldText
	}
	if !cfg.Type.Valid() {
		return nil, fmt.Errorf("field %s: unknown object type %q", cfg.WireName, cfg.Type)
	}
	displayName := cfg.DisplayName
	if displayName == "" {
		displayName = HumanizeName(cfg.MappedName)
	}

	return &FieldDefinition{
		wireName:    cfg.WireName,
		mappedName:  cfg.MappedName,
		fieldType:   cfg.Type,
		readOnly:    cfg.ReadOnly,
		required:    cfg.Required,
		formatter:   cfg.Formatter,
		displayName: displayName,
		description: cfg.Description,
		choices:     append([]string(nil), cfg.Choices...),
	}, nil
}

// WireName is the internal (static) name, without the ows_ prefix.
func (f *FieldDefinition) WireName() string { return f.wireName }

// MappedName is the property name on list items.
func (f *FieldDefinition) MappedName() string { return f.mappedName }

func (f *FieldDefinition) Type() FieldType { return f.fieldType }

func (f *FieldDefinition) ReadOnly() bool { return f.readOnly }

func (f *FieldDefinition) Required() bool { return f.required }

func (f *FieldDefinition) DisplayName() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.displayName
}

func (f *FieldDefinition) Description() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.description
}

// Choices returns a copy of the configured or server supplied choices.
func (f *FieldDefinition) Choices() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.choices...)
}

// Extend copies server metadata onto the definition. Only the first call has an
// effect; it returns whether the definition changed.
func (f *FieldDefinition) Extend(meta FieldMetadata) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.extended {
		return false
	}
	f.extended = true
	if meta.DisplayName != "" {
		f.displayName = meta.DisplayName
	}
	if meta.Description != "" {
		f.description = meta.Description
	}
	if len(meta.Choices) > 0 {
		f.choices = append([]string(nil), meta.Choices...)
	}
	return true
}

// DefaultValue returns the canonical empty value for the field's type.
func (f *FieldDefinition) DefaultValue() any {
	return DefaultValueForType(f.fieldType)
}

// DefaultValueForType returns the canonical empty value for t.
func DefaultValueForType(t FieldType) any {
	switch t {
	case FieldText, FieldNote, FieldChoice, FieldHTML, FieldCalc:
		return ""
	case FieldBoolean:
		return false
	case FieldMultiChoice, FieldAttachments:
		return []string{}
	case FieldLookupMulti:
		return []*Lookup{}
	case FieldUserMulti:
		return []*User{}
	default:
		// DateTime, Lookup, User, JSON and numbers start out null
		return nil
	}
}

// FormattedValue renders the field of item, using the custom formatter if one
// was configured.
func (f *FieldDefinition) FormattedValue(item *ListItem) string {
	if f.formatter != nil {
		return f.formatter(item)
	}
	return FormatValue(f.fieldType, item.Get(f.mappedName))
}

// HumanizeName turns a camel case property name into words: "dueDate" -> "Due Date".
func HumanizeName(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		prev := runes[i-1]
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
		if r == '_' || r == '-' {
			b.WriteRune(' ')
			continue
		}
		if unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower)) {
			b.WriteRune(' ')
		}
		if prev == '_' || prev == '-' {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
