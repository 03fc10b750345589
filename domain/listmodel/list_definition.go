package listmodel

import (
	"fmt"
	"regexp"
	"strings"
)

// WirePrefix precedes every list item attribute on the wire.
const WirePrefix = "ows_"

// Mapped names of the fields every list carries.
const (
	FieldNameID       = "id"
	FieldNameUniqueID = "uniqueId"
	FieldNamePermMask = "permMask"
	FieldNameFileRef  = "fileRef"
	FieldNameModified = "modified"
	FieldNameCreated  = "created"
	FieldNameAuthor   = "author"
	FieldNameEditor   = "editor"
)

var defaultFields = []FieldConfig{
	{WireName: "ID", MappedName: FieldNameID, Type: FieldCounter, ReadOnly: true},
	{WireName: "Modified", MappedName: FieldNameModified, Type: FieldDateTime, ReadOnly: true},
	{WireName: "Created", MappedName: FieldNameCreated, Type: FieldDateTime, ReadOnly: true},
	{WireName: "Author", MappedName: FieldNameAuthor, Type: FieldUser, ReadOnly: true, DisplayName: "Created By"},
	{WireName: "Editor", MappedName: FieldNameEditor, Type: FieldUser, ReadOnly: true, DisplayName: "Modified By"},
	{WireName: "PermMask", MappedName: FieldNamePermMask, Type: FieldText, ReadOnly: true, DisplayName: "Permission Mask"},
	{WireName: "UniqueId", MappedName: FieldNameUniqueID, Type: FieldLookup, ReadOnly: true, DisplayName: "Unique ID"},
	{WireName: "FileRef", MappedName: FieldNameFileRef, Type: FieldLookup, ReadOnly: true, DisplayName: "File Reference"},
}

var guidPattern = regexp.MustCompile(`^\{?[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\}?$`)

// ListConfig is the declarative description of a list, usually loaded from a
// YAML schema file.
type ListConfig struct {
	Title  string `yaml:"title" json:"title"`
	WebURL string `yaml:"webUrl" json:"webUrl"`
	// GUID is used when no environment mapping is configured.
	GUID string `yaml:"guid" json:"guid"`
	// Environments maps a deployment environment name to the list GUID there.
	Environments map[string]string `yaml:"environments" json:"environments"`
	Fields       []FieldConfig     `yaml:"fields" json:"fields"`
}

// ListDefinition aggregates the field definitions of a list. The wire mapping is
// built once and never modified afterwards.
type ListDefinition struct {
	title        string
	webURL       string
	guid         string
	environments map[string]string

	fields     []*FieldDefinition
	byMapped   map[string]*FieldDefinition
	byWire     map[string]*FieldDefinition
	viewFields string
}

// NewListDefinition builds the field definitions, adds the standard read-only
// fields that are not declared explicitly and precomputes the wire mapping.
func NewListDefinition(cfg ListConfig) (*ListDefinition, error) {
	if cfg.Title == "" && cfg.GUID == "" && len(cfg.Environments) == 0 {
		return nil, fmt.Errorf("list definition requires a title, guid or environment mapping")
	}

	def := &ListDefinition{
		title:        cfg.Title,
		webURL:       cfg.WebURL,
		guid:         cfg.GUID,
		environments: make(map[string]string, len(cfg.Environments)),
		byMapped:     make(map[string]*FieldDefinition),
		byWire:       make(map[string]*FieldDefinition),
	}
	for env, id := range cfg.Environments {
		def.environments[env] = id
	}

	declared := make(map[string]bool, len(cfg.Fields))
	for _, fc := range cfg.Fields {
		declared[fc.WireName] = true
	}

	configs := make([]FieldConfig, 0, len(defaultFields)+len(cfg.Fields))
	for _, fc := range defaultFields {
		if !declared[fc.WireName] {
			configs = append(configs, fc)
		}
	}
	configs = append(configs, cfg.Fields...)

	for _, fc := range configs {
		field, err := NewFieldDefinition(fc)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", def.Name(), err)
		}
		if _, dup := def.byMapped[field.MappedName()]; dup {
			return nil, fmt.Errorf("list %s: duplicate mapped name %q", def.Name(), field.MappedName())
		}
		if _, dup := def.byWire[WirePrefix+field.WireName()]; dup {
			return nil, fmt.Errorf("list %s: duplicate static name %q", def.Name(), field.WireName())
		}
		def.fields = append(def.fields, field)
		def.byMapped[field.MappedName()] = field
		def.byWire[WirePrefix+field.WireName()] = field
	}

	def.viewFields = buildViewFields(def.fields)
	return def, nil
}

// Name identifies the list in logs and errors.
func (d *ListDefinition) Name() string {
	if d.title != "" {
		return d.title
	}
	return d.guid
}

func (d *ListDefinition) Title() string { return d.title }

func (d *ListDefinition) WebURL() string { return d.webURL }

// Fields returns every definition in declaration order, standard fields first.
func (d *ListDefinition) Fields() []*FieldDefinition {
	return append([]*FieldDefinition(nil), d.fields...)
}

// EditableFields returns the definitions that are sent back on save.
func (d *ListDefinition) EditableFields() []*FieldDefinition {
	out := make([]*FieldDefinition, 0, len(d.fields))
	for _, f := range d.fields {
		if !f.ReadOnly() {
			out = append(out, f)
		}
	}
	return out
}

// Field finds a definition by mapped name.
func (d *ListDefinition) Field(mappedName string) (*FieldDefinition, bool) {
	f, ok := d.byMapped[mappedName]
	return f, ok
}

// FieldByWireName finds a definition by prefixed wire attribute name (ows_Title).
func (d *ListDefinition) FieldByWireName(attr string) (*FieldDefinition, bool) {
	f, ok := d.byWire[attr]
	return f, ok
}

// FieldByStaticName finds a definition by unprefixed static name.
func (d *ListDefinition) FieldByStaticName(name string) (*FieldDefinition, bool) {
	return d.FieldByWireName(WirePrefix + name)
}

// ViewFields is the CAML projection requesting every defined field.
func (d *ListDefinition) ViewFields() string { return d.viewFields }

// ListID resolves the list GUID for environment. When an environment mapping is
// configured, a missing entry is an error; the plain GUID is only used for lists
// without any mapping.
func (d *ListDefinition) ListID(environment string) (string, error) {
	if len(d.environments) > 0 {
		id, ok := d.environments[environment]
		if !ok || id == "" {
			return "", missingEnvironment(d.Name(), environment)
		}
		return id, nil
	}
	if d.guid != "" {
		return d.guid, nil
	}
	if d.title != "" {
		return d.title, nil
	}
	return "", missingEnvironment(d.Name(), environment)
}

// IsGUID reports whether s looks like a list GUID.
func IsGUID(s string) bool {
	return guidPattern.MatchString(s)
}

func buildViewFields(fields []*FieldDefinition) string {
	var b strings.Builder
	b.WriteString("<ViewFields>")
	for _, f := range fields {
		b.WriteString(`<FieldRef Name="`)
		b.WriteString(xmlEscape(f.WireName()))
		b.WriteString(`"/>`)
	}
	b.WriteString("</ViewFields>")
	return b.String()
}
