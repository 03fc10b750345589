package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spmodel/domain/listmodel"
)

// SchemaFile is the YAML document describing the lists an application binds to.
//
//	lists:
//	  - title: Tasks
//	    webUrl: https://contoso.sharepoint.com/sites/pm
//	    environments: {production: "{5A1D...}"}
//	    storage: local
//	    fields:
//	      - {staticName: Title, mappedName: title, objectType: Text, required: true}
//	    queries:
//	      - name: open
//	        query: <Query><Where>...</Where></Query>
type SchemaFile struct {
	Lists []ListSchema `yaml:"lists"`
}

// ListSchema is one list definition plus the queries registered on it.
type ListSchema struct {
	listmodel.ListConfig `yaml:",inline"`
	// Storage overrides StorageConfig.Default for this list.
	Storage string        `yaml:"storage"`
	Queries []QuerySchema `yaml:"queries"`
}

// QuerySchema describes a query registered when the list model is built.
type QuerySchema struct {
	Name              string        `yaml:"name"`
	Operation         string        `yaml:"operation"`
	Query             string        `yaml:"query"`
	ViewFields        string        `yaml:"viewFields"`
	QueryOptions      string        `yaml:"queryOptions"`
	RowLimit          int           `yaml:"rowLimit"`
	WebURL            string        `yaml:"webUrl"`
	RunOnce           bool          `yaml:"runOnce"`
	StorageExpiration time.Duration `yaml:"storageExpiration"`
	Debounce          time.Duration `yaml:"debounce"`
}

// Options converts the schema into query options. Storage is attached by the caller.
func (q QuerySchema) Options() listmodel.QueryOptions {
	return listmodel.QueryOptions{
		Name:              q.Name,
		Operation:         listmodel.Operation(q.Operation),
		Query:             strings.TrimSpace(q.Query),
		ViewFields:        strings.TrimSpace(q.ViewFields),
		QueryOptions:      strings.TrimSpace(q.QueryOptions),
		RowLimit:          q.RowLimit,
		WebURL:            q.WebURL,
		RunOnce:           q.RunOnce,
		StorageExpiration: q.StorageExpiration,
		Debounce:          q.Debounce,
	}
}

// LoadSchemaFile reads and validates the schema file at path.
func LoadSchemaFile(path string) (*SchemaFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()
	return ParseSchema(f)
}

// ParseSchema decodes a schema document. Unknown keys are rejected.
func ParseSchema(r io.Reader) (*SchemaFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var schema SchemaFile
	if err := dec.Decode(&schema); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("schema is empty")
		}
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &schema, nil
}

// Validate checks list titles and query names are unique and that every list
// definition can be built.
func (s *SchemaFile) Validate() error {
	if len(s.Lists) == 0 {
		return fmt.Errorf("schema declares no lists")
	}
	titles := make(map[string]bool, len(s.Lists))
	for i, l := range s.Lists {
		name := strings.ToLower(firstNonEmptyString(l.Title, l.GUID))
		if titles[name] {
			return fmt.Errorf("list %d: duplicate list %q", i, name)
		}
		titles[name] = true

		switch strings.ToLower(l.Storage) {
		case "", "local", "session", "none":
		default:
			return fmt.Errorf("list %s: unknown storage %q", name, l.Storage)
		}
		if _, err := listmodel.NewListDefinition(l.ListConfig); err != nil {
			return fmt.Errorf("list %s: %w", name, err)
		}

		queries := make(map[string]bool, len(l.Queries))
		for _, q := range l.Queries {
			qn := firstNonEmptyString(q.Name, listmodel.PrimaryQueryName)
			if queries[qn] {
				return fmt.Errorf("list %s: duplicate query %q", name, qn)
			}
			queries[qn] = true
		}
	}
	return nil
}

// List returns the schema of the list with the given title, case-insensitively.
func (s *SchemaFile) List(title string) (ListSchema, bool) {
	for _, l := range s.Lists {
		if strings.EqualFold(l.Title, title) {
			return l, true
		}
	}
	return ListSchema{}, false
}

func firstNonEmptyString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
