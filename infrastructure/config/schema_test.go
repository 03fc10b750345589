package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spmodel/domain/listmodel"
)

const tasksSchema = `
lists:
  - title: Tasks
    webUrl: https://contoso.sharepoint.com/sites/pm
    environments:
      production: "{5a1d0c33-1111-4c4c-9a9a-000000000001}"
    storage: session
    fields:
      - {staticName: Title, mappedName: title, objectType: Text, required: true}
      - {staticName: Status, mappedName: status, objectType: Choice, choices: [Open, Closed]}
      - {staticName: AssignedTo, mappedName: assignedTo, objectType: User}
    queries:
      - name: open
        query: <Query><Where><Eq><FieldRef Name="Status"/><Value Type="Choice">Open</Value></Eq></Where></Query>
        rowLimit: 200
        storageExpiration: 24h
  - title: Documents
    guid: "{5a1d0c33-1111-4c4c-9a9a-000000000002}"
    fields:
      - {staticName: FileLeafRef, mappedName: fileName, objectType: Text, readOnly: true}
`

func TestParseSchema(t *testing.T) {
	// Act
	schema, err := ParseSchema(strings.NewReader(tasksSchema))

	// Assert
	require.NoError(t, err)
	require.Len(t, schema.Lists, 2)

	tasks, ok := schema.List("tasks")
	require.True(t, ok)
	assert.Equal(t, "session", tasks.Storage)
	assert.Equal(t, "{5a1d0c33-1111-4c4c-9a9a-000000000001}", tasks.Environments["production"])
	require.Len(t, tasks.Fields, 3)
	assert.Equal(t, listmodel.FieldChoice, tasks.Fields[1].Type)
	assert.Equal(t, []string{"Open", "Closed"}, tasks.Fields[1].Choices)

	require.Len(t, tasks.Queries, 1)
	opts := tasks.Queries[0].Options()
	assert.Equal(t, "open", opts.Name)
	assert.Equal(t, 200, opts.RowLimit)
	assert.Equal(t, 24*time.Hour, opts.StorageExpiration)
	assert.True(t, strings.HasPrefix(opts.Query, "<Query>"))
}

func TestParseSchema_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"no_lists", "lists: []"},
		{"unknown_key", "lists:\n  - title: A\n    colour: red\n"},
		{"duplicate_list", "lists:\n  - title: A\n  - title: a\n"},
		{"unknown_storage", "lists:\n  - title: A\n    storage: cloud\n"},
		{"duplicate_query", "lists:\n  - title: A\n    queries:\n      - name: q\n      - name: q\n"},
		{"duplicate_primary", "lists:\n  - title: A\n    queries:\n      - query: x\n      - name: primary\n"},
		{"unknown_field_type", "lists:\n  - title: A\n    fields:\n      - {staticName: X, mappedName: x, objectType: Blob}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tasksSchema), 0o600))

	schema, err := LoadSchemaFile(path)
	require.NoError(t, err)
	assert.Len(t, schema.Lists, 2)

	_, err = LoadSchemaFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
