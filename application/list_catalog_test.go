package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spmodel/domain/listmodel"
	"spmodel/infrastructure/config"
	"spmodel/infrastructure/storage"
	"spmodel/test/helpers"
	"spmodel/test/mocks"
)

const catalogSchema = `
lists:
  - title: Tasks
    webUrl: https://contoso.sharepoint.com/sites/pm
    guid: "{5a1d0c33-1111-4c4c-9a9a-000000000001}"
    fields:
      - {staticName: Title, mappedName: title, objectType: Text}
    queries:
      - name: open
        query: <Query/>
  - title: Documents
    guid: "{5a1d0c33-1111-4c4c-9a9a-000000000002}"
    storage: none
`

func newTestCatalog(t *testing.T, svc listmodel.DataService) (*ListCatalog, *storage.SessionStore) {
	t.Helper()
	schema, err := config.ParseSchema(strings.NewReader(catalogSchema))
	require.NoError(t, err)
	session := storage.NewSessionStore(time.Hour, 0)
	catalog, err := NewListCatalog(CatalogConfig{
		Schema:         schema,
		Service:        svc,
		Query:          &config.QueryConfig{Debounce: time.Millisecond},
		DefaultStorage: "session",
		Stores:         map[string]SnapshotStore{"session": session},
	})
	require.NoError(t, err)
	return catalog, session
}

func TestListCatalog_BuildsModels(t *testing.T) {
	// Arrange & Act
	catalog, _ := newTestCatalog(t, &mocks.MockDataService{})

	// Assert
	assert.Equal(t, []string{"Tasks", "Documents"}, catalog.Names())
	tasks, err := catalog.Model("tasks")
	require.NoError(t, err)
	assert.NotNil(t, tasks.GetQuery("open"))
	assert.Nil(t, tasks.GetQuery())

	docs, err := catalog.Model("Documents")
	require.NoError(t, err)
	assert.NotNil(t, docs.GetQuery(listmodel.PrimaryQueryName))

	_, err = catalog.Model("Missing")
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestListCatalog_ItemsExecutesQueryAndStoresSnapshot(t *testing.T) {
	// Arrange
	svc := &mocks.MockDataService{}
	svc.On("ServiceWrapper", mock.Anything, mock.MatchedBy(func(req *listmodel.Request) bool {
		return req.Operation == listmodel.OpGetListItemChangesSinceToken &&
			req.ListName == "{5a1d0c33-1111-4c4c-9a9a-000000000001}"
	})).Return(helpers.ChangesResponse("token-1", nil, nil,
		helpers.Row{"ID": "2", "Title": "Second"},
		helpers.Row{"ID": "1", "Title": "First"},
	), nil).Once()
	catalog, session := newTestCatalog(t, svc)

	// Act
	items, err := catalog.Items(context.Background(), "Tasks", "open")

	// Assert
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, "First", items[0].Text("title"))
	svc.AssertExpectations(t)

	stats, err := catalog.StorageStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "session", stats[0].Backend)
	sessionStats, err := session.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sessionStats.Entries)
}

func TestListCatalog_UnknownQuery(t *testing.T) {
	catalog, _ := newTestCatalog(t, &mocks.MockDataService{})

	_, err := catalog.Items(context.Background(), "Tasks", "closed")

	assert.ErrorIs(t, err, listmodel.ErrQueryNotFound)
}

func TestNewListCatalog_RequiresSchema(t *testing.T) {
	_, err := NewListCatalog(CatalogConfig{})

	assert.Error(t, err)
}

func TestListCatalog_DefaultQuery(t *testing.T) {
	// Arrange
	catalog, _ := newTestCatalog(t, &mocks.MockDataService{})

	// Act & Assert
	assert.Equal(t, "open", catalog.DefaultQuery("tasks"))
	assert.Equal(t, listmodel.PrimaryQueryName, catalog.DefaultQuery("Documents"))
	assert.Equal(t, listmodel.PrimaryQueryName, catalog.DefaultQuery("Missing"))
}

func TestListCatalog_StorageBackend(t *testing.T) {
	// Arrange
	catalog, _ := newTestCatalog(t, &mocks.MockDataService{})

	// Act & Assert
	assert.Equal(t, "session", catalog.StorageBackend("TASKS"))
	assert.Empty(t, catalog.StorageBackend("Documents"), "lists with storage none have no backend")
	assert.Empty(t, catalog.StorageBackend("Missing"))
}
