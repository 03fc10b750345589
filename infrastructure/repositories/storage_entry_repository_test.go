package repositories

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spmodel/database"
	"spmodel/domain/listmodel"
	"spmodel/logging"
)

func openTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	logger := logging.NewLoggerWithWriter(logging.DefaultConfig(), io.Discard)
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "repo.db"),
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		BusyTimeoutMs:   1000,
		EnableWAL:       true,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestStorageEntryRepository_UpsertGetDelete(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := NewStorageEntryRepository(openTestDatabase(t), "local", 0)

	// Act
	require.NoError(t, repo.Upsert(ctx, "list.query.primary", []byte(`{"changeToken":"1"}`)))
	require.NoError(t, repo.Upsert(ctx, "list.query.primary", []byte(`{"changeToken":"2"}`)))
	entry, err := repo.Get(ctx, "list.query.primary")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.JSONEq(t, `{"changeToken":"2"}`, string(entry.Value))
	assert.Equal(t, int64(len(`{"changeToken":"2"}`)), entry.SizeBytes)

	require.NoError(t, repo.Delete(ctx, "list.query.primary"))
	entry, err = repo.Get(ctx, "list.query.primary")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStorageEntryRepository_QuotaCountsOtherKeysOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewStorageEntryRepository(openTestDatabase(t), "local", 10)

	require.NoError(t, repo.Upsert(ctx, "a", []byte("123456")))
	// Overwriting a key does not count its previous size.
	require.NoError(t, repo.Upsert(ctx, "a", []byte("1234567890")))

	err := repo.Upsert(ctx, "b", []byte("1"))

	var quotaErr *QuotaError
	require.ErrorAs(t, err, &quotaErr)
	assert.ErrorIs(t, err, listmodel.ErrQuotaExceeded)
	assert.Equal(t, int64(11), quotaErr.Needed)
	count, total, err := repo.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(10), total)
}

func TestStorageEntryRepository_ScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openTestDatabase(t)
	local := NewStorageEntryRepository(db, "local", 0)
	other := NewStorageEntryRepository(db, "other", 0)
	require.NoError(t, local.Upsert(ctx, "k", []byte("local")))
	require.NoError(t, other.Upsert(ctx, "k", []byte("other")))

	removed, err := local.Clear(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	keys, err := other.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}

func TestStorageEntryRepository_RecordDisabled(t *testing.T) {
	ctx := context.Background()
	repo := NewStorageEntryRepository(openTestDatabase(t), "local", 0)

	require.NoError(t, repo.RecordDisabled(ctx, "first"))
	require.NoError(t, repo.RecordDisabled(ctx, "second"))
	scopes, err := repo.ListDisabledScopes(ctx)

	require.NoError(t, err)
	require.Len(t, scopes, 1)
	assert.Equal(t, "local", scopes[0].Scope)
	assert.Equal(t, "second", scopes[0].Reason)
}

func TestQuotaError_Message(t *testing.T) {
	err := &QuotaError{Scope: "local", Limit: 5 * 1000 * 1000, Needed: 6 * 1000 * 1000}

	assert.Equal(t, `storage scope "local": writing would use 6.0 MB of 5.0 MB`, err.Error())
}
