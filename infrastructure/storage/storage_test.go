package storage

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
	"spmodel/infrastructure/repositories"
	"spmodel/logging"
)

func newLocalStore(t *testing.T, limit int64) *LocalStore {
	t.Helper()
	logger := logging.NewLoggerWithWriter(logging.DefaultConfig(), io.Discard)
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "local.db"),
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		BusyTimeoutMs:   1000,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLocalStore(repositories.NewStorageEntryRepository(db, "local", limit))
}

func TestStores_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		store func(t *testing.T) listmodel.Storage
	}{
		{"local", func(t *testing.T) listmodel.Storage { return newLocalStore(t, 0) }},
		{"session", func(t *testing.T) listmodel.Storage { return NewSessionStore(time.Hour, 0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ctx := context.Background()
			store := tt.store(t)

			// Act
			require.NoError(t, store.Set(ctx, "k1", []byte("one")))
			require.NoError(t, store.Set(ctx, "k2", []byte("two")))
			got, ok, err := store.Get(ctx, "k1")

			// Assert
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("one"), got)

			require.NoError(t, store.Delete(ctx, "k1"))
			_, ok, err = store.Get(ctx, "k1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Clear(ctx))
			_, ok, err = store.Get(ctx, "k2")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStores_QuotaExceeded(t *testing.T) {
	tests := []struct {
		name  string
		store func(t *testing.T) listmodel.Storage
	}{
		{"local", func(t *testing.T) listmodel.Storage { return newLocalStore(t, 8) }},
		{"session", func(t *testing.T) listmodel.Storage { return NewSessionStore(time.Hour, 8) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := tt.store(t)
			require.NoError(t, store.Set(ctx, "a", []byte("12345")))
			require.NoError(t, store.Set(ctx, "a", []byte("12345678")))

			err := store.Set(ctx, "b", []byte("x"))

			assert.ErrorIs(t, err, listmodel.ErrQuotaExceeded)
			_, ok, _ := store.Get(ctx, "b")
			assert.False(t, ok)
		})
	}
}

func TestSessionStore_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(20*time.Millisecond, 0)
	require.NoError(t, store.Set(ctx, "k", []byte("v")))

	assert.Eventually(t, func() bool {
		_, ok, _ := store.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestSessionStore_CopiesValue(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0, 0)
	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))

	value[0] = 'z'

	got, _, _ := store.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), got)
}

func TestStores_Stats(t *testing.T) {
	ctx := context.Background()
	local := newLocalStore(t, 0)
	session := NewSessionStore(time.Hour, 0)
	for _, s := range []listmodel.Storage{local, session} {
		require.NoError(t, s.Set(ctx, "a", []byte("1234")))
		require.NoError(t, s.Set(ctx, "b", []byte("56")))
	}

	localStats, err := local.Stats(ctx)
	require.NoError(t, err)
	sessionStats, err := session.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, Stats{Backend: "local", Entries: 2, Bytes: 6}, localStats)
	assert.Equal(t, Stats{Backend: "session", Entries: 2, Bytes: 6}, sessionStats)
	assert.Equal(t, "6 B", localStats.HumanBytes())
}

func TestLocalStore_StatsReportDisabledReason(t *testing.T) {
	ctx := context.Background()
	local := newLocalStore(t, 0)

	require.NoError(t, local.RecordDisabled(ctx, "Tasks: quota exceeded"))

	stats, err := local.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Tasks: quota exceeded", stats.Disabled)
}

func TestLocalStore_RefusesSnapshotsOnceDisabled(t *testing.T) {
	ctx := context.Background()
	local := newLocalStore(t, 0)
	require.NoError(t, local.Set(ctx, "tasks.query.open", []byte("abc")))

	require.NoError(t, local.RecordDisabled(ctx, "Tasks: quota exceeded"))

	_, ok, err := local.Get(ctx, "tasks.query.open")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, local.Set(ctx, "tasks.query.all", []byte("def")), ErrDisabled)
	assert.True(t, local.Disabled())
}
