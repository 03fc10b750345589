package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spmodel/database"
)

// StorageEntry is one persisted query snapshot.
type StorageEntry struct {
	Key       string
	Value     []byte
	SizeBytes int64
	UpdatedAt time.Time
}

// DisabledScope records a scope switched off after a quota error.
type DisabledScope struct {
	Scope      string
	Reason     string
	DisabledAt time.Time
}

// StorageEntryRepository reads and writes snapshots of a single scope.
// A zero limit means unlimited.
type StorageEntryRepository struct {
	*BaseRepository
	scope string
	limit int64
}

func NewStorageEntryRepository(database *database.Database, scope string, limit int64) *StorageEntryRepository {
	return &StorageEntryRepository{
		BaseRepository: NewBaseRepository(database),
		scope:          scope,
		limit:          limit,
	}
}

func (r *StorageEntryRepository) Scope() string {
	return r.scope
}

func (r *StorageEntryRepository) Get(ctx context.Context, key string) (*StorageEntry, error) {
	var (
		entry   StorageEntry
		value   string
		updated sql.NullTime
	)
	err := r.ReadDB().QueryRowContext(ctx,
		`SELECT key, value, size_bytes, updated_at FROM storage_entries WHERE scope = ? AND key = ?`,
		r.scope, key,
	).Scan(&entry.Key, &value, &entry.SizeBytes, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get storage entry %s: %w", key, err)
	}
	entry.Value = []byte(value)
	if t := r.FromNullTime(updated); t != nil {
		entry.UpdatedAt = *t
	}
	return &entry, nil
}

// Upsert writes value under key. The quota check and the write share a
// transaction; an overflowing write returns *QuotaError and changes nothing.
func (r *StorageEntryRepository) Upsert(ctx context.Context, key string, value []byte) error {
	size := int64(len(value))
	return r.WithTx(ctx, func(tx *sql.Tx) error {
		if r.limit > 0 {
			var others int64
			if err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(SUM(size_bytes), 0) FROM storage_entries WHERE scope = ? AND key <> ?`,
				r.scope, key,
			).Scan(&others); err != nil {
				return fmt.Errorf("measure storage scope %s: %w", r.scope, err)
			}
			if others+size > r.limit {
				return &QuotaError{Scope: r.scope, Limit: r.limit, Needed: others + size}
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO storage_entries (scope, key, value, size_bytes, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (scope, key) DO UPDATE SET
			   value = excluded.value,
			   size_bytes = excluded.size_bytes,
			   updated_at = excluded.updated_at`,
			r.scope, key, string(value), size, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("upsert storage entry %s: %w", key, err)
		}
		return nil
	})
}

func (r *StorageEntryRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.WriteDB().ExecContext(ctx,
		`DELETE FROM storage_entries WHERE scope = ? AND key = ?`, r.scope, key,
	); err != nil {
		return fmt.Errorf("delete storage entry %s: %w", key, err)
	}
	return nil
}

// Clear removes every entry of the scope and returns how many were removed.
func (r *StorageEntryRepository) Clear(ctx context.Context) (int64, error) {
	res, err := r.WriteDB().ExecContext(ctx, `DELETE FROM storage_entries WHERE scope = ?`, r.scope)
	if err != nil {
		return 0, fmt.Errorf("clear storage scope %s: %w", r.scope, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Usage returns the entry count and total bytes of the scope.
func (r *StorageEntryRepository) Usage(ctx context.Context) (int, int64, error) {
	var (
		count int
		total int64
	)
	err := r.ReadDB().QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM storage_entries WHERE scope = ?`, r.scope,
	).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("measure storage scope %s: %w", r.scope, err)
	}
	return count, total, nil
}

func (r *StorageEntryRepository) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.ReadDB().QueryContext(ctx,
		`SELECT key FROM storage_entries WHERE scope = ? ORDER BY key`, r.scope)
	if err != nil {
		return nil, fmt.Errorf("list storage keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *StorageEntryRepository) RecordDisabled(ctx context.Context, reason string) error {
	_, err := r.WriteDB().ExecContext(ctx,
		`INSERT INTO storage_disabled (scope, reason, disabled_at) VALUES (?, ?, ?)
		 ON CONFLICT (scope) DO UPDATE SET reason = excluded.reason, disabled_at = excluded.disabled_at`,
		r.scope, reason, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record disabled scope %s: %w", r.scope, err)
	}
	return nil
}

// ListDisabledScopes returns every scope recorded as disabled, newest first.
func (r *StorageEntryRepository) ListDisabledScopes(ctx context.Context) ([]DisabledScope, error) {
	rows, err := r.ReadDB().QueryContext(ctx,
		`SELECT scope, reason, disabled_at FROM storage_disabled ORDER BY disabled_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list disabled scopes: %w", err)
	}
	defer rows.Close()

	var out []DisabledScope
	for rows.Next() {
		var d DisabledScope
		if err := rows.Scan(&d.Scope, &d.Reason, &d.DisabledAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
