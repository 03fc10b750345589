package storage

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"spmodel/domain/listmodel"
	"spmodel/infrastructure/repositories"
	"spmodel/logging"
)

// ErrDisabled is returned by writes to a store whose scope was switched off.
var ErrDisabled = errors.New("snapshot storage disabled")

// LocalStore persists query snapshots in sqlite so they survive restarts.
type LocalStore struct {
	repo     *repositories.StorageEntryRepository
	logger   *logging.Logger
	disabled atomic.Bool
}

var _ listmodel.Storage = (*LocalStore)(nil)

func NewLocalStore(repo *repositories.StorageEntryRepository) *LocalStore {
	return &LocalStore{
		repo:   repo,
		logger: logging.Default().WithComponent("local_store"),
	}
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.Disabled() {
		return nil, false, nil
	}
	entry, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if entry == nil {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (s *LocalStore) Set(ctx context.Context, key string, value []byte) error {
	if s.Disabled() {
		return ErrDisabled
	}
	if err := s.repo.Upsert(ctx, key, value); err != nil {
		return err
	}
	s.logger.Storage("Snapshot written", "key", key, "size", humanize.Bytes(uint64(len(value))))
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

func (s *LocalStore) Clear(ctx context.Context) error {
	n, err := s.repo.Clear(ctx)
	if err != nil {
		return err
	}
	s.logger.Storage("Storage cleared", "scope", s.repo.Scope(), "entries", n)
	return nil
}

// RecordDisabled switches the store off for the rest of the process and
// records the reason for the inspector.
func (s *LocalStore) RecordDisabled(ctx context.Context, reason string) error {
	s.disabled.Store(true)
	return s.repo.RecordDisabled(ctx, reason)
}

// Disabled reports whether RecordDisabled was called on this store.
func (s *LocalStore) Disabled() bool {
	return s.disabled.Load()
}

// Stats reports the scope usage for the inspector.
func (s *LocalStore) Stats(ctx context.Context) (Stats, error) {
	count, total, err := s.repo.Usage(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Backend: "local", Entries: count, Bytes: total}

	disabled, err := s.repo.ListDisabledScopes(ctx)
	if err != nil {
		return Stats{}, err
	}
	for _, d := range disabled {
		if d.Scope == s.repo.Scope() {
			stats.Disabled = d.Reason
			break
		}
	}
	return stats, nil
}
