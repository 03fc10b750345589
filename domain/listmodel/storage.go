package listmodel

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"spmodel/domain/events"
	"spmodel/logging"
)

// Storage persists query snapshots between runs. Implementations return
// ErrQuotaExceeded when a write does not fit.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// backendStates holds one disabled flag per storage backend, shared by every
// query writing to it.
var backendStates sync.Map

type backendState struct {
	disabled atomic.Bool
}

// stateFor returns the process-wide state of inner. Backends that cannot be
// used as map keys get a private state.
func stateFor(inner Storage) *backendState {
	if !reflect.TypeOf(inner).Comparable() {
		return &backendState{}
	}
	state, _ := backendStates.LoadOrStore(inner, &backendState{})
	return state.(*backendState)
}

// guardedStorage never surfaces storage errors. A quota error clears the
// underlying store and switches it off for every query for the rest of the
// process.
type guardedStorage struct {
	inner    Storage
	state    *backendState
	listName string
	events   events.ListEventPublisher
	logger   *logging.Logger
}

func newGuardedStorage(inner Storage, listName string, publisher events.ListEventPublisher) *guardedStorage {
	return &guardedStorage{
		inner:    inner,
		state:    stateFor(inner),
		listName: listName,
		events:   publisher,
		logger:   logging.Default().WithComponent("query_storage").WithList(listName),
	}
}

func (s *guardedStorage) Disabled() bool {
	return s.state.disabled.Load()
}

func (s *guardedStorage) get(ctx context.Context, key string) ([]byte, bool) {
	if s.Disabled() {
		return nil, false
	}
	data, ok, err := s.inner.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read query snapshot", "key", key, "error", err)
		return nil, false
	}
	return data, ok
}

func (s *guardedStorage) set(ctx context.Context, key string, value []byte) {
	if s.Disabled() {
		return
	}
	err := s.inner.Set(ctx, key, value)
	if err == nil {
		if s.Disabled() {
			// Another query disabled the backend while this write was running.
			_ = s.inner.Delete(ctx, key)
			return
		}
		s.logger.Storage("Stored query snapshot", "key", key, "bytes", len(value))
		return
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		s.logger.Warn("Failed to store query snapshot", "key", key, "error", err)
		return
	}

	if !s.state.disabled.CompareAndSwap(false, true) {
		return
	}
	if clearErr := s.inner.Clear(ctx); clearErr != nil {
		s.logger.Error("Failed to clear storage after quota error", "key", key, "error", clearErr)
	}
	s.logger.Error("Storage quota exceeded, snapshot storage disabled", "key", key, "error", err)
	if s.events != nil {
		s.events.PublishStorageDisabled(events.StorageDisabledEvent{
			ListName:  s.listName,
			Key:       key,
			Reason:    err.Error(),
			Timestamp: time.Now(),
		})
	}
}

func (s *guardedStorage) delete(ctx context.Context, key string) {
	if s.Disabled() {
		return
	}
	if err := s.inner.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete query snapshot", "key", key, "error", err)
	}
}
