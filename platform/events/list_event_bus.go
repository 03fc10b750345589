package events

import (
	"sync"

	"spmodel/domain/events"
	"spmodel/logging"
)

// ListEventBus provides type-safe event publishing and subscription for list model events
type ListEventBus struct {
	mu     sync.RWMutex
	logger *logging.Logger

	queryExecutedHandlers   []func(events.QueryExecutedEvent)
	itemSavedHandlers       []func(events.ItemSavedEvent)
	itemDeletedHandlers     []func(events.ItemDeletedEvent)
	storageDisabledHandlers []func(events.StorageDisabledEvent)
}

var _ events.ListEventPublisher = (*ListEventBus)(nil)

// NewListEventBus creates a new typed list event bus
func NewListEventBus() *ListEventBus {
	return &ListEventBus{
		logger: logging.Default().WithComponent("list_event_bus"),
	}
}

// Subscribe methods for each event type

func (bus *ListEventBus) OnQueryExecuted(handler func(events.QueryExecutedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.queryExecutedHandlers = append(bus.queryExecutedHandlers, handler)
}

func (bus *ListEventBus) OnItemSaved(handler func(events.ItemSavedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.itemSavedHandlers = append(bus.itemSavedHandlers, handler)
}

func (bus *ListEventBus) OnItemDeleted(handler func(events.ItemDeletedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.itemDeletedHandlers = append(bus.itemDeletedHandlers, handler)
}

func (bus *ListEventBus) OnStorageDisabled(handler func(events.StorageDisabledEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.storageDisabledHandlers = append(bus.storageDisabledHandlers, handler)
}

// Publish methods for each event type. Handlers run asynchronously so a slow
// subscriber never blocks a query.

func (bus *ListEventBus) PublishQueryExecuted(event events.QueryExecutedEvent) {
	bus.mu.RLock()
	handlers := append([]func(events.QueryExecutedEvent){}, bus.queryExecutedHandlers...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		go func(h func(events.QueryExecutedEvent)) {
			defer bus.recoverHandler("QueryExecuted", "list", event.ListName, "query", event.QueryName)
			h(event)
		}(handler)
	}
}

func (bus *ListEventBus) PublishItemSaved(event events.ItemSavedEvent) {
	bus.mu.RLock()
	handlers := append([]func(events.ItemSavedEvent){}, bus.itemSavedHandlers...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		go func(h func(events.ItemSavedEvent)) {
			defer bus.recoverHandler("ItemSaved", "list", event.ListName, "item_id", event.ItemID)
			h(event)
		}(handler)
	}
}

func (bus *ListEventBus) PublishItemDeleted(event events.ItemDeletedEvent) {
	bus.mu.RLock()
	handlers := append([]func(events.ItemDeletedEvent){}, bus.itemDeletedHandlers...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		go func(h func(events.ItemDeletedEvent)) {
			defer bus.recoverHandler("ItemDeleted", "list", event.ListName, "item_id", event.ItemID)
			h(event)
		}(handler)
	}
}

func (bus *ListEventBus) PublishStorageDisabled(event events.StorageDisabledEvent) {
	bus.mu.RLock()
	handlers := append([]func(events.StorageDisabledEvent){}, bus.storageDisabledHandlers...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		go func(h func(events.StorageDisabledEvent)) {
			defer bus.recoverHandler("StorageDisabled", "list", event.ListName, "key", event.Key)
			h(event)
		}(handler)
	}
}

func (bus *ListEventBus) recoverHandler(eventName string, args ...any) {
	if r := recover(); r != nil {
		bus.logger.Error("Event handler panicked in "+eventName, append(args, "panic", r)...)
	}
}
