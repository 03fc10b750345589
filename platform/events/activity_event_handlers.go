package events

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"spmodel/domain/events"
	"spmodel/logging"
)

// ActivitySink receives human readable activity entries
type ActivitySink interface {
	Record(entry ActivityEntry)
}

// ActivityEventHandlers converts list events into activity entries
type ActivityEventHandlers struct {
	sink   ActivitySink
	logger *logging.Logger
}

// NewActivityEventHandlers creates event handlers writing to sink
func NewActivityEventHandlers(sink ActivitySink) *ActivityEventHandlers {
	return &ActivityEventHandlers{
		sink:   sink,
		logger: logging.Default().WithComponent("activity_events"),
	}
}

// RegisterHandlers registers all activity handlers with the event bus
func (h *ActivityEventHandlers) RegisterHandlers(eventBus *ListEventBus) {
	eventBus.OnQueryExecuted(h.handleQueryExecuted)
	eventBus.OnItemSaved(h.handleItemSaved)
	eventBus.OnItemDeleted(h.handleItemDeleted)
	eventBus.OnStorageDisabled(h.handleStorageDisabled)
}

func (h *ActivityEventHandlers) handleQueryExecuted(event events.QueryExecutedEvent) {
	entry := ActivityEntry{
		Kind:      ActivityQuery,
		ListName:  event.ListName,
		Timestamp: event.Timestamp,
	}
	switch {
	case event.Error != "":
		entry.Level = LevelError
		entry.Message = fmt.Sprintf("Query %s failed: %s", event.QueryName, event.Error)
	case event.FromStorage:
		entry.Level = LevelInfo
		entry.Message = fmt.Sprintf("Query %s restored %s items from storage",
			event.QueryName, humanize.Comma(int64(event.ItemCount)))
	default:
		entry.Level = LevelInfo
		entry.Message = fmt.Sprintf("Query %s (%s) holds %s items after %s",
			event.QueryName, event.Operation, humanize.Comma(int64(event.ItemCount)), event.Duration.Round(time.Millisecond))
	}
	h.logger.Debug("Handling query executed event", "list", event.ListName, "query", event.QueryName)
	h.sink.Record(entry)
}

func (h *ActivityEventHandlers) handleItemSaved(event events.ItemSavedEvent) {
	verb := "Updated"
	if event.Created {
		verb = "Created"
	}
	h.logger.Debug("Handling item saved event", "list", event.ListName, "item_id", event.ItemID)
	h.sink.Record(ActivityEntry{
		Kind:      ActivityItem,
		Level:     LevelInfo,
		ListName:  event.ListName,
		Message:   fmt.Sprintf("%s item %d", verb, event.ItemID),
		Timestamp: event.Timestamp,
	})
}

func (h *ActivityEventHandlers) handleItemDeleted(event events.ItemDeletedEvent) {
	msg := fmt.Sprintf("Deleted item %d", event.ItemID)
	if event.FileRef != "" {
		msg = fmt.Sprintf("Deleted document %s (item %d)", event.FileRef, event.ItemID)
	}
	h.logger.Debug("Handling item deleted event", "list", event.ListName, "item_id", event.ItemID)
	h.sink.Record(ActivityEntry{
		Kind:      ActivityItem,
		Level:     LevelWarn,
		ListName:  event.ListName,
		Message:   msg,
		Timestamp: event.Timestamp,
	})
}

func (h *ActivityEventHandlers) handleStorageDisabled(event events.StorageDisabledEvent) {
	h.logger.Warn("Handling storage disabled event", "list", event.ListName, "key", event.Key)
	h.sink.Record(ActivityEntry{
		Kind:      ActivityStorage,
		Level:     LevelError,
		ListName:  event.ListName,
		Message:   fmt.Sprintf("Snapshot storage disabled after writing %s: %s", event.Key, event.Reason),
		Timestamp: event.Timestamp,
	})
}
