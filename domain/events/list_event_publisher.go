package events

// ListEventPublisher defines the interface for publishing list model events.
type ListEventPublisher interface {
	PublishQueryExecuted(event QueryExecutedEvent)
	PublishItemSaved(event ItemSavedEvent)
	PublishItemDeleted(event ItemDeletedEvent)
	PublishStorageDisabled(event StorageDisabledEvent)
}
