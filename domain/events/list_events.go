package events

import "time"

// QueryExecutedEvent is published after a query finished, successfully or not
type QueryExecutedEvent struct {
	ListName    string
	QueryName   string
	Operation   string
	ItemCount   int
	FromStorage bool
	Duration    time.Duration
	Error       string
	Timestamp   time.Time
}

// ItemSavedEvent is published after an item was created or updated on the server
type ItemSavedEvent struct {
	ListName  string
	ItemID    int
	Created   bool
	Timestamp time.Time
}

// ItemDeletedEvent is published after an item was deleted on the server
type ItemDeletedEvent struct {
	ListName  string
	ItemID    int
	FileRef   string
	Timestamp time.Time
}

// StorageDisabledEvent is published when a snapshot store was cleared and
// switched off after a quota error
type StorageDisabledEvent struct {
	ListName  string
	Key       string
	Reason    string
	Timestamp time.Time
}
