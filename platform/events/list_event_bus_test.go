package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spmodel/domain/events"
)

func TestListEventBus_PublishQueryExecuted_Success(t *testing.T) {
	// Arrange
	eventBus := NewListEventBus()
	done := make(chan events.QueryExecutedEvent, 1)
	eventBus.OnQueryExecuted(func(event events.QueryExecutedEvent) {
		done <- event
	})

	// Act
	testEvent := events.QueryExecutedEvent{
		ListName:  "Tasks",
		QueryName: "primary",
		ItemCount: 12,
		Timestamp: time.Now(),
	}
	eventBus.PublishQueryExecuted(testEvent)

	// Assert
	select {
	case received := <-done:
		assert.Equal(t, "Tasks", received.ListName)
		assert.Equal(t, 12, received.ItemCount)
		assert.False(t, received.Timestamp.IsZero())
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Handler was not called within timeout")
	}
}

func TestListEventBus_PublishItemSavedAndDeleted_Success(t *testing.T) {
	// Arrange
	eventBus := NewListEventBus()
	saved := make(chan events.ItemSavedEvent, 1)
	deleted := make(chan events.ItemDeletedEvent, 1)
	eventBus.OnItemSaved(func(event events.ItemSavedEvent) { saved <- event })
	eventBus.OnItemDeleted(func(event events.ItemDeletedEvent) { deleted <- event })

	// Act
	eventBus.PublishItemSaved(events.ItemSavedEvent{ListName: "Tasks", ItemID: 4, Created: true})
	eventBus.PublishItemDeleted(events.ItemDeletedEvent{ListName: "Tasks", ItemID: 5, FileRef: "Docs/a.docx"})

	// Assert
	select {
	case e := <-saved:
		assert.Equal(t, 4, e.ItemID)
		assert.True(t, e.Created)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("ItemSaved handler was not called within timeout")
	}
	select {
	case e := <-deleted:
		assert.Equal(t, "Docs/a.docx", e.FileRef)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("ItemDeleted handler was not called within timeout")
	}
}

func TestListEventBus_HandlerPanic_DoesNotAffectOthers(t *testing.T) {
	// Arrange
	eventBus := NewListEventBus()
	done := make(chan struct{}, 1)
	eventBus.OnStorageDisabled(func(event events.StorageDisabledEvent) {
		panic("handler exploded")
	})
	eventBus.OnStorageDisabled(func(event events.StorageDisabledEvent) {
		done <- struct{}{}
	})

	// Act & Assert
	require.NotPanics(t, func() {
		eventBus.PublishStorageDisabled(events.StorageDisabledEvent{ListName: "Tasks", Key: "k"})
	})
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Healthy handler was not called within timeout")
	}
}

func TestListEventBus_NoHandlers_DoesNotPanic(t *testing.T) {
	eventBus := NewListEventBus()

	require.NotPanics(t, func() {
		eventBus.PublishQueryExecuted(events.QueryExecutedEvent{ListName: "Tasks"})
		eventBus.PublishItemSaved(events.ItemSavedEvent{})
		eventBus.PublishItemDeleted(events.ItemDeletedEvent{})
		eventBus.PublishStorageDisabled(events.StorageDisabledEvent{})
	})
}

func TestListEventBus_ConcurrentPublishing_ThreadSafe(t *testing.T) {
	// Arrange
	eventBus := NewListEventBus()
	var mu sync.Mutex
	received := 0
	eventBus.OnItemSaved(func(event events.ItemSavedEvent) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	// Act
	const publishers = 10
	const perPublisher = 5
	var wg sync.WaitGroup
	wg.Add(publishers)
	for i := 0; i < publishers; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				eventBus.PublishItemSaved(events.ItemSavedEvent{ListName: "Tasks", ItemID: id*perPublisher + j + 1})
			}
		}(i)
	}
	wg.Wait()

	// Assert
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received == publishers*perPublisher
	}, time.Second, 5*time.Millisecond, "All events should have been processed")
}

func TestListEventBus_EventIsolation_HandlersNotCrossCalled(t *testing.T) {
	// Arrange
	eventBus := NewListEventBus()
	queryDone := make(chan bool, 1)
	savedDone := make(chan bool, 1)
	eventBus.OnQueryExecuted(func(event events.QueryExecutedEvent) { queryDone <- true })
	eventBus.OnItemSaved(func(event events.ItemSavedEvent) { savedDone <- true })

	// Act
	eventBus.PublishQueryExecuted(events.QueryExecutedEvent{ListName: "Tasks"})

	// Assert
	select {
	case <-queryDone:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("QueryExecuted handler was not called within timeout")
	}
	select {
	case <-savedDone:
		t.Fatal("ItemSaved handler should NOT have been called")
	case <-time.After(50 * time.Millisecond):
	}
}
