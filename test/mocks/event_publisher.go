package mocks

import (
	"github.com/stretchr/testify/mock"

	"spmodel/domain/events"
)

// MockListEventPublisher is a mock implementation of ListEventPublisher for testing
type MockListEventPublisher struct {
	mock.Mock
}

func (m *MockListEventPublisher) PublishQueryExecuted(event events.QueryExecutedEvent) {
	m.Called(event)
}

func (m *MockListEventPublisher) PublishItemSaved(event events.ItemSavedEvent) {
	m.Called(event)
}

func (m *MockListEventPublisher) PublishItemDeleted(event events.ItemDeletedEvent) {
	m.Called(event)
}

func (m *MockListEventPublisher) PublishStorageDisabled(event events.StorageDisabledEvent) {
	m.Called(event)
}
