package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"spmodel/domain/sharepoint"
)

// MockUserDirectory is a mock implementation of application.UserDirectory for testing
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetUserProfileByName(ctx context.Context, accountName string) (*sharepoint.UserProfile, error) {
	args := m.Called(ctx, accountName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharepoint.UserProfile), args.Error(1)
}

func (m *MockUserDirectory) GetGroupCollectionFromUser(ctx context.Context, loginName string) ([]sharepoint.Group, error) {
	args := m.Called(ctx, loginName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sharepoint.Group), args.Error(1)
}
