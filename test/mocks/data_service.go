package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"spmodel/domain/listmodel"
	"spmodel/domain/sharepoint"
)

// MockDataService is a mock implementation of listmodel.DataService for testing
type MockDataService struct {
	mock.Mock
}

func (m *MockDataService) ServiceWrapper(ctx context.Context, req *listmodel.Request) ([]byte, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDataService) GetList(ctx context.Context, listName, webURL string) ([]byte, error) {
	args := m.Called(ctx, listName, webURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDataService) GetFieldVersionHistory(ctx context.Context, req listmodel.VersionHistoryRequest) ([]byte, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDataService) GetAvailableWorkflows(ctx context.Context, webURL, fileRef string) ([]sharepoint.WorkflowTemplate, error) {
	args := m.Called(ctx, webURL, fileRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sharepoint.WorkflowTemplate), args.Error(1)
}

func (m *MockDataService) StartWorkflow(ctx context.Context, req listmodel.StartWorkflowRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
