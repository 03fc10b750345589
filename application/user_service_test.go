package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spmodel/domain/sharepoint"
	"spmodel/test/mocks"
)

const janeAccount = "i:0#.f|membership|jane@contoso.com"

func janeProfile() *sharepoint.UserProfile {
	return &sharepoint.UserProfile{AccountName: janeAccount, DisplayName: "Jane Doe"}
}

func TestUserService_GetUserProfile_Memoized(t *testing.T) {
	// Arrange
	dir := &mocks.MockUserDirectory{}
	dir.On("GetUserProfileByName", mock.Anything, "").Return(janeProfile(), nil).Once()
	service := NewUserService(dir)

	// Act
	first, err := service.GetUserProfile(context.Background(), false)
	require.NoError(t, err)
	second, err := service.GetUserProfile(context.Background(), false)
	require.NoError(t, err)

	// Assert
	assert.Same(t, first, second)
	dir.AssertExpectations(t)
}

func TestUserService_GetUserProfile_ForceRefreshes(t *testing.T) {
	dir := &mocks.MockUserDirectory{}
	dir.On("GetUserProfileByName", mock.Anything, "").Return(janeProfile(), nil).Twice()
	service := NewUserService(dir)

	_, err := service.GetUserProfile(context.Background(), false)
	require.NoError(t, err)
	_, err = service.GetUserProfile(context.Background(), true)
	require.NoError(t, err)

	dir.AssertNumberOfCalls(t, "GetUserProfileByName", 2)
}

func TestUserService_GetUserProfile_ErrorIsNotMemoized(t *testing.T) {
	dir := &mocks.MockUserDirectory{}
	dir.On("GetUserProfileByName", mock.Anything, "").Return(nil, errors.New("throttled")).Once()
	dir.On("GetUserProfileByName", mock.Anything, "").Return(janeProfile(), nil).Once()
	service := NewUserService(dir)

	_, err := service.GetUserProfile(context.Background(), false)
	require.Error(t, err)
	profile, err := service.GetUserProfile(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.DisplayName)
}

func TestUserService_ConcurrentCallersShareRequest(t *testing.T) {
	// Arrange
	release := make(chan struct{})
	dir := &mocks.MockUserDirectory{}
	dir.On("GetUserProfileByName", mock.Anything, "").
		WaitUntil(release).
		Return(janeProfile(), nil)
	service := NewUserService(dir)

	// Act
	var wg sync.WaitGroup
	results := make([]*sharepoint.UserProfile, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := service.GetUserProfile(context.Background(), false)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	close(release)
	wg.Wait()

	// Assert
	for _, p := range results {
		assert.Equal(t, janeAccount, p.AccountName)
	}
	assert.LessOrEqual(t, len(dir.Calls), 5)
}

func TestUserService_GroupsAndMembership(t *testing.T) {
	tests := []struct {
		name  string
		group string
		want  bool
	}{
		{"member", "PM Members", true},
		{"case_insensitive", "pm owners", true},
		{"not_member", "Finance", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &mocks.MockUserDirectory{}
			dir.On("GetUserProfileByName", mock.Anything, "").Return(janeProfile(), nil).Once()
			dir.On("GetGroupCollectionFromUser", mock.Anything, janeAccount).Return([]sharepoint.Group{
				{ID: 3, Name: "PM Owners"},
				{ID: 5, Name: "PM Members"},
			}, nil).Once()
			service := NewUserService(dir)

			got, err := service.IsMemberOf(context.Background(), tt.group)
			require.NoError(t, err)
			again, err := service.IsMemberOf(context.Background(), tt.group)
			require.NoError(t, err)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, again)
			dir.AssertExpectations(t)
		})
	}
}

func TestUserService_GetGroupCollection_ReturnsCopy(t *testing.T) {
	dir := &mocks.MockUserDirectory{}
	dir.On("GetUserProfileByName", mock.Anything, "").Return(janeProfile(), nil)
	dir.On("GetGroupCollectionFromUser", mock.Anything, janeAccount).Return([]sharepoint.Group{{ID: 1, Name: "A"}}, nil)
	service := NewUserService(dir)

	groups, err := service.GetGroupCollection(context.Background(), false)
	require.NoError(t, err)
	groups[0].Name = "changed"

	again, err := service.GetGroupCollection(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "A", again[0].Name)
}

func TestUserService_CancelledCallerDoesNotCancelSharedRequest(t *testing.T) {
	// Arrange
	called := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var seen context.Context
	dir := &mocks.MockUserDirectory{}
	dir.On("GetUserProfileByName", mock.Anything, "").
		Run(func(args mock.Arguments) {
			once.Do(func() {
				seen = args.Get(0).(context.Context)
				close(called)
			})
			<-release
		}).
		Return(janeProfile(), nil)
	service := NewUserService(dir)
	ctx, cancel := context.WithCancel(context.Background())

	// Act
	firstErr := make(chan error, 1)
	go func() {
		_, err := service.GetUserProfile(ctx, false)
		firstErr <- err
	}()
	<-called
	joined := make(chan error, 1)
	go func() {
		_, err := service.GetUserProfile(context.Background(), false)
		joined <- err
	}()
	cancel()
	cancelErr := <-firstErr
	sharedErr := seen.Err()
	close(release)

	// Assert
	assert.ErrorIs(t, cancelErr, context.Canceled)
	assert.NoError(t, sharedErr)
	assert.NoError(t, <-joined)
}
