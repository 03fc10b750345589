package application

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"spmodel/domain/sharepoint"
	"spmodel/logging"
)

// UserDirectory looks up the current user's profile and group memberships.
type UserDirectory interface {
	GetUserProfileByName(ctx context.Context, accountName string) (*sharepoint.UserProfile, error)
	GetGroupCollectionFromUser(ctx context.Context, loginName string) ([]sharepoint.Group, error)
}

// UserService memoizes the current user's profile and groups. Concurrent
// callers share one in-flight request; force bypasses the memoized value.
type UserService struct {
	directory UserDirectory
	calls     singleflight.Group
	logger    *logging.Logger

	mu      sync.RWMutex
	profile *sharepoint.UserProfile
	groups  []sharepoint.Group
}

func NewUserService(directory UserDirectory) *UserService {
	return &UserService{
		directory: directory,
		logger:    logging.Default().WithComponent("user_service"),
	}
}

// GetUserProfile returns the current user's profile.
func (s *UserService) GetUserProfile(ctx context.Context, force bool) (*sharepoint.UserProfile, error) {
	if !force {
		s.mu.RLock()
		profile := s.profile
		s.mu.RUnlock()
		if profile != nil {
			return profile, nil
		}
	}

	v, err := wait(ctx, s.calls.DoChan("profile", func() (interface{}, error) {
		profile, err := s.directory.GetUserProfileByName(context.WithoutCancel(ctx), "")
		if err != nil {
			return nil, fmt.Errorf("get current user profile: %w", err)
		}
		s.mu.Lock()
		s.profile = profile
		s.mu.Unlock()
		s.logger.SharePoint("Loaded user profile", "account", profile.AccountName)
		return profile, nil
	}))
	if err != nil {
		return nil, err
	}
	return v.(*sharepoint.UserProfile), nil
}

// GetGroupCollection returns the groups the current user belongs to.
func (s *UserService) GetGroupCollection(ctx context.Context, force bool) ([]sharepoint.Group, error) {
	if !force {
		s.mu.RLock()
		groups := s.groups
		s.mu.RUnlock()
		if groups != nil {
			return append([]sharepoint.Group(nil), groups...), nil
		}
	}

	profile, err := s.GetUserProfile(ctx, false)
	if err != nil {
		return nil, err
	}

	v, err := wait(ctx, s.calls.DoChan("groups", func() (interface{}, error) {
		groups, err := s.directory.GetGroupCollectionFromUser(context.WithoutCancel(ctx), profile.AccountName)
		if err != nil {
			return nil, fmt.Errorf("get groups for %s: %w", profile.AccountName, err)
		}
		if groups == nil {
			groups = []sharepoint.Group{}
		}
		s.mu.Lock()
		s.groups = groups
		s.mu.Unlock()
		s.logger.SharePoint("Loaded user groups", "account", profile.AccountName, "groups", len(groups))
		return groups, nil
	}))
	if err != nil {
		return nil, err
	}
	return append([]sharepoint.Group(nil), v.([]sharepoint.Group)...), nil
}

// wait returns the shared result, or ctx's error if the caller gives up first.
// The shared request keeps running for the other callers.
func wait(ctx context.Context, ch <-chan singleflight.Result) (interface{}, error) {
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsMemberOf reports whether the current user belongs to the named group.
func (s *UserService) IsMemberOf(ctx context.Context, groupName string) (bool, error) {
	groups, err := s.GetGroupCollection(ctx, false)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		if strings.EqualFold(g.Name, groupName) {
			return true, nil
		}
	}
	return false, nil
}
