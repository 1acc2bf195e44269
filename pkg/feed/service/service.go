// Package service assembles the discovery feeds: the top-shillers
// leaderboard, new members, and the public and followed shill feeds.
package service

import (
	"context"
	"fmt"

	"github.com/creasty/defaults"
	"go.uber.org/zap"

	"github.com/shillspot/shillspot/pkg/feed"
	"github.com/shillspot/shillspot/pkg/shill"
	"github.com/shillspot/shillspot/pkg/user"
)

// Users is the member directory slice the feeds read from.
type Users interface {
	ListNewUsers(ctx context.Context, limit int) ([]*user.User, error)
	ListTopShillers(ctx context.Context, limit int) ([]*user.User, error)
	CountFollowers(ctx context.Context, userID int64) (int, error)
	ListFollowingIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Shills is the shill listing slice the feeds read from.
type Shills interface {
	ListRecentActive(ctx context.Context, limit int) ([]*shill.Shill, error)
	ListActiveByCreators(ctx context.Context, viewerID int64, creatorIDs []int64) ([]*shill.Shill, error)
}

// Options tunes feed assembly. Zero values fall back to the struct defaults.
type Options struct {
	Limit int `default:"10"`
}

// Service defines the interface for feed assembly
type Service interface {
	TopShillers(ctx context.Context) ([]*feed.BoardEntry, error)
	NewUsers(ctx context.Context) ([]*user.Summary, error)
	RecentShills(ctx context.Context) ([]*shill.Announcement, error)
	FollowedShills(ctx context.Context, viewerID int64) ([]*shill.Shill, error)
}

type feedService struct {
	users  Users
	shills Shills
	opts   Options
	logger *zap.Logger
}

// NewService creates a new feed service
func NewService(users Users, shills Shills, opts Options, logger *zap.Logger) (Service, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, fmt.Errorf("failed to apply feed defaults: %w", err)
	}
	return &feedService{
		users:  users,
		shills: shills,
		opts:   opts,
		logger: logger,
	}, nil
}

// TopShillers returns the leaderboard: shillers ranked by points with their
// follower and shill counts.
func (s *feedService) TopShillers(ctx context.Context) ([]*feed.BoardEntry, error) {
	shillers, err := s.users.ListTopShillers(ctx, s.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top shillers: %w", err)
	}

	entries := make([]*feed.BoardEntry, len(shillers))
	for i, shiller := range shillers {
		followers, err := s.users.CountFollowers(ctx, shiller.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count followers: %w", err)
		}
		entries[i] = &feed.BoardEntry{
			ID:        shiller.ID,
			Handle:    shiller.Handle,
			Points:    shiller.Points,
			Followers: followers,
			Shills:    shiller.Shills,
		}
	}
	return entries, nil
}

// NewUsers returns the most recently registered members.
func (s *feedService) NewUsers(ctx context.Context) ([]*user.Summary, error) {
	users, err := s.users.ListNewUsers(ctx, s.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list new users: %w", err)
	}

	out := make([]*user.Summary, len(users))
	for i, usr := range users {
		out[i] = usr.Summary()
	}
	return out, nil
}

// RecentShills returns the public blind feed: who shilled and when, never
// the token or the pitch.
func (s *feedService) RecentShills(ctx context.Context) ([]*shill.Announcement, error) {
	shills, err := s.shills.ListRecentActive(ctx, s.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent shills: %w", err)
	}

	out := make([]*shill.Announcement, len(shills))
	for i, sh := range shills {
		out[i] = &shill.Announcement{
			ID:        sh.ID,
			Creator:   sh.Creator,
			CreatedAt: sh.CreatedAt,
		}
	}
	return out, nil
}

// FollowedShills returns the viewer's working set: active shills from the
// shillers they follow, minus the ones they have already completed.
func (s *feedService) FollowedShills(ctx context.Context, viewerID int64) ([]*shill.Shill, error) {
	creatorIDs, err := s.users.ListFollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed shillers: %w", err)
	}

	shills, err := s.shills.ListActiveByCreators(ctx, viewerID, creatorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed shills: %w", err)
	}
	return shills, nil
}
