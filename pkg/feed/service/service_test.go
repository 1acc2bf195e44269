package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shillspot/shillspot/pkg/shill"
	"github.com/shillspot/shillspot/pkg/user"
)

// fakeUsers serves canned directory data.
type fakeUsers struct {
	newUsers    []*user.User
	topShillers []*user.User
	followers   map[int64]int
	following   map[int64][]int64

	gotLimit int
}

func (f *fakeUsers) ListNewUsers(_ context.Context, limit int) ([]*user.User, error) {
	f.gotLimit = limit
	return f.newUsers, nil
}

func (f *fakeUsers) ListTopShillers(_ context.Context, limit int) ([]*user.User, error) {
	f.gotLimit = limit
	return f.topShillers, nil
}

func (f *fakeUsers) CountFollowers(_ context.Context, userID int64) (int, error) {
	return f.followers[userID], nil
}

func (f *fakeUsers) ListFollowingIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.following[userID], nil
}

// fakeShills serves canned shill listings.
type fakeShills struct {
	recent   []*shill.Shill
	followed []*shill.Shill

	gotViewerID   int64
	gotCreatorIDs []int64
}

func (f *fakeShills) ListRecentActive(_ context.Context, limit int) ([]*shill.Shill, error) {
	return f.recent, nil
}

func (f *fakeShills) ListActiveByCreators(_ context.Context, viewerID int64, creatorIDs []int64) ([]*shill.Shill, error) {
	f.gotViewerID = viewerID
	f.gotCreatorIDs = creatorIDs
	return f.followed, nil
}

func newTestService(t *testing.T, users Users, shills Shills, opts Options) Service {
	t.Helper()
	svc, err := NewService(users, shills, opts, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService() failed: %v", err)
	}
	return svc
}

func TestFeedService_TopShillers(t *testing.T) {
	users := &fakeUsers{
		topShillers: []*user.User{
			{ID: 1, Handle: "alpha", Role: user.RoleShiller, Points: 90, Shills: 12},
			{ID: 2, Handle: "beta", Role: user.RoleShiller, Points: 40, Shills: 3},
		},
		followers: map[int64]int{1: 5, 2: 1},
	}
	svc := newTestService(t, users, &fakeShills{}, Options{Limit: 2})

	entries, err := svc.TopShillers(context.Background())
	if err != nil {
		t.Fatalf("TopShillers() failed: %v", err)
	}
	if users.gotLimit != 2 {
		t.Fatalf("expected limit 2, got %d", users.gotLimit)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Handle != "alpha" || entries[0].Followers != 5 || entries[0].Shills != 12 || entries[0].Points != 90 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Followers != 1 {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestFeedService_DefaultLimit(t *testing.T) {
	users := &fakeUsers{}
	svc := newTestService(t, users, &fakeShills{}, Options{})

	if _, err := svc.NewUsers(context.Background()); err != nil {
		t.Fatalf("NewUsers() failed: %v", err)
	}
	if users.gotLimit != 10 {
		t.Fatalf("expected default limit 10, got %d", users.gotLimit)
	}
}

func TestFeedService_RecentShills_Blind(t *testing.T) {
	created := time.Now()
	shills := &fakeShills{
		recent: []*shill.Shill{
			{
				ID:           3,
				CreatorID:    1,
				TokenAddress: "0x2222222222222222222222222222222222222222",
				Reason:       "secret pitch",
				Active:       true,
				CreatedAt:    created,
				Creator:      &user.Summary{ID: 1, Handle: "alpha"},
			},
		},
	}
	svc := newTestService(t, &fakeUsers{}, shills, Options{})

	anns, err := svc.RecentShills(context.Background())
	if err != nil {
		t.Fatalf("RecentShills() failed: %v", err)
	}
	if len(anns) != 1 {
		t.Fatalf("expected 1 announcement, got %d", len(anns))
	}
	ann := anns[0]
	if ann.ID != 3 || ann.Creator == nil || ann.Creator.Handle != "alpha" || !ann.CreatedAt.Equal(created) {
		t.Fatalf("unexpected announcement: %+v", ann)
	}
}

func TestFeedService_FollowedShills(t *testing.T) {
	users := &fakeUsers{following: map[int64][]int64{7: {1, 2}}}
	shills := &fakeShills{
		followed: []*shill.Shill{{ID: 4, CreatorID: 1, Active: true}},
	}
	svc := newTestService(t, users, shills, Options{})

	got, err := svc.FollowedShills(context.Background(), 7)
	if err != nil {
		t.Fatalf("FollowedShills() failed: %v", err)
	}
	if shills.gotViewerID != 7 {
		t.Fatalf("expected viewer id 7, got %d", shills.gotViewerID)
	}
	if len(shills.gotCreatorIDs) != 2 {
		t.Fatalf("expected 2 creator ids, got %v", shills.gotCreatorIDs)
	}
	if len(got) != 1 || got[0].ID != 4 {
		t.Fatalf("unexpected followed shills: %+v", got)
	}
}
