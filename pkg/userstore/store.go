// Package userstore persists members, follow edges, and the follow-request
// workflow in PostgreSQL.
package userstore

import (
	"context"
	"errors"

	"github.com/shillspot/shillspot/pkg/user"
)

// ErrUserNotFound is returned when a user lookup finds no matching record.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateHandle is returned when a registration races another one for
// the same handle.
var ErrDuplicateHandle = errors.New("handle already taken")

// ErrRequestNotFound is returned when a follow-request lookup finds no
// matching record.
var ErrRequestNotFound = errors.New("follow request not found")

// ErrRequestNotPending is returned when a response targets a request that
// has already been accepted or declined.
var ErrRequestNotPending = errors.New("follow request already responded to")

// ErrDuplicateRequest is returned when a request already exists for the
// (requester, recipient) pair.
var ErrDuplicateRequest = errors.New("follow request already exists")

// UserStore defines member record persistence.
type UserStore interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByID(ctx context.Context, id int64) (*user.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*user.User, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
	SetProfilePicture(ctx context.Context, id int64, path string) error
	ListUsers(ctx context.Context) ([]*user.User, error)
	ListNewUsers(ctx context.Context, limit int) ([]*user.User, error)
	ListTopShillers(ctx context.Context, limit int) ([]*user.User, error)
}

// FollowStore defines persistence for established follower edges.
type FollowStore interface {
	IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error)
	ListFollowing(ctx context.Context, userID int64) ([]*user.User, error)
	ListFollowers(ctx context.Context, userID int64) ([]*user.User, error)
	ListFollowingIDs(ctx context.Context, userID int64) ([]int64, error)
	CountFollowing(ctx context.Context, userID int64) (int, error)
	CountFollowers(ctx context.Context, userID int64) (int, error)
}

// FollowRequestStore defines persistence for the follow-request workflow.
type FollowRequestStore interface {
	CreateFollowRequest(ctx context.Context, req *user.FollowRequest) error
	GetFollowRequest(ctx context.Context, id int64) (*user.FollowRequest, error)
	PairRequestExists(ctx context.Context, requesterID, recipientID int64) (bool, error)
	AcceptFollowRequest(ctx context.Context, id int64) error
	DeclineFollowRequest(ctx context.Context, id int64) error
	DeleteFollowRequest(ctx context.Context, id int64) error
	ListPendingIncoming(ctx context.Context, recipientID int64) ([]*user.FollowRequest, error)
	ListPendingOutgoing(ctx context.Context, requesterID int64) ([]*user.FollowRequest, error)
}

// Store defines the interface for member and social-graph persistence.
type Store interface {
	UserStore
	FollowStore
	FollowRequestStore
}
