// Package service implements the member directory and the follow-request
// workflow between members.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/shillspot/shillspot/internal/metrics"
	apperrors "github.com/shillspot/shillspot/pkg/app/errors"
	"github.com/shillspot/shillspot/pkg/auth"
	"github.com/shillspot/shillspot/pkg/blobstore"
	"github.com/shillspot/shillspot/pkg/user"
	"github.com/shillspot/shillspot/pkg/userstore"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid handle or password")
	ErrSelfFollow         = errors.New("cannot follow yourself")
)

// Store is the narrow data-access interface for the user service.
// Defined here to keep the service decoupled from userstore implementation details.
//
//go:generate mockery --name Store --output mocks --outpkg mocks --filename mock_store.go --with-expecter
type Store interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByID(ctx context.Context, id int64) (*user.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*user.User, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
	SetProfilePicture(ctx context.Context, id int64, path string) error
	ListUsers(ctx context.Context) ([]*user.User, error)
	IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error)
	ListFollowing(ctx context.Context, userID int64) ([]*user.User, error)
	ListFollowers(ctx context.Context, userID int64) ([]*user.User, error)
	CountFollowing(ctx context.Context, userID int64) (int, error)
	CountFollowers(ctx context.Context, userID int64) (int, error)
	CreateFollowRequest(ctx context.Context, req *user.FollowRequest) error
	GetFollowRequest(ctx context.Context, id int64) (*user.FollowRequest, error)
	PairRequestExists(ctx context.Context, requesterID, recipientID int64) (bool, error)
	AcceptFollowRequest(ctx context.Context, id int64) error
	DeclineFollowRequest(ctx context.Context, id int64) error
	DeleteFollowRequest(ctx context.Context, id int64) error
	ListPendingIncoming(ctx context.Context, recipientID int64) ([]*user.FollowRequest, error)
	ListPendingOutgoing(ctx context.Context, requesterID int64) ([]*user.FollowRequest, error)
}

// TokenIssuer signs bearer tokens for registration and login responses.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// Avatar is an optional profile image uploaded alongside a registration.
type Avatar struct {
	Filename string
	Content  io.Reader
}

// Service defines the interface for the user directory business logic
//
//go:generate mockery --name Service --output mocks --outpkg mocks --filename mock_service.go --with-expecter
type Service interface {
	Register(ctx context.Context, req *user.RegisterRequest, avatar *Avatar) (*user.AuthResponse, error)
	Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error)
	Profile(ctx context.Context, userID int64) (*user.Profile, error)
	UpdateAvatar(ctx context.Context, userID int64, avatar *Avatar) (string, error)
	ListUsers(ctx context.Context) ([]*user.Summary, error)
	SendFollowRequest(ctx context.Context, requesterID, recipientID int64) (*user.FollowRequest, error)
	RespondFollowRequest(ctx context.Context, callerID, requestID int64, status user.RequestStatus) error
	DeleteFollowRequest(ctx context.Context, callerID, requestID int64) error
	PendingFollowRequests(ctx context.Context, caller *auth.Info) ([]*user.FollowRequest, error)
	Following(ctx context.Context, userID int64) ([]*user.Summary, error)
	Followers(ctx context.Context, userID int64) ([]*user.Summary, error)
}

type userService struct {
	store      Store
	blobs      blobstore.Store
	tokens     TokenIssuer
	logger     *zap.Logger
	validate   *validator.Validate
	sanitizer  *bluemonday.Policy
	bcryptCost int
}

// NewService creates a new user service
func NewService(
	store Store,
	blobs blobstore.Store,
	tokens TokenIssuer,
	logger *zap.Logger,
	bcryptCost int,
) Service {
	return &userService{
		store:      store,
		blobs:      blobs,
		tokens:     tokens,
		logger:     logger,
		validate:   validator.New(),
		sanitizer:  bluemonday.StrictPolicy(),
		bcryptCost: bcryptCost,
	}
}

// Register creates a member account, stores the optional avatar, and returns
// the profile fields with a signed bearer token.
func (s *userService) Register(ctx context.Context, req *user.RegisterRequest, avatar *Avatar) (*user.AuthResponse, error) {
	req.Handle = s.sanitizer.Sanitize(req.Handle)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequestError(err, "invalid registration data")
	}
	if !ethcommon.IsHexAddress(req.WalletAddress) {
		return nil, apperrors.BadRequestError(nil, "walletAddress must be a hex address")
	}

	exists, err := s.store.HandleExists(ctx, req.Handle)
	if err != nil {
		return nil, fmt.Errorf("failed to check handle: %w", err)
	}
	if exists {
		return nil, apperrors.ConflictError(ErrUserAlreadyExists, "user already exists")
	}

	var picture string
	if avatar != nil {
		picture, err = s.blobs.Save(ctx, avatar.Filename, avatar.Content)
		if err != nil {
			if errors.Is(err, blobstore.ErrUnsupportedType) || errors.Is(err, blobstore.ErrTooLarge) {
				return nil, apperrors.BadRequestError(err, err.Error())
			}
			return nil, fmt.Errorf("failed to store avatar: %w", err)
		}
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = user.RoleUser
	}

	usr := &user.User{
		Handle:         req.Handle,
		PasswordHash:   hash,
		WalletAddress:  req.WalletAddress,
		ProfilePicture: picture,
		Role:           role,
	}
	if err := s.store.CreateUser(ctx, usr); err != nil {
		if errors.Is(err, userstore.ErrDuplicateHandle) {
			return nil, apperrors.ConflictError(ErrUserAlreadyExists, "user already exists")
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	metrics.Registrations.Inc()
	return s.authResponse(usr)
}

// Login verifies the handle/password pair and returns the profile fields
// with a fresh bearer token. Lookup misses and password mismatches are
// indistinguishable to the caller.
func (s *userService) Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequestError(err, "handle and password are required")
	}

	usr, err := s.store.GetUserByHandle(ctx, req.Handle)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return nil, apperrors.UnAuthorizedError(ErrInvalidCredentials, "invalid handle or password")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !auth.CheckPassword(usr.PasswordHash, req.Password) {
		return nil, apperrors.UnAuthorizedError(ErrInvalidCredentials, "invalid handle or password")
	}

	return s.authResponse(usr)
}

func (s *userService) authResponse(usr *user.User) (*user.AuthResponse, error) {
	token, err := s.tokens.Issue(usr.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &user.AuthResponse{
		ID:             usr.ID,
		Handle:         usr.Handle,
		WalletAddress:  usr.WalletAddress,
		ProfilePicture: usr.ProfilePicture,
		Role:           usr.Role,
		Token:          token,
	}, nil
}

// Profile returns the caller's own record with follower and following counts.
func (s *userService) Profile(ctx context.Context, userID int64) (*user.Profile, error) {
	usr, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return nil, apperrors.NotFoundError(err, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	followers, err := s.store.CountFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	following, err := s.store.CountFollowing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}

	return &user.Profile{
		ID:             usr.ID,
		Handle:         usr.Handle,
		WalletAddress:  usr.WalletAddress,
		ProfilePicture: usr.ProfilePicture,
		Role:           usr.Role,
		Followers:      followers,
		Following:      following,
		Shills:         usr.Shills,
		Points:         usr.Points,
		CurrentStreak:  usr.CurrentStreak,
	}, nil
}

// UpdateAvatar replaces the caller's profile picture and returns the new
// stored path.
func (s *userService) UpdateAvatar(ctx context.Context, userID int64, avatar *Avatar) (string, error) {
	if avatar == nil {
		return "", apperrors.BadRequestError(nil, "profilePicture file is required")
	}

	picture, err := s.blobs.Save(ctx, avatar.Filename, avatar.Content)
	if err != nil {
		if errors.Is(err, blobstore.ErrUnsupportedType) || errors.Is(err, blobstore.ErrTooLarge) {
			return "", apperrors.BadRequestError(err, err.Error())
		}
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}

	if err := s.store.SetProfilePicture(ctx, userID, picture); err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return "", apperrors.NotFoundError(err, "user not found")
		}
		return "", fmt.Errorf("failed to set profile picture: %w", err)
	}
	return picture, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]*user.Summary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return summaries(users), nil
}

// SendFollowRequest records a pending follow proposal from the requester to
// the recipient. At most one request per pair exists, whatever its status.
func (s *userService) SendFollowRequest(ctx context.Context, requesterID, recipientID int64) (*user.FollowRequest, error) {
	if requesterID == recipientID {
		return nil, apperrors.BadRequestError(ErrSelfFollow, "cannot follow yourself")
	}

	if _, err := s.store.GetUserByID(ctx, recipientID); err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return nil, apperrors.NotFoundError(err, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	following, err := s.store.IsFollowing(ctx, requesterID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check follow edge: %w", err)
	}
	if following {
		return nil, apperrors.ConflictError(nil, "already following this user")
	}

	exists, err := s.store.PairRequestExists(ctx, requesterID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check follow request: %w", err)
	}
	if exists {
		return nil, apperrors.ConflictError(nil, "follow request already sent")
	}

	req := &user.FollowRequest{
		RequesterID: requesterID,
		RecipientID: recipientID,
	}
	if err := s.store.CreateFollowRequest(ctx, req); err != nil {
		if errors.Is(err, userstore.ErrDuplicateRequest) {
			return nil, apperrors.ConflictError(err, "follow request already sent")
		}
		return nil, fmt.Errorf("failed to create follow request: %w", err)
	}

	metrics.FollowRequests.WithLabelValues("sent").Inc()
	return req, nil
}

// RespondFollowRequest lets the recipient accept or decline a pending
// request. Accepting creates the follower edge; the first response wins.
func (s *userService) RespondFollowRequest(ctx context.Context, callerID, requestID int64, status user.RequestStatus) error {
	if !status.Valid() {
		return apperrors.BadRequestError(nil, "status must be accepted or declined")
	}

	req, err := s.store.GetFollowRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, userstore.ErrRequestNotFound) {
			return apperrors.NotFoundError(err, "follow request not found")
		}
		return fmt.Errorf("failed to get follow request: %w", err)
	}
	if req.RecipientID != callerID {
		return apperrors.ForbiddenError(nil, "not authorized to respond to this request")
	}

	if status == user.RequestAccepted {
		err = s.store.AcceptFollowRequest(ctx, requestID)
	} else {
		err = s.store.DeclineFollowRequest(ctx, requestID)
	}
	if err != nil {
		if errors.Is(err, userstore.ErrRequestNotPending) {
			return apperrors.ConflictError(err, "follow request already responded to")
		}
		if errors.Is(err, userstore.ErrRequestNotFound) {
			return apperrors.NotFoundError(err, "follow request not found")
		}
		return fmt.Errorf("failed to respond to follow request: %w", err)
	}

	metrics.FollowRequests.WithLabelValues(string(status)).Inc()
	return nil
}

// DeleteFollowRequest removes a request. Either side of the pair may delete
// it; this is also how a declined pair is cleared for a fresh request.
func (s *userService) DeleteFollowRequest(ctx context.Context, callerID, requestID int64) error {
	req, err := s.store.GetFollowRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, userstore.ErrRequestNotFound) {
			return apperrors.NotFoundError(err, "follow request not found")
		}
		return fmt.Errorf("failed to get follow request: %w", err)
	}
	if req.RequesterID != callerID && req.RecipientID != callerID {
		return apperrors.ForbiddenError(nil, "not authorized to delete this request")
	}

	if err := s.store.DeleteFollowRequest(ctx, requestID); err != nil {
		if errors.Is(err, userstore.ErrRequestNotFound) {
			return apperrors.NotFoundError(err, "follow request not found")
		}
		return fmt.Errorf("failed to delete follow request: %w", err)
	}

	metrics.FollowRequests.WithLabelValues("deleted").Inc()
	return nil
}

// PendingFollowRequests returns the caller's open requests. Shillers see
// incoming requests with the requester expanded; regular members see their
// outgoing requests with the recipient expanded.
func (s *userService) PendingFollowRequests(ctx context.Context, caller *auth.Info) ([]*user.FollowRequest, error) {
	var (
		reqs []*user.FollowRequest
		err  error
	)
	if caller.Role == user.RoleShiller {
		reqs, err = s.store.ListPendingIncoming(ctx, caller.UserID)
	} else {
		reqs, err = s.store.ListPendingOutgoing(ctx, caller.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list pending follow requests: %w", err)
	}
	return reqs, nil
}

func (s *userService) Following(ctx context.Context, userID int64) ([]*user.Summary, error) {
	users, err := s.store.ListFollowing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	return summaries(users), nil
}

func (s *userService) Followers(ctx context.Context, userID int64) ([]*user.Summary, error) {
	users, err := s.store.ListFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return summaries(users), nil
}

func summaries(users []*user.User) []*user.Summary {
	out := make([]*user.Summary, len(users))
	for i, usr := range users {
		out[i] = usr.Summary()
	}
	return out
}
