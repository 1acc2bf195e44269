// Package service implements the shill lifecycle: creation, cancellation,
// viewer acceptance, and profit/loss verdicts.
package service

import (
	"context"
	"errors"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/shillspot/shillspot/internal/metrics"
	apperrors "github.com/shillspot/shillspot/pkg/app/errors"
	"github.com/shillspot/shillspot/pkg/auth"
	"github.com/shillspot/shillspot/pkg/shill"
	"github.com/shillspot/shillspot/pkg/shillstore"
	"github.com/shillspot/shillspot/pkg/user"
)

var (
	ErrNotShiller        = errors.New("only shillers can post shills")
	ErrActiveShillExists = errors.New("an active shill already exists")
)

// Store is the narrow data-access interface for the shill service.
// Defined here to keep the service decoupled from shillstore implementation details.
//
//go:generate mockery --name Store --output mocks --outpkg mocks --filename mock_store.go --with-expecter
type Store interface {
	CreateShill(ctx context.Context, sh *shill.Shill) error
	GetShill(ctx context.Context, id int64) (*shill.Shill, error)
	GetActiveShillByCreator(ctx context.Context, creatorID int64, expandCreator bool) (*shill.Shill, error)
	CancelShill(ctx context.Context, id int64) error
	ResolveShill(ctx context.Context, id int64, status shill.Status) (*shill.Shill, error)
	RecordResult(ctx context.Context, shillID, userID int64, result shill.Result) (*shill.Tally, error)
	ListActiveByCreators(ctx context.Context, viewerID int64, creatorIDs []int64) ([]*shill.Shill, error)
}

// Follows resolves who a viewer follows; backed by the user store.
type Follows interface {
	ListFollowingIDs(ctx context.Context, followerID int64) ([]int64, error)
}

// Service defines the interface for the shill lifecycle business logic
//
//go:generate mockery --name Service --output mocks --outpkg mocks --filename mock_service.go --with-expecter
type Service interface {
	Create(ctx context.Context, caller *auth.Info, req *shill.CreateRequest) (*shill.Shill, error)
	Cancel(ctx context.Context, callerID, shillID int64) error
	Accept(ctx context.Context, shillID int64) (*shill.Shill, error)
	Decline(ctx context.Context, shillID int64) (*shill.Shill, error)
	RecordResult(ctx context.Context, viewerID, shillID int64, req *shill.ResultRequest) (*shill.ResultResponse, error)
	ActiveShillFor(ctx context.Context, creatorID int64) (*shill.Shill, error)
	CurrentForViewer(ctx context.Context, caller *auth.Info) (*shill.Shill, error)
}

type shillService struct {
	store     Store
	follows   Follows
	logger    *zap.Logger
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

// NewService creates a new shill service
func NewService(store Store, follows Follows, logger *zap.Logger) Service {
	return &shillService{
		store:     store,
		follows:   follows,
		logger:    logger,
		validate:  validator.New(),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Create posts a new shill for the caller. Only shillers may post, and a
// creator has at most one active shill at a time.
func (s *shillService) Create(ctx context.Context, caller *auth.Info, req *shill.CreateRequest) (*shill.Shill, error) {
	if caller.Role != user.RoleShiller {
		return nil, apperrors.ForbiddenError(ErrNotShiller, "only shillers can post shills")
	}

	req.Reason = s.sanitizer.Sanitize(req.Reason)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequestError(err, "invalid shill data")
	}
	if !ethcommon.IsHexAddress(req.TokenAddress) {
		return nil, apperrors.BadRequestError(nil, "tokenAddress must be a hex address")
	}

	sh := &shill.Shill{
		CreatorID:    caller.UserID,
		TokenAddress: req.TokenAddress,
		Reason:       req.Reason,
	}
	if err := s.store.CreateShill(ctx, sh); err != nil {
		if errors.Is(err, shillstore.ErrActiveShillExists) {
			return nil, apperrors.ConflictError(ErrActiveShillExists, "an active shill already exists")
		}
		return nil, fmt.Errorf("failed to create shill: %w", err)
	}

	metrics.ShillsCreated.Inc()
	return sh, nil
}

// Cancel deactivates the caller's shill. Only the creator may cancel, in any
// acceptance status; cancelling twice is a conflict.
func (s *shillService) Cancel(ctx context.Context, callerID, shillID int64) error {
	sh, err := s.store.GetShill(ctx, shillID)
	if err != nil {
		if errors.Is(err, shillstore.ErrShillNotFound) {
			return apperrors.NotFoundError(err, "shill not found")
		}
		return fmt.Errorf("failed to get shill: %w", err)
	}
	if sh.CreatorID != callerID {
		return apperrors.ForbiddenError(nil, "not authorized to cancel this shill")
	}

	if err := s.store.CancelShill(ctx, shillID); err != nil {
		if errors.Is(err, shillstore.ErrShillInactive) {
			return apperrors.ConflictError(err, "shill is already inactive")
		}
		if errors.Is(err, shillstore.ErrShillNotFound) {
			return apperrors.NotFoundError(err, "shill not found")
		}
		return fmt.Errorf("failed to cancel shill: %w", err)
	}

	metrics.ShillsCancelled.Inc()
	return nil
}

// Accept moves a pending shill to accepted. Any authenticated member may
// respond; the first response wins.
func (s *shillService) Accept(ctx context.Context, shillID int64) (*shill.Shill, error) {
	return s.resolve(ctx, shillID, shill.StatusAccepted)
}

// Decline moves a pending shill to declined. Any authenticated member may
// respond; the first response wins.
func (s *shillService) Decline(ctx context.Context, shillID int64) (*shill.Shill, error) {
	return s.resolve(ctx, shillID, shill.StatusDeclined)
}

func (s *shillService) resolve(ctx context.Context, shillID int64, status shill.Status) (*shill.Shill, error) {
	sh, err := s.store.ResolveShill(ctx, shillID, status)
	if err != nil {
		if errors.Is(err, shillstore.ErrShillNotFound) {
			return nil, apperrors.NotFoundError(err, "shill not found")
		}
		if errors.Is(err, shillstore.ErrShillNotPending) {
			return nil, apperrors.ConflictError(err, "shill already resolved")
		}
		return nil, fmt.Errorf("failed to resolve shill: %w", err)
	}

	metrics.ShillsResolved.WithLabelValues(string(status)).Inc()
	return sh, nil
}

// RecordResult stores the viewer's profit/loss verdict against an accepted
// shill and returns the derived tallies. Re-voting replaces the previous
// verdict; the shill is marked completed for this viewer either way.
func (s *shillService) RecordResult(ctx context.Context, viewerID, shillID int64, req *shill.ResultRequest) (*shill.ResultResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequestError(err, "result must be profit or loss")
	}

	tally, err := s.store.RecordResult(ctx, shillID, viewerID, req.Result)
	if err != nil {
		if errors.Is(err, shillstore.ErrShillNotFound) {
			return nil, apperrors.NotFoundError(err, "shill not found")
		}
		if errors.Is(err, shillstore.ErrShillNotAccepted) {
			return nil, apperrors.ConflictError(err, "shill is not accepted")
		}
		return nil, fmt.Errorf("failed to record result: %w", err)
	}

	metrics.ResultsRecorded.WithLabelValues(string(req.Result)).Inc()
	return &shill.ResultResponse{
		ProfitCount: tally.ProfitCount,
		LossCount:   tally.LossCount,
		Completed:   true,
	}, nil
}

// ActiveShillFor returns the given creator's active shill with the creator
// expanded, for viewers opening a shiller's page.
func (s *shillService) ActiveShillFor(ctx context.Context, creatorID int64) (*shill.Shill, error) {
	sh, err := s.store.GetActiveShillByCreator(ctx, creatorID, true)
	if err != nil {
		if errors.Is(err, shillstore.ErrShillNotFound) {
			return nil, apperrors.NotFoundError(err, "no active shill")
		}
		return nil, fmt.Errorf("failed to get active shill: %w", err)
	}
	return sh, nil
}

// CurrentForViewer returns the shill the caller should see right now: a
// shiller sees their own active shill; a regular member sees the newest
// active shill among the shillers they follow that they have not yet
// completed.
func (s *shillService) CurrentForViewer(ctx context.Context, caller *auth.Info) (*shill.Shill, error) {
	if caller.Role == user.RoleShiller {
		sh, err := s.store.GetActiveShillByCreator(ctx, caller.UserID, false)
		if err != nil {
			if errors.Is(err, shillstore.ErrShillNotFound) {
				return nil, apperrors.NotFoundError(err, "no active shill")
			}
			return nil, fmt.Errorf("failed to get active shill: %w", err)
		}
		return sh, nil
	}

	creatorIDs, err := s.follows.ListFollowingIDs(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed shillers: %w", err)
	}

	shills, err := s.store.ListActiveByCreators(ctx, caller.UserID, creatorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed shills: %w", err)
	}
	if len(shills) == 0 {
		return nil, apperrors.NotFoundError(nil, "no active shill")
	}
	return shills[0], nil
}
