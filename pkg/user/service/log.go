package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shillspot/shillspot/pkg/auth"
	"github.com/shillspot/shillspot/pkg/user"
)

const serviceName = "UserService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the user Service.
// It logs method entry/exit, duration, and errors. Passwords never reach
// the logger.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) Register(ctx context.Context, req *user.RegisterRequest, avatar *Avatar) (resp *user.AuthResponse, err error) {
	start := time.Now()
	ls.logger.Info("Register started",
		zap.String("service", serviceName),
		zap.String("method", "Register"),
		zap.String("handle", req.Handle),
		zap.String("role", string(req.Role)),
		zap.Bool("has_avatar", avatar != nil),
	)

	defer func() {
		duration := time.Since(start)
		if err != nil {
			ls.logger.Error("Register failed",
				zap.String("service", serviceName),
				zap.String("method", "Register"),
				zap.String("handle", req.Handle),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Register completed",
				zap.String("service", serviceName),
				zap.String("method", "Register"),
				zap.Int64("user_id", resp.ID),
				zap.String("handle", resp.Handle),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Register(ctx, req, avatar)
}

func (ls *logService) Login(ctx context.Context, req *user.LoginRequest) (resp *user.AuthResponse, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)
		if err != nil {
			// login failures are expected traffic, keep them at warn
			ls.logger.Warn("Login failed",
				zap.String("service", serviceName),
				zap.String("method", "Login"),
				zap.String("handle", req.Handle),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Login completed",
				zap.String("service", serviceName),
				zap.String("method", "Login"),
				zap.Int64("user_id", resp.ID),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Login(ctx, req)
}

func (ls *logService) Profile(ctx context.Context, userID int64) (*user.Profile, error) {
	profile, err := ls.svc.Profile(ctx, userID)
	if err != nil {
		ls.logger.Error("Profile failed",
			zap.String("service", serviceName),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
	return profile, err
}

func (ls *logService) UpdateAvatar(ctx context.Context, userID int64, avatar *Avatar) (path string, err error) {
	defer func() {
		if err != nil {
			ls.logger.Warn("UpdateAvatar failed",
				zap.String("service", serviceName),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("UpdateAvatar completed",
				zap.String("service", serviceName),
				zap.Int64("user_id", userID),
				zap.String("path", path),
			)
		}
	}()

	return ls.svc.UpdateAvatar(ctx, userID, avatar)
}

func (ls *logService) ListUsers(ctx context.Context) ([]*user.Summary, error) {
	users, err := ls.svc.ListUsers(ctx)
	if err != nil {
		ls.logger.Error("ListUsers failed",
			zap.String("service", serviceName),
			zap.Error(err),
		)
	}
	return users, err
}

func (ls *logService) SendFollowRequest(ctx context.Context, requesterID, recipientID int64) (req *user.FollowRequest, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)
		if err != nil {
			ls.logger.Warn("SendFollowRequest failed",
				zap.String("service", serviceName),
				zap.Int64("requester_id", requesterID),
				zap.Int64("recipient_id", recipientID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("SendFollowRequest completed",
				zap.String("service", serviceName),
				zap.Int64("request_id", req.ID),
				zap.Int64("requester_id", requesterID),
				zap.Int64("recipient_id", recipientID),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.SendFollowRequest(ctx, requesterID, recipientID)
}

func (ls *logService) RespondFollowRequest(ctx context.Context, callerID, requestID int64, status user.RequestStatus) (err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)
		if err != nil {
			ls.logger.Warn("RespondFollowRequest failed",
				zap.String("service", serviceName),
				zap.Int64("caller_id", callerID),
				zap.Int64("request_id", requestID),
				zap.String("status", string(status)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("RespondFollowRequest completed",
				zap.String("service", serviceName),
				zap.Int64("caller_id", callerID),
				zap.Int64("request_id", requestID),
				zap.String("status", string(status)),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.RespondFollowRequest(ctx, callerID, requestID, status)
}

func (ls *logService) DeleteFollowRequest(ctx context.Context, callerID, requestID int64) (err error) {
	defer func() {
		if err != nil {
			ls.logger.Warn("DeleteFollowRequest failed",
				zap.String("service", serviceName),
				zap.Int64("caller_id", callerID),
				zap.Int64("request_id", requestID),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("DeleteFollowRequest completed",
				zap.String("service", serviceName),
				zap.Int64("caller_id", callerID),
				zap.Int64("request_id", requestID),
			)
		}
	}()

	return ls.svc.DeleteFollowRequest(ctx, callerID, requestID)
}

func (ls *logService) PendingFollowRequests(ctx context.Context, caller *auth.Info) ([]*user.FollowRequest, error) {
	reqs, err := ls.svc.PendingFollowRequests(ctx, caller)
	if err != nil {
		ls.logger.Error("PendingFollowRequests failed",
			zap.String("service", serviceName),
			zap.Int64("user_id", caller.UserID),
			zap.Error(err),
		)
	}
	return reqs, err
}

func (ls *logService) Following(ctx context.Context, userID int64) ([]*user.Summary, error) {
	users, err := ls.svc.Following(ctx, userID)
	if err != nil {
		ls.logger.Error("Following failed",
			zap.String("service", serviceName),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
	return users, err
}

func (ls *logService) Followers(ctx context.Context, userID int64) ([]*user.Summary, error) {
	users, err := ls.svc.Followers(ctx, userID)
	if err != nil {
		ls.logger.Error("Followers failed",
			zap.String("service", serviceName),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
	return users, err
}
