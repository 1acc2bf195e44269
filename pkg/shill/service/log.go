package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shillspot/shillspot/pkg/auth"
	"github.com/shillspot/shillspot/pkg/shill"
)

const serviceName = "ShillService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the shill Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) Create(ctx context.Context, caller *auth.Info, req *shill.CreateRequest) (sh *shill.Shill, err error) {
	start := time.Now()
	ls.logger.Info("Create started",
		zap.String("service", serviceName),
		zap.String("method", "Create"),
		zap.Int64("creator_id", caller.UserID),
		zap.String("token_address", req.TokenAddress),
	)

	defer func() {
		duration := time.Since(start)
		if err != nil {
			ls.logger.Error("Create failed",
				zap.String("service", serviceName),
				zap.String("method", "Create"),
				zap.Int64("creator_id", caller.UserID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Create completed",
				zap.String("service", serviceName),
				zap.String("method", "Create"),
				zap.Int64("shill_id", sh.ID),
				zap.Int64("creator_id", caller.UserID),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Create(ctx, caller, req)
}

func (ls *logService) Cancel(ctx context.Context, callerID, shillID int64) (err error) {
	defer func() {
		if err != nil {
			ls.logger.Warn("Cancel failed",
				zap.String("service", serviceName),
				zap.Int64("caller_id", callerID),
				zap.Int64("shill_id", shillID),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Cancel completed",
				zap.String("service", serviceName),
				zap.Int64("caller_id", callerID),
				zap.Int64("shill_id", shillID),
			)
		}
	}()

	return ls.svc.Cancel(ctx, callerID, shillID)
}

func (ls *logService) Accept(ctx context.Context, shillID int64) (*shill.Shill, error) {
	return ls.logResolve(ctx, "Accept", shillID, ls.svc.Accept)
}

func (ls *logService) Decline(ctx context.Context, shillID int64) (*shill.Shill, error) {
	return ls.logResolve(ctx, "Decline", shillID, ls.svc.Decline)
}

func (ls *logService) logResolve(
	ctx context.Context,
	method string,
	shillID int64,
	fn func(context.Context, int64) (*shill.Shill, error),
) (*shill.Shill, error) {
	sh, err := fn(ctx, shillID)
	if err != nil {
		ls.logger.Warn(method+" failed",
			zap.String("service", serviceName),
			zap.Int64("shill_id", shillID),
			zap.Error(err),
		)
		return nil, err
	}
	ls.logger.Info(method+" completed",
		zap.String("service", serviceName),
		zap.Int64("shill_id", shillID),
		zap.String("status", string(sh.Status)),
	)
	return sh, nil
}

func (ls *logService) RecordResult(ctx context.Context, viewerID, shillID int64, req *shill.ResultRequest) (resp *shill.ResultResponse, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)
		if err != nil {
			ls.logger.Warn("RecordResult failed",
				zap.String("service", serviceName),
				zap.Int64("viewer_id", viewerID),
				zap.Int64("shill_id", shillID),
				zap.String("result", string(req.Result)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("RecordResult completed",
				zap.String("service", serviceName),
				zap.Int64("viewer_id", viewerID),
				zap.Int64("shill_id", shillID),
				zap.String("result", string(req.Result)),
				zap.Int("profit_count", resp.ProfitCount),
				zap.Int("loss_count", resp.LossCount),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.RecordResult(ctx, viewerID, shillID, req)
}

func (ls *logService) ActiveShillFor(ctx context.Context, creatorID int64) (*shill.Shill, error) {
	sh, err := ls.svc.ActiveShillFor(ctx, creatorID)
	if err != nil {
		ls.logger.Debug("ActiveShillFor miss",
			zap.String("service", serviceName),
			zap.Int64("creator_id", creatorID),
			zap.Error(err),
		)
	}
	return sh, err
}

func (ls *logService) CurrentForViewer(ctx context.Context, caller *auth.Info) (*shill.Shill, error) {
	sh, err := ls.svc.CurrentForViewer(ctx, caller)
	if err != nil {
		ls.logger.Debug("CurrentForViewer miss",
			zap.String("service", serviceName),
			zap.Int64("user_id", caller.UserID),
			zap.Error(err),
		)
	}
	return sh, err
}
