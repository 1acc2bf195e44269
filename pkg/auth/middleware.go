package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shillspot/shillspot/internal/metrics"
	apperrors "github.com/shillspot/shillspot/pkg/app/errors"
	apphttp "github.com/shillspot/shillspot/pkg/app/http"
	"github.com/shillspot/shillspot/pkg/user"
)

// UserResolver looks up the user record behind a verified token subject.
type UserResolver interface {
	GetUserByID(ctx context.Context, id int64) (*user.User, error)
}

// Middleware returns a chi-compatible middleware that requires a valid
// bearer token, resolves the caller's user record, and stores the identity
// in the request context. Requests without a valid token get a 401.
func Middleware(issuer *TokenIssuer, resolver UserResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				metrics.AuthFailures.WithLabelValues("missing_token").Inc()
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "not authorized, no token"))
				return
			}

			userID, err := issuer.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				metrics.AuthFailures.WithLabelValues("bad_token").Inc()
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "not authorized, token failed"))
				return
			}

			usr, err := resolver.GetUserByID(r.Context(), userID)
			if err != nil {
				metrics.AuthFailures.WithLabelValues("unknown_user").Inc()
				logger.Warn("Token subject has no user record",
					zap.Int64("user_id", userID),
					zap.Error(err))
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "not authorized, token failed"))
				return
			}

			ctx := WithInfo(r.Context(), &Info{
				UserID: usr.ID,
				Handle: usr.Handle,
				Role:   usr.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MustInfo retrieves the caller identity from a context populated by
// Middleware. Handlers behind the middleware may rely on it being present;
// a missing identity is reported as an unauthorized error.
func MustInfo(ctx context.Context) (*Info, error) {
	info, ok := InfoFromContext(ctx)
	if !ok {
		return nil, apperrors.UnAuthorizedError(nil, "not authorized")
	}
	return info, nil
}
