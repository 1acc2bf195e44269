package auth

import (
	"context"

	"github.com/shillspot/shillspot/pkg/user"
)

// Context keys for authentication data
type contextKey string

const (
	// ContextKeyAuthInfo is the context key for the resolved caller identity
	ContextKeyAuthInfo contextKey = "auth_info"
)

// Info contains the resolved identity of an authenticated caller.
type Info struct {
	UserID int64
	Handle string
	Role   user.Role
}

// WithInfo adds the caller identity to the context
func WithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, ContextKeyAuthInfo, info)
}

// InfoFromContext retrieves the caller identity from the context
func InfoFromContext(ctx context.Context) (*Info, bool) {
	info, ok := ctx.Value(ContextKeyAuthInfo).(*Info)
	return info, ok
}
