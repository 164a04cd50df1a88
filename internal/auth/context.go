package auth

import (
	"context"
	"time"
)

type contextKey struct{}

// AuthContext describes the admin trust token that authorized a request.
type AuthContext struct {
	TokenID   int64
	ExpiresAt time.Time
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// CookieName is the cookie carrying the admin trust token.
const CookieName = "rollcall_admin"
