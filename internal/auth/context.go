package auth

import (
	"context"

	"github.com/gatehouse-dev/gatehouse/internal/models"
)

type contextKey int

const (
	userContextKey contextKey = iota
	sessionContextKey
)

// WithIdentity stores the authenticated user and session on the context.
func WithIdentity(ctx context.Context, user *models.User, session *models.Session) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, sessionContextKey, session)
}

// UserFrom returns the authenticated user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userContextKey).(*models.User)
	return u
}

// SessionFrom returns the current session, or nil for anonymous requests.
func SessionFrom(ctx context.Context) *models.Session {
	s, _ := ctx.Value(sessionContextKey).(*models.Session)
	return s
}
