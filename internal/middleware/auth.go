package middleware

import (
	"context"
	"net/http"

	"github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/models"
)

// UserSource resolves a user id to its record.
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// RequireAuth validates the session cookie and injects the resolved
// {user, session} pair into the request context. Missing or expired sessions
// get a 401 and a blanked cookie.
func RequireAuth(sessions auth.Sessions, users UserSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil {
				auth.WriteError(w, auth.ErrUnauthorized)
				return
			}

			session, err := sessions.Validate(r.Context(), cookie.Value)
			if err != nil {
				auth.WriteError(w, err)
				return
			}
			if session == nil {
				http.SetCookie(w, auth.BlankSessionCookie())
				auth.WriteError(w, auth.ErrUnauthorized)
				return
			}

			user, err := users.GetUserByID(r.Context(), session.UserID)
			if err != nil {
				auth.WriteError(w, err)
				return
			}
			if user == nil {
				http.SetCookie(w, auth.BlankSessionCookie())
				auth.WriteError(w, auth.ErrUnauthorized)
				return
			}

			ctx := auth.WithIdentity(r.Context(), user, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route on the admin role. Must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.UserFrom(r.Context())
		if user == nil {
			auth.WriteError(w, auth.ErrUnauthorized)
			return
		}
		if user.Role != models.RoleAdmin {
			auth.WriteError(w, auth.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
