package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/models"
)

type stubSessions struct {
	sessions map[string]*models.Session
}

func (s *stubSessions) Create(_ context.Context, userID string) (*models.Session, error) {
	return nil, nil
}

func (s *stubSessions) Validate(_ context.Context, sessionID string) (*models.Session, error) {
	return s.sessions[sessionID], nil
}

func (s *stubSessions) Invalidate(_ context.Context, sessionID string) error { return nil }
func (s *stubSessions) InvalidateUser(_ context.Context, userID string) error { return nil }

type stubUsers struct {
	users map[string]*models.User
}

func (s *stubUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	return s.users[id], nil
}

func rig(role string) http.Handler {
	user := &models.User{ID: "user-1", Role: role, IsEmailVerified: true}
	sessions := &stubSessions{sessions: map[string]*models.Session{
		"sid-1": {ID: "sid-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	users := &stubUsers{users: map[string]*models.User{"user-1": user}}

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := auth.UserFrom(r.Context())
		s := auth.SessionFrom(r.Context())
		if u == nil || s == nil {
			http.Error(w, "identity missing from context", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	handler = RequireAuth(sessions, users)(handler)
	return handler
}

func TestRequireAuthRejectsMissingCookie(t *testing.T) {
	handler := rig(models.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuthRejectsUnknownSessionAndBlanksCookie(t *testing.T) {
	handler := rig(models.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "bogus"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var blanked bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge == -1 {
			blanked = true
		}
	}
	if !blanked {
		t.Fatal("expected stale cookie to be blanked")
	}
}

func TestRequireAuthInjectsIdentity(t *testing.T) {
	handler := rig(models.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "sid-1"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequireAdmin(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{models.RoleUser, http.StatusForbidden},
		{models.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		user := &models.User{ID: "user-1", Role: tc.role}
		inner := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/admin/events", nil)
		ctx := auth.WithIdentity(req.Context(), user, &models.Session{ID: "sid-1", UserID: user.ID})
		rec := httptest.NewRecorder()
		inner.ServeHTTP(rec, req.WithContext(ctx))
		if rec.Code != tc.want {
			t.Fatalf("role %s: expected %d, got %d", tc.role, tc.want, rec.Code)
		}
	}
}
