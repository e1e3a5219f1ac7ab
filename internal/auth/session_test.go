package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/models"
)

func TestNewSessionCookieAlignsWithSession(t *testing.T) {
	expires := time.Now().Add(SessionTTL).UTC().Truncate(time.Second)
	session := &models.Session{ID: "sid-123", UserID: "user-1", ExpiresAt: expires}

	cookie := NewSessionCookie(session)
	if cookie.Name != SessionCookieName {
		t.Fatalf("expected cookie name %q, got %q", SessionCookieName, cookie.Name)
	}
	if cookie.Value != "sid-123" {
		t.Fatalf("expected session id value, got %q", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Fatal("expected httpOnly cookie")
	}
	if !cookie.Expires.Equal(expires) {
		t.Fatalf("expected cookie expiry %v, got %v", expires, cookie.Expires)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected SameSite=Lax, got %v", cookie.SameSite)
	}
}

func TestBlankSessionCookieExpiresImmediately(t *testing.T) {
	cookie := BlankSessionCookie()
	if cookie.Name != SessionCookieName {
		t.Fatalf("expected cookie name %q, got %q", SessionCookieName, cookie.Name)
	}
	if cookie.Value != "" {
		t.Fatalf("expected empty value, got %q", cookie.Value)
	}
	if cookie.MaxAge != -1 {
		t.Fatalf("expected MaxAge -1, got %d", cookie.MaxAge)
	}
	if !cookie.HttpOnly {
		t.Fatal("expected httpOnly cookie")
	}
}
