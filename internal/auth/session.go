package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gatehouse-dev/gatehouse/internal/models"
)

const (
	SessionTTL        = 30 * 24 * time.Hour
	SessionCookieName = "session_id"
)

// Sessions manages the lifecycle of opaque cookie sessions.
type Sessions interface {
	// Create issues a new session for the user.
	Create(ctx context.Context, userID string) (*models.Session, error)
	// Validate resolves a session id. Missing or expired sessions return
	// (nil, nil); callers treat that as unauthenticated.
	Validate(ctx context.Context, sessionID string) (*models.Session, error)
	// Invalidate removes a session. Idempotent on missing ids.
	Invalidate(ctx context.Context, sessionID string) error
	// InvalidateUser removes the user's active session, if any. Backs the
	// single-active-session policy applied before every sign-in.
	InvalidateUser(ctx context.Context, userID string) error
}

// RedisSessions stores sessions in Redis: a session:{id} hash holding the
// owning user and expiry, plus a user_session:{userID} index key used to
// invalidate a user's previous session.
type RedisSessions struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb, now: time.Now}
}

func sessionKey(id string) string     { return "session:" + id }
func userSessionKey(id string) string { return "user_session:" + id }

func (s *RedisSessions) Create(ctx context.Context, userID string) (*models.Session, error) {
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: s.now().Add(SessionTTL).UTC(),
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, sessionKey(session.ID),
		"user_id", session.UserID,
		"expires_at", session.ExpiresAt.Format(time.RFC3339Nano),
	)
	pipe.ExpireAt(ctx, sessionKey(session.ID), session.ExpiresAt)
	pipe.Set(ctx, userSessionKey(userID), session.ID, SessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *RedisSessions) Validate(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	fields, err := s.rdb.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, nil
	}
	// Redis TTL evicts eventually; expiry is still checked against the
	// wall clock here so a lagging eviction never extends a session.
	if !s.now().Before(expiresAt) {
		_ = s.Invalidate(ctx, sessionID)
		return nil, nil
	}
	return &models.Session{ID: sessionID, UserID: fields["user_id"], ExpiresAt: expiresAt}, nil
}

func (s *RedisSessions) Invalidate(ctx context.Context, sessionID string) error {
	userID, err := s.rdb.HGet(ctx, sessionKey(sessionID), "user_id").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	if err := s.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	if userID == "" {
		return nil
	}
	// Drop the index only if it still points at this session.
	current, err := s.rdb.Get(ctx, userSessionKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	if current == sessionID {
		return s.rdb.Del(ctx, userSessionKey(userID)).Err()
	}
	return nil
}

func (s *RedisSessions) InvalidateUser(ctx context.Context, userID string) error {
	sessionID, err := s.rdb.Get(ctx, userSessionKey(userID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalidate user sessions: %w", err)
	}
	if err := s.rdb.Del(ctx, sessionKey(sessionID), userSessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate user sessions: %w", err)
	}
	return nil
}

// NewSessionCookie builds the cookie carrying a session id, expiring together
// with the session.
func NewSessionCookie(session *models.Session) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	}
}

// BlankSessionCookie immediately expires the session cookie client-side.
// Used for logout and to clear stale cookies.
func BlankSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}
