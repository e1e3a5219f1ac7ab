package models

import "time"

// Role values stored in users.role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Provider values stored in oauth_accounts.provider.
const (
	ProviderGoogle = "google"
	ProviderGithub = "github"
)

// User represents a row in the PostgreSQL users table. Email and
// HashedPassword are pointers because OAuth-only accounts may lack either:
// a user without a password must have at least one linked OAuth account.
type User struct {
	ID                string    `json:"id"`
	Email             *string   `json:"email,omitempty"`
	HashedPassword    *string   `json:"-"` // never serialize
	IsEmailVerified   bool      `json:"is_email_verified"`
	Role              string    `json:"role"`
	Name              string    `json:"name,omitempty"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Session is a server-side session handle. The ID is the opaque value carried
// by the session cookie.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EmailVerification is the single live verification row per user. Resends
// overwrite Code and CreatedAt in place rather than inserting a second row.
type EmailVerification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// OAuthAccount links a local user to a provider identity. A
// (provider, provider_user_id) pair is unique across the table.
type OAuthAccount struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Provider       string     `json:"provider"`
	ProviderUserID string     `json:"provider_user_id"`
	AccessToken    string     `json:"-"`
	RefreshToken   *string    `json:"-"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// OAuthLink carries everything the link-or-create transaction needs: the
// provider profile plus the freshly exchanged tokens.
type OAuthLink struct {
	Provider       string
	ProviderUserID string
	Email          *string
	Name           string
	AvatarURL      string
	AccessToken    string
	RefreshToken   *string
	ExpiresAt      *time.Time
}
