package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Auth event types recorded in the audit trail.
const (
	EventSignUp      = "sign_up"
	EventSignIn      = "sign_in"
	EventSignOut     = "sign_out"
	EventVerifyEmail = "verify_email"
	EventResend      = "resend_verification"
	EventOAuthLogin  = "oauth_login"
)

// AuthEvent is a single audit record stored in MongoDB.
type AuthEvent struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	Type      string             `json:"type"       bson:"type"`
	UserID    string             `json:"user_id"    bson:"user_id"`
	Email     string             `json:"email,omitempty"    bson:"email,omitempty"`
	Provider  string             `json:"provider,omitempty" bson:"provider,omitempty"`
	IP        string             `json:"ip,omitempty"       bson:"ip,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
