package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatehouse-dev/gatehouse/internal/models"
)

// Error is an expected authentication failure. Key is the stable
// machine-readable discriminator the UI switches on; Status is the HTTP
// status the route boundary maps it to.
type Error struct {
	Key     string
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

var (
	ErrInvalidInput       = &Error{Key: "invalid_email_password", Message: "Invalid email or password", Status: http.StatusBadRequest}
	ErrAccountExists      = &Error{Key: "account_exists", Message: "An account with this email already exists", Status: http.StatusConflict}
	ErrUserNotFound       = &Error{Key: "user_not_found", Message: "User not found", Status: http.StatusNotFound}
	ErrInvalidCredentials = &Error{Key: "invalid_email_password", Message: "Invalid email or password", Status: http.StatusUnauthorized}
	ErrEmailNotVerified   = &Error{Key: "email_not_verified", Message: "Email not verified", Status: http.StatusForbidden}
	ErrAlreadyVerified    = &Error{Key: "email_already_verified", Message: "Email already verified", Status: http.StatusConflict}
	ErrRateLimited        = &Error{Key: "rate_limited", Message: "Too many requests", Status: http.StatusTooManyRequests}
	ErrInvalidToken       = &Error{Key: "invalid_token", Message: "Invalid token", Status: http.StatusBadRequest}
	ErrInvalidRequest     = &Error{Key: "invalid_request", Message: "Invalid request", Status: http.StatusBadRequest}
	ErrInvalidState       = &Error{Key: "invalid_state", Message: "Invalid state", Status: http.StatusBadRequest}
	ErrUnauthorized       = &Error{Key: "unauthorized_access", Message: "Unauthorized access", Status: http.StatusUnauthorized}
	ErrForbidden          = &Error{Key: "forbidden", Message: "Forbidden", Status: http.StatusForbidden}
)

// WriteError converts err to the structured {errors:[{key,message}]} body.
// Unexpected errors collapse to a generic 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = &Error{Key: "server_error", Message: "Server error", Status: http.StatusInternalServerError}
	}
	writeJSON(w, ae.Status, models.AuthResponse{
		Errors: []models.ErrorMessage{{Key: ae.Key, Message: ae.Message}},
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
