package models

// SignUpRequest is the JSON body for POST /api/auth/signup.
type SignUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// SignInRequest is the JSON body for POST /api/auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResendVerificationRequest is the JSON body for POST /api/auth/resend-verification.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// ErrorMessage is a single structured error: Key is a stable machine-readable
// discriminator the UI switches on, Message is human-readable.
type ErrorMessage struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// AuthResponse is the envelope every auth action returns. Errors is always
// present (empty on success); Data is action-specific.
type AuthResponse struct {
	Errors []ErrorMessage `json:"errors"`
	Data   any            `json:"data,omitempty"`
}

// SignUpData is the Data payload of a successful sign-up.
type SignUpData struct {
	UserID string `json:"userId"`
}

// AuthorizationURLData is the Data payload of an OAuth authorization start.
type AuthorizationURLData struct {
	URL string `json:"url"`
}
