package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatehouse-dev/gatehouse/internal/email"
	"github.com/gatehouse-dev/gatehouse/internal/models"
	"github.com/gatehouse-dev/gatehouse/internal/store"
)

// resendCooldown is 5s under the 60s countdown the UI shows, so a retry fired
// the moment the countdown ends never races the server clock.
const resendCooldown = 55 * time.Second

const minPasswordLen = 8

// UserStore defines the interface for credential persistence.
type UserStore interface {
	CreateUserWithVerification(ctx context.Context, u *models.User, verificationID, code string) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetVerification(ctx context.Context, userID string) (*models.EmailVerification, error)
	CreateVerification(ctx context.Context, v *models.EmailVerification) error
	UpdateVerificationCode(ctx context.Context, userID, code string, now time.Time) error
	RedeemVerification(ctx context.Context, userID, code string) error
	LinkOAuthAccount(ctx context.Context, link *models.OAuthLink) (userID string, created bool, err error)
}

// Auditor defines the interface for the auth event trail.
type Auditor interface {
	Record(ctx context.Context, ev *models.AuthEvent) error
	ListRecent(ctx context.Context, limit int64) ([]models.AuthEvent, error)
}

// AvatarFiles defines the interface for mirrored profile pictures.
type AvatarFiles interface {
	Mirror(ctx context.Context, userID, url string) error
	Download(ctx context.Context, userID string) ([]byte, string, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users     UserStore
	sessions  Sessions
	mailer    email.Mailer
	audit     Auditor
	avatars   AvatarFiles
	providers map[string]*Provider

	secret  []byte
	baseURL string
	log     *zap.Logger
	now     func() time.Time
}

// Deps collects the collaborators a Handler needs.
type Deps struct {
	Users       UserStore
	Sessions    Sessions
	Mailer      email.Mailer
	Audit       Auditor
	Avatars     AvatarFiles
	Providers   []*Provider
	TokenSecret []byte
	BaseURL     string
	Log         *zap.Logger
}

func NewHandler(d Deps) *Handler {
	providers := make(map[string]*Provider, len(d.Providers))
	for _, p := range d.Providers {
		providers[p.Name] = p
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Handler{
		users:     d.Users,
		sessions:  d.Sessions,
		mailer:    d.Mailer,
		audit:     d.Audit,
		avatars:   d.Avatars,
		providers: providers,
		secret:    d.TokenSecret,
		baseURL:   strings.TrimSuffix(d.BaseURL, "/"),
		log:       d.Log,
		now:       time.Now,
	}
}

// SignUp creates an unverified user, its verification row, and dispatches the
// verification email.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrInvalidInput)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(req.Email) || len(req.Password) < minPasswordLen || req.Password != req.ConfirmPassword {
		WriteError(w, ErrInvalidInput)
		return
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		WriteError(w, err)
		return
	}

	code, err := GenerateVerificationCode()
	if err != nil {
		h.log.Error("generate verification code", zap.Error(err))
		WriteError(w, err)
		return
	}

	user := &models.User{
		ID:             uuid.New().String(),
		Email:          &req.Email,
		HashedPassword: &hashed,
		Role:           models.RoleUser,
	}
	if err := h.users.CreateUserWithVerification(r.Context(), user, uuid.New().String(), code); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			WriteError(w, ErrAccountExists)
			return
		}
		h.log.Error("create user", zap.Error(err))
		WriteError(w, err)
		return
	}

	h.sendVerification(r.Context(), req.Email, user.ID, code)
	h.record(r.Context(), &models.AuthEvent{Type: models.EventSignUp, UserID: user.ID, Email: req.Email, IP: r.RemoteAddr})

	writeJSON(w, http.StatusCreated, models.AuthResponse{
		Errors: []models.ErrorMessage{},
		Data:   models.SignUpData{UserID: user.ID},
	})
}

// SignIn authenticates a password user and issues a session cookie. A correct
// password against an unverified email still fails: verification gates the
// first session.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrInvalidInput)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(req.Email) || req.Password == "" {
		WriteError(w, ErrInvalidInput)
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		h.log.Error("get user", zap.Error(err))
		WriteError(w, err)
		return
	}
	if user == nil || user.HashedPassword == nil {
		WriteError(w, ErrUserNotFound)
		return
	}
	if !VerifyPassword(*user.HashedPassword, req.Password) {
		WriteError(w, ErrInvalidCredentials)
		return
	}
	if !user.IsEmailVerified {
		WriteError(w, ErrEmailNotVerified)
		return
	}

	if err := h.issueSession(r.Context(), w, user.ID); err != nil {
		h.log.Error("create session", zap.Error(err))
		WriteError(w, err)
		return
	}
	h.record(r.Context(), &models.AuthEvent{Type: models.EventSignIn, UserID: user.ID, Email: req.Email, IP: r.RemoteAddr})

	writeJSON(w, http.StatusOK, models.AuthResponse{Errors: []models.ErrorMessage{}})
}

// SignOut invalidates the current session and blanks the cookie.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	session, err := h.currentSession(r)
	if err != nil {
		h.log.Error("validate session", zap.Error(err))
		WriteError(w, err)
		return
	}
	if session == nil {
		WriteError(w, ErrUnauthorized)
		return
	}

	if err := h.sessions.Invalidate(r.Context(), session.ID); err != nil {
		h.log.Error("invalidate session", zap.Error(err))
		WriteError(w, err)
		return
	}
	http.SetCookie(w, BlankSessionCookie())
	h.record(r.Context(), &models.AuthEvent{Type: models.EventSignOut, UserID: session.UserID, IP: r.RemoteAddr})

	writeJSON(w, http.StatusOK, models.AuthResponse{Errors: []models.ErrorMessage{}})
}

// ResendVerification re-issues the verification code and email, at most once
// per cooldown window.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req models.ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrInvalidInput)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		WriteError(w, ErrInvalidInput)
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		h.log.Error("get user", zap.Error(err))
		WriteError(w, err)
		return
	}
	if user == nil {
		WriteError(w, ErrUserNotFound)
		return
	}
	if user.IsEmailVerified {
		WriteError(w, ErrAlreadyVerified)
		return
	}

	code, err := GenerateVerificationCode()
	if err != nil {
		h.log.Error("generate verification code", zap.Error(err))
		WriteError(w, err)
		return
	}

	existing, err := h.users.GetVerification(r.Context(), user.ID)
	if err != nil {
		h.log.Error("get verification", zap.Error(err))
		WriteError(w, err)
		return
	}
	switch {
	case existing == nil:
		v := &models.EmailVerification{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			Code:      code,
			CreatedAt: h.now(),
		}
		if err := h.users.CreateVerification(r.Context(), v); err != nil {
			h.log.Error("create verification", zap.Error(err))
			WriteError(w, err)
			return
		}
	case h.now().Sub(existing.CreatedAt) <= resendCooldown:
		WriteError(w, ErrRateLimited)
		return
	default:
		if err := h.users.UpdateVerificationCode(r.Context(), user.ID, code, h.now()); err != nil {
			h.log.Error("update verification", zap.Error(err))
			WriteError(w, err)
			return
		}
	}

	h.sendVerification(r.Context(), req.Email, user.ID, code)
	h.record(r.Context(), &models.AuthEvent{Type: models.EventResend, UserID: user.ID, Email: req.Email, IP: r.RemoteAddr})

	writeJSON(w, http.StatusOK, models.AuthResponse{Errors: []models.ErrorMessage{}})
}

// VerifyEmail redeems an emailed verification token. The token's embedded
// code must match the current live row, so a link superseded by a resend no
// longer works. Successful verification doubles as first login.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		http.Redirect(w, r, h.baseURL+"/sign-in", http.StatusFound)
		return
	}

	claims, err := ParseVerificationToken(h.secret, tokenString)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.users.RedeemVerification(r.Context(), claims.UserID, claims.Code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, ErrInvalidToken)
			return
		}
		h.log.Error("redeem verification", zap.Error(err))
		WriteError(w, err)
		return
	}

	if err := h.issueSession(r.Context(), w, claims.UserID); err != nil {
		h.log.Error("create session", zap.Error(err))
		WriteError(w, err)
		return
	}
	h.record(r.Context(), &models.AuthEvent{Type: models.EventVerifyEmail, UserID: claims.UserID, Email: claims.Email, IP: r.RemoteAddr})

	http.Redirect(w, r, h.baseURL, http.StatusFound)
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		WriteError(w, ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// MeAvatar serves the user's mirrored profile picture.
func (h *Handler) MeAvatar(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		WriteError(w, ErrUnauthorized)
		return
	}
	data, contentType, err := h.avatars.Download(r.Context(), user.ID)
	if err != nil {
		WriteError(w, &Error{Key: "not_found", Message: "No avatar", Status: http.StatusNotFound})
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// ListEvents returns recent auth events. Admin only; the router layers
// RequireAdmin in front.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.audit.ListRecent(r.Context(), 100)
	if err != nil {
		h.log.Error("list auth events", zap.Error(err))
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// issueSession applies the single-active-session policy and sets the session
// cookie: any prior session for the user is invalidated first.
func (h *Handler) issueSession(ctx context.Context, w http.ResponseWriter, userID string) error {
	if err := h.sessions.InvalidateUser(ctx, userID); err != nil {
		return err
	}
	session, err := h.sessions.Create(ctx, userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, NewSessionCookie(session))
	return nil
}

func (h *Handler) currentSession(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, nil
	}
	return h.sessions.Validate(r.Context(), cookie.Value)
}

// sendVerification signs a fresh token and emails the link. Failures are
// logged, never surfaced: the sign-up already committed and the user can
// always hit resend.
func (h *Handler) sendVerification(ctx context.Context, to, userID, code string) {
	token, err := SignVerificationToken(h.secret, to, userID, code, h.now())
	if err != nil {
		h.log.Error("sign verification token", zap.Error(err))
		return
	}
	verifyURL := h.baseURL + "/api/auth/verify-email?token=" + token
	if err := h.mailer.SendVerification(ctx, to, verifyURL); err != nil {
		h.log.Error("send verification email", zap.String("to", to), zap.Error(err))
	}
}

func (h *Handler) record(ctx context.Context, ev *models.AuthEvent) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(ctx, ev); err != nil {
		h.log.Warn("record auth event", zap.String("type", ev.Type), zap.Error(err))
	}
}

func validEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && len(s) <= 255
}
