package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/gatehouse-dev/gatehouse/internal/models"
)

const (
	stateCookieName    = "oauth_state"
	verifierCookieName = "oauth_code_verifier"

	// State and verifier cookies only need to survive the round trip to the
	// provider's consent screen.
	oauthCookieTTL = 10 * time.Minute
)

// Profile is the provider-agnostic view of an OAuth user-info response.
type Profile struct {
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
}

// Provider describes one OAuth provider: endpoints, scopes, whether it uses
// PKCE, and how to read its profile response. Both providers run through the
// same start/callback handlers parametrized by this descriptor.
type Provider struct {
	Name         string
	Config       *oauth2.Config
	ProfileURL   string
	UsePKCE      bool
	ExtraOptions []oauth2.AuthCodeOption
	ParseProfile func(body []byte) (*Profile, error)
}

// GoogleProvider uses PKCE and requests offline access so a refresh token is
// stored alongside the access token.
func GoogleProvider(clientID, clientSecret, baseURL string) *Provider {
	return &Provider{
		Name: models.ProviderGoogle,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoints.Google,
			RedirectURL:  baseURL + "/api/auth/oauth/google/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
		},
		ProfileURL:   "https://www.googleapis.com/oauth2/v1/userinfo",
		UsePKCE:      true,
		ExtraOptions: []oauth2.AuthCodeOption{oauth2.AccessTypeOffline},
		ParseProfile: parseGoogleProfile,
	}
}

func GitHubProvider(clientID, clientSecret, baseURL string) *Provider {
	return &Provider{
		Name: models.ProviderGithub,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoints.GitHub,
			RedirectURL:  baseURL + "/api/auth/oauth/github/callback",
			Scopes:       []string{"read:user", "user:email"},
		},
		ProfileURL:   "https://api.github.com/user",
		ParseProfile: parseGitHubProfile,
	}
}

func parseGoogleProfile(body []byte) (*Profile, error) {
	var u struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("parse google profile: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("parse google profile: missing id")
	}
	return &Profile{ProviderUserID: u.ID, Email: u.Email, Name: u.Name, AvatarURL: u.Picture}, nil
}

func parseGitHubProfile(body []byte) (*Profile, error) {
	var u struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("parse github profile: %w", err)
	}
	if u.ID == 0 {
		return nil, fmt.Errorf("parse github profile: missing id")
	}
	name := u.Name
	if name == "" {
		name = u.Login
	}
	return &Profile{
		ProviderUserID: strconv.FormatInt(u.ID, 10),
		Email:          u.Email,
		Name:           name,
		AvatarURL:      u.AvatarURL,
	}, nil
}

// OAuthStart generates the CSRF state (and PKCE verifier where the provider
// uses it), saves both in httpOnly cookies, and returns the authorization URL.
func (h *Handler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	p := h.providers[chi.URLParam(r, "provider")]
	if p == nil {
		WriteError(w, ErrInvalidRequest)
		return
	}

	state, err := generateState()
	if err != nil {
		h.log.Error("generate oauth state", zap.Error(err))
		WriteError(w, err)
		return
	}
	http.SetCookie(w, oauthCookie(stateCookieName, state))

	opts := append([]oauth2.AuthCodeOption{}, p.ExtraOptions...)
	if p.UsePKCE {
		verifier := oauth2.GenerateVerifier()
		http.SetCookie(w, oauthCookie(verifierCookieName, verifier))
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Errors: []models.ErrorMessage{},
		Data:   models.AuthorizationURLData{URL: p.Config.AuthCodeURL(state, opts...)},
	})
}

// OAuthCallback completes the two-step flow: checks state against the saved
// cookie (strict equality, not just presence), exchanges the code, fetches
// the provider profile, and runs the transactional link-or-create before
// issuing a session.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	p := h.providers[chi.URLParam(r, "provider")]
	if p == nil {
		WriteError(w, ErrInvalidRequest)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		WriteError(w, ErrInvalidRequest)
		return
	}

	savedState, err := r.Cookie(stateCookieName)
	if err != nil || savedState.Value == "" || savedState.Value != state {
		WriteError(w, ErrInvalidState)
		return
	}

	var opts []oauth2.AuthCodeOption
	if p.UsePKCE {
		verifier, err := r.Cookie(verifierCookieName)
		if err != nil || verifier.Value == "" {
			WriteError(w, ErrInvalidState)
			return
		}
		opts = append(opts, oauth2.VerifierOption(verifier.Value))
	}

	token, err := p.Config.Exchange(r.Context(), code, opts...)
	if err != nil {
		h.log.Error("oauth exchange", zap.String("provider", p.Name), zap.Error(err))
		WriteError(w, err)
		return
	}

	profile, err := h.fetchProfile(r, p, token)
	if err != nil {
		h.log.Error("oauth profile", zap.String("provider", p.Name), zap.Error(err))
		WriteError(w, err)
		return
	}

	link := &models.OAuthLink{
		Provider:       p.Name,
		ProviderUserID: profile.ProviderUserID,
		Name:           profile.Name,
		AvatarURL:      profile.AvatarURL,
		AccessToken:    token.AccessToken,
	}
	if profile.Email != "" {
		link.Email = &profile.Email
	}
	if token.RefreshToken != "" {
		link.RefreshToken = &token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		link.ExpiresAt = &expiry
	}

	userID, created, err := h.users.LinkOAuthAccount(r.Context(), link)
	if err != nil {
		h.log.Error("oauth link", zap.String("provider", p.Name), zap.Error(err))
		WriteError(w, err)
		return
	}

	if created && h.avatars != nil && profile.AvatarURL != "" {
		if err := h.avatars.Mirror(r.Context(), userID, profile.AvatarURL); err != nil {
			h.log.Warn("mirror avatar", zap.String("user_id", userID), zap.Error(err))
		}
	}

	if err := h.issueSession(r.Context(), w, userID); err != nil {
		h.log.Error("create session", zap.Error(err))
		WriteError(w, err)
		return
	}
	http.SetCookie(w, clearOAuthCookie(stateCookieName))
	if p.UsePKCE {
		http.SetCookie(w, clearOAuthCookie(verifierCookieName))
	}
	h.record(r.Context(), &models.AuthEvent{
		Type: models.EventOAuthLogin, UserID: userID,
		Email: profile.Email, Provider: p.Name, IP: r.RemoteAddr,
	})

	http.Redirect(w, r, h.baseURL+"/dashboard", http.StatusFound)
}

func (h *Handler) fetchProfile(r *http.Request, p *Provider, token *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, p.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("profile read: %w", err)
	}
	return p.ParseProfile(body)
}

func generateState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func oauthCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(oauthCookieTTL / time.Second),
	}
}

func clearOAuthCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}
