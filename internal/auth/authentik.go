package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
)

// AuthentikConfig holds the configuration for Authentik OAuth2/OIDC
type AuthentikConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	StaffRole    string
	// CacheTTL bounds how long a token's userinfo is trusted without re-checking
	CacheTTL time.Duration
}

type cachedUser struct {
	user      *User
	expiresAt time.Time
}

// AuthentikAuth authenticates bearer tokens against Authentik's userinfo
// endpoint and treats members of the staff group as draft staff.
type AuthentikAuth struct {
	config       *AuthentikConfig
	oauth2Config *oauth2.Config
	httpClient   *http.Client

	mu    sync.RWMutex
	cache map[string]cachedUser
	now   func() time.Time
}

// NewAuthentikAuth creates a new Authentik authentication handler
func NewAuthentikAuth(config *AuthentikConfig) *AuthentikAuth {
	if len(config.Scopes) == 0 {
		config.Scopes = []string{"openid", "profile", "email"}
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}

	oauth2Config := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/application/o/authorize/", config.BaseURL),
			TokenURL: fmt.Sprintf("%s/application/o/token/", config.BaseURL),
		},
	}

	return &AuthentikAuth{
		config:       config,
		oauth2Config: oauth2Config,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		cache:        make(map[string]cachedUser),
		now:          time.Now,
	}
}

func (a *AuthentikAuth) IsAuthorized(ctx context.Context, actorID, coachID string) bool {
	return isAuthorized(ctx, actorID, coachID, a.config.StaffRole)
}

// LoginHandler initiates the OAuth2 login flow
func (a *AuthentikAuth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	state := generateState()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler exchanges the code and hands the access token back to the
// client, which then calls the API with it as a bearer token.
func (a *AuthentikAuth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		logger.Warn("Token exchange failed", "error", err)
		http.Error(w, "Failed to exchange token", http.StatusBadGateway)
		return
	}

	user, err := a.getUserInfo(r.Context(), token.AccessToken)
	if err != nil {
		logger.Warn("Userinfo lookup failed", "error", err)
		http.Error(w, "Failed to get user info", http.StatusBadGateway)
		return
	}
	a.remember(token.AccessToken, user)

	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": token.AccessToken,
		"expiry":       token.Expiry,
		"user":         user,
	})
}

// Middleware resolves the bearer token to a user and rejects the request otherwise
func (a *AuthentikAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		user, err := a.userFor(r.Context(), token)
		if err != nil {
			logger.Debug("Rejected bearer token", "error", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Authenticate resolves a bearer token outside of HTTP (gRPC metadata)
func (a *AuthentikAuth) Authenticate(ctx context.Context, token string) (*User, error) {
	return a.userFor(ctx, token)
}

func (a *AuthentikAuth) userFor(ctx context.Context, token string) (*User, error) {
	a.mu.RLock()
	cached, ok := a.cache[token]
	a.mu.RUnlock()
	if ok && a.now().Before(cached.expiresAt) {
		return cached.user, nil
	}

	user, err := a.getUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	a.remember(token, user)
	return user, nil
}

func (a *AuthentikAuth) remember(token string, user *User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	for k, v := range a.cache {
		if now.After(v.expiresAt) {
			delete(a.cache, k)
		}
	}
	a.cache[token] = cachedUser{user: user, expiresAt: now.Add(a.config.CacheTTL)}
}

// getUserInfo fetches user information from Authentik
func (a *AuthentikAuth) getUserInfo(ctx context.Context, accessToken string) (*User, error) {
	userInfoURL := fmt.Sprintf("%s/application/o/userinfo/", a.config.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to get user info: %s - %s", resp.Status, string(body))
	}

	var userInfo struct {
		Sub               string   `json:"sub"`
		Email             string   `json:"email"`
		Name              string   `json:"name"`
		PreferredUsername string   `json:"preferred_username"`
		Groups            []string `json:"groups"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}
	if userInfo.Sub == "" {
		return nil, fmt.Errorf("userinfo has no subject")
	}

	return &User{
		ID:       userInfo.Sub,
		Email:    userInfo.Email,
		Name:     userInfo.Name,
		Username: userInfo.PreferredUsername,
		Groups:   userInfo.Groups,
	}, nil
}
