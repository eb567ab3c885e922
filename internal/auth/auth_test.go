package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const staffRole = "NPO-Draft Staff"

func TestMockAuthIsAuthorized(t *testing.T) {
	m := NewMockAuth(staffRole, "staff-1")
	ctx := context.Background()

	assert.True(t, m.IsAuthorized(ctx, "coach-1", "coach-1"))
	assert.True(t, m.IsAuthorized(ctx, "staff-1", "coach-1"))
	assert.False(t, m.IsAuthorized(ctx, "coach-2", "coach-1"))
	assert.False(t, m.IsAuthorized(ctx, "", ""))
}

func TestMockAuthMiddleware(t *testing.T) {
	m := NewMockAuth(staffRole, "staff-1")
	var seen *User
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUser(r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer staff-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "staff-1", seen.ID)
	assert.True(t, IsStaff(seen, staffRole))
}

func TestIsStaff(t *testing.T) {
	assert.False(t, IsStaff(nil, staffRole))
	assert.False(t, IsStaff(&User{Groups: []string{staffRole}}, ""))
	assert.True(t, IsStaff(&User{Groups: []string{"users", staffRole}}, staffRole))
}

func newAuthentikServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/application/o/userinfo/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.Header.Get("Authorization") {
		case "Bearer staff-token":
			json.NewEncoder(w).Encode(map[string]any{"sub": "u-staff", "groups": []string{staffRole}})
		case "Bearer coach-token":
			json.NewEncoder(w).Encode(map[string]any{"sub": "u-coach", "preferred_username": "coach"})
		default:
			http.Error(w, "nope", http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("/application/o/token/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "coach-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthentikMiddlewareAndStaff(t *testing.T) {
	var calls atomic.Int32
	srv := newAuthentikServer(t, &calls)
	a := NewAuthentikAuth(&AuthentikConfig{BaseURL: srv.URL, StaffRole: staffRole, CacheTTL: time.Minute})

	var authorized bool
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorized = a.IsAuthorized(r.Context(), GetUser(r).ID, "u-coach")
	}))

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer staff-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, authorized)
	}
	assert.Equal(t, int32(1), calls.Load(), "userinfo should be cached")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthentikNonStaffCannotActForOthers(t *testing.T) {
	var calls atomic.Int32
	srv := newAuthentikServer(t, &calls)
	a := NewAuthentikAuth(&AuthentikConfig{BaseURL: srv.URL, StaffRole: staffRole})

	user, err := a.Authenticate(context.Background(), "coach-token")
	require.NoError(t, err)
	ctx := WithUser(context.Background(), user)

	assert.True(t, a.IsAuthorized(ctx, "u-coach", "u-coach"))
	assert.False(t, a.IsAuthorized(ctx, "u-coach", "u-other"))
	// an actor id that does not match the authenticated user is never staff
	assert.False(t, a.IsAuthorized(ctx, "u-staff", "u-other"))
}

func TestAuthentikCallbackFlow(t *testing.T) {
	var calls atomic.Int32
	srv := newAuthentikServer(t, &calls)
	a := NewAuthentikAuth(&AuthentikConfig{BaseURL: srv.URL, ClientID: "kokoloko", RedirectURL: "http://localhost/auth/callback"})

	rec := httptest.NewRecorder()
	a.LoginHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	state := cookies[0].Value

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+state, nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	a.CallbackHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		AccessToken string `json:"access_token"`
		User        User   `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "coach-token", body.AccessToken)
	assert.Equal(t, "u-coach", body.User.ID)

	req = httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=wrong", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	a.CallbackHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
