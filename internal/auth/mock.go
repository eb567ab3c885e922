package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
)

// MockAuth provides authentication for local development. The bearer token
// is the user id itself; ids listed as staff get the staff role.
type MockAuth struct {
	staffRole string
	staff     map[string]struct{}
}

// NewMockAuth creates a new mock authentication handler
func NewMockAuth(staffRole string, staffIDs ...string) *MockAuth {
	logger.Info("Using MOCK authentication for local development", "staff", len(staffIDs))
	m := &MockAuth{staffRole: staffRole, staff: make(map[string]struct{}, len(staffIDs))}
	for _, id := range staffIDs {
		m.staff[id] = struct{}{}
	}
	return m
}

func (m *MockAuth) user(id string) *User {
	u := &User{ID: id, Username: id, Groups: []string{"users"}}
	if _, ok := m.staff[id]; ok {
		u.Groups = append(u.Groups, m.staffRole)
	}
	return u
}

func (m *MockAuth) IsAuthorized(ctx context.Context, actorID, coachID string) bool {
	if isAuthorized(ctx, actorID, coachID, m.staffRole) {
		return true
	}
	_, staff := m.staff[actorID]
	return staff
}

// LoginHandler issues a token for ?user=<id>
func (m *MockAuth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("user")
	if id == "" {
		id = "dev-user-123"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": id,
		"user":         m.user(id),
	})
}

// CallbackHandler is not needed for mock auth
func (m *MockAuth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Middleware for mock auth
func (m *MockAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), m.user(token))))
	})
}

// Authenticate resolves a bearer token outside of HTTP (gRPC metadata)
func (m *MockAuth) Authenticate(_ context.Context, token string) (*User, error) {
	return m.user(token), nil
}
