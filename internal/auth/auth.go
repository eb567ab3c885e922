package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"slices"
	"strings"
)

// User represents an authenticated user
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"name,omitempty"`
	Username string   `json:"username,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

// Authorizer decides whether actorID may act on coachID's turn
type Authorizer interface {
	IsAuthorized(ctx context.Context, actorID, coachID string) bool
}

// Provider is a common interface for authentication providers
type Provider interface {
	Authorizer
	LoginHandler(w http.ResponseWriter, r *http.Request)
	CallbackHandler(w http.ResponseWriter, r *http.Request)
	Middleware(next http.Handler) http.Handler
}

type userKey struct{}

// WithUser stores the authenticated user on ctx
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext retrieves the authenticated user, or nil
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userKey{}).(*User)
	return user
}

// GetUser retrieves the authenticated user from the request context
func GetUser(r *http.Request) *User {
	return UserFromContext(r.Context())
}

// IsStaff checks if the user holds the staff role
func IsStaff(user *User, role string) bool {
	if user == nil || role == "" {
		return false
	}
	return slices.Contains(user.Groups, role)
}

// isAuthorized is the shared rule: the coach themself, or a staff member
// acting under their own identity.
func isAuthorized(ctx context.Context, actorID, coachID, staffRole string) bool {
	if actorID == "" {
		return false
	}
	if actorID == coachID {
		return true
	}
	user := UserFromContext(ctx)
	return user != nil && user.ID == actorID && IsStaff(user, staffRole)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// generateState generates a random state string for CSRF protection
func generateState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

// IsStaffActor reports whether actorID may act for any participant. No
// coach has an empty id, so only staff pass.
func IsStaffActor(ctx context.Context, a Authorizer, actorID string) bool {
	return a.IsAuthorized(ctx, actorID, "")
}

// Authenticator resolves a bearer token outside of HTTP, e.g. gRPC metadata
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*User, error)
}
