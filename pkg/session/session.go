package session

import (
	"context"
	"time"
)

// Durable storage keys owned by the session manager.
const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"
)

// User is the authenticated account as reported by the server.
type User struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Username  string    `json:"username"`
	Firstname string    `json:"firstname"`
	Email     string    `json:"email"`
	ID        int64     `json:"id"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
}

// Credentials are the login form values.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// State is an immutable snapshot of the session.
// Token and User are always both set or both empty.
type State struct {
	User  *User
	Token string
	// EndedOwnerID is the user id of the session the latest transition
	// ended, so that observers can drop that user's cached data even if they
	// never saw the session. Zero while a session is active.
	EndedOwnerID int64
	Initialized  bool
}

// Authenticated reports whether the snapshot carries a token and a user.
func (s State) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// IsAdmin reports whether the snapshot belongs to an administrator.
func (s State) IsAdmin() bool {
	return s.Authenticated() && s.User.IsAdmin
}

// OwnerID returns the user id, or false when anonymous.
func (s State) OwnerID() (int64, bool) {
	if !s.Authenticated() {
		return 0, false
	}
	return s.User.ID, true
}

// Authenticator is the network side of authentication.
type Authenticator interface {
	// Login exchanges credentials for a token and the user it belongs to.
	Login(ctx context.Context, creds Credentials) (string, User, error)

	// Logout invalidates token on the server.
	Logout(ctx context.Context, token string) error

	// CurrentUser returns the user token belongs to.
	// Authorization failures must satisfy IsAuthorizationError.
	CurrentUser(ctx context.Context, token string) (User, error)
}
