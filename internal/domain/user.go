package domain

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when a user id does not resolve to a stored user.
var ErrUserNotFound = errors.New("user not found")

// Role codes carried in access tokens.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is a registered member. Only the fields announcements need are loaded.
// swagger:model User
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Role represents an application role (e.g. admin, member)
type Role struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository defines read access to users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// ListEmails returns the address of every registered user.
	ListEmails(ctx context.Context) ([]string, error)
}

// RoleRepository defines the interface for role storage
type RoleRepository interface {
	ListByUserID(ctx context.Context, userID string) ([]*Role, error)
}
