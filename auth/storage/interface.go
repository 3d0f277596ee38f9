package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/goserg/accountserver/auth/users"
)

// EmailUniqueIndex names the unique index on email in every backend.
const EmailUniqueIndex = "users_email_uindex"

var (
	ErrNotFound = errors.New("user not found")
	ErrConflict = errors.New("email already in use")
)

// UserStorage owns user records. Implementations must report a violated
// email uniqueness constraint as ErrConflict and a missing record as
// ErrNotFound.
type UserStorage interface {
	CreateUser(ctx context.Context, user users.User, secret users.Secret) (users.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (users.User, error)
	GetUserByEmail(ctx context.Context, email string) (users.User, error)
	GetUserByConfirmationToken(ctx context.Context, token string) (users.User, error)
	GetUserByRecoverToken(ctx context.Context, token string) (users.User, error)
	GetUserSecret(ctx context.Context, id uuid.UUID) (users.Secret, error)
	FindUsers(ctx context.Context, filter Filter) (users.Page, error)
	UpdateUser(ctx context.Context, id uuid.UUID, patch Patch) (users.User, error)
}

// Patch is a partial update. Nil fields are left untouched; a pointer to an
// empty string clears a token.
type Patch struct {
	Name              *string
	Email             *string
	Role              *users.Role
	Status            *bool
	Secret            *users.Secret
	ConfirmationToken *string
	RecoverToken      *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil && p.Status == nil &&
		p.Secret == nil && p.ConfirmationToken == nil && p.RecoverToken == nil
}

// Apply writes the patch onto u and returns the result.
func (p Patch) Apply(u users.User) users.User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.ConfirmationToken != nil {
		u.ConfirmationToken = *p.ConfirmationToken
	}
	if p.RecoverToken != nil {
		u.RecoverToken = *p.RecoverToken
	}
	return u
}

// Ptr is a helper for building patches.
func Ptr[T any](v T) *T {
	return &v
}
