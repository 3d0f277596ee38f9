package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goserg/accountserver/auth/storage"
	"github.com/goserg/accountserver/auth/token"
	"github.com/goserg/accountserver/auth/users"
	"github.com/goserg/accountserver/internal/normalize"
)

// Authenticate resolves a bearer token to the user it was issued for.
func (s *Service) Authenticate(ctx context.Context, bearer string) (users.User, error) {
	id, err := s.issuer.Verify(bearer)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return users.User{}, newError(ErrNotAuthenticated, "invalid token", err)
		}
		return users.User{}, err
	}
	user, err := s.storage.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return users.User{}, newError(ErrNotAuthenticated, "user no longer exists", err)
		}
		return users.User{}, newError(ErrPersistence, "could not load the user", err)
	}
	return user, nil
}

// Authorize requires an exact role match. There is no role hierarchy.
func Authorize(user users.User, role users.Role) error {
	if user.Role != role {
		return newError(ErrForbidden, "access denied", nil)
	}
	return nil
}

// AuthorizeUpdate lets users edit their own profile. Changing a role or
// touching another account requires ADMIN.
func AuthorizeUpdate(actor users.User, targetID uuid.UUID, req UpdateUserRequest) error {
	if actor.Role == users.RoleAdmin {
		return nil
	}
	if req.Role != nil {
		return newError(ErrForbidden, "only administrators may change roles", nil)
	}
	if actor.ID != targetID {
		return newError(ErrForbidden, "access denied", nil)
	}
	return nil
}

// CreateUser is the admin creation path: no confirmation mail, role from the
// request and ADMIN when omitted.
func (s *Service) CreateUser(ctx context.Context, actor users.User, req CreateUserRequest) (users.User, error) {
	if err := Authorize(actor, users.RoleAdmin); err != nil {
		return users.User{}, err
	}
	req.Email = normalize.Email(req.Email)
	req.Name = normalize.Name(req.Name)
	if err := req.Validate(); err != nil {
		return users.User{}, validationError(err)
	}
	role := req.Role
	if role == "" {
		role = users.RoleAdmin
	}
	user, err := s.createUser(ctx, users.User{
		ID:     uuid.New(),
		Email:  req.Email,
		Name:   req.Name,
		Role:   role,
		Status: true,
	}, req.Password)
	if err != nil {
		return users.User{}, err
	}
	s.log.WithFields(logrus.Fields{
		"user":   user.ID,
		"role":   user.Role,
		"madeBy": actor.ID,
	}).Info("user created by admin")
	return user, nil
}

func (s *Service) FindUsers(ctx context.Context, actor users.User, filter storage.Filter) (users.Page, error) {
	if err := Authorize(actor, users.RoleAdmin); err != nil {
		return users.Page{}, err
	}
	page, err := s.storage.FindUsers(ctx, filter)
	if err != nil {
		return users.Page{}, newError(ErrPersistence, "could not search users", err)
	}
	return page, nil
}

func (s *Service) FindUser(ctx context.Context, actor users.User, id uuid.UUID) (users.User, error) {
	if err := Authorize(actor, users.RoleAdmin); err != nil {
		return users.User{}, err
	}
	user, err := s.storage.GetUser(ctx, id)
	if err != nil {
		return users.User{}, s.lookupError(err, "user not found")
	}
	return user, nil
}

// UpdateUser applies a profile update after AuthorizeUpdate. An empty
// request returns the stored user unchanged.
func (s *Service) UpdateUser(ctx context.Context, actor users.User, id uuid.UUID, req UpdateUserRequest) (users.User, error) {
	if err := AuthorizeUpdate(actor, id, req); err != nil {
		return users.User{}, err
	}
	if req.Name != nil {
		req.Name = storage.Ptr(normalize.Name(*req.Name))
	}
	if req.Email != nil {
		req.Email = storage.Ptr(normalize.Email(*req.Email))
	}
	if err := req.Validate(); err != nil {
		return users.User{}, validationError(err)
	}
	patch := storage.Patch{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	}
	if patch.Empty() {
		user, err := s.storage.GetUser(ctx, id)
		if err != nil {
			return users.User{}, s.lookupError(err, "user not found")
		}
		return user, nil
	}
	user, err := s.storage.UpdateUser(ctx, id, patch)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return users.User{}, newError(ErrConflict, "email already in use", err)
		}
		return users.User{}, s.lookupError(err, "user not found")
	}
	return user, nil
}

// ChangeUserPassword lets users change their own password and admins change
// anyone's.
func (s *Service) ChangeUserPassword(ctx context.Context, actor users.User, id uuid.UUID, change PasswordChange) error {
	if actor.ID != id {
		if err := Authorize(actor, users.RoleAdmin); err != nil {
			return err
		}
	}
	return s.ChangePassword(ctx, id, change)
}
