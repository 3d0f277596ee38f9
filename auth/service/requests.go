package service

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/goserg/accountserver/auth/users"
)

const (
	maxPasswordLength = 128
	maxFieldLength    = 200
)

var (
	errPasswordsMismatch = errors.New("passwords do not match")
	errUnknownRole       = errors.New("must be USER or ADMIN")
)

type SignUpRequest struct {
	Email                string `json:"email"`
	Name                 string `json:"name"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(0, maxFieldLength), is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(0, maxFieldLength)),
		validation.Field(&r.Password, validation.Required, validation.Length(0, maxPasswordLength)),
		validation.Field(&r.PasswordConfirmation, validation.Required, validation.By(matches(r.Password))),
	)
}

// CreateUserRequest is the admin path. Role defaults to ADMIN.
type CreateUserRequest struct {
	SignUpRequest
	Role users.Role `json:"role"`
}

func (r CreateUserRequest) Validate() error {
	if err := r.SignUpRequest.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.By(knownRole)),
	)
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordChange struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

func (r PasswordChange) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(0, maxPasswordLength)),
		validation.Field(&r.PasswordConfirmation, validation.Required, validation.By(matches(r.Password))),
	)
}

type UpdateUserRequest struct {
	Name  *string     `json:"name"`
	Email *string     `json:"email"`
	Role  *users.Role `json:"role"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(0, maxFieldLength)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(0, maxFieldLength), is.Email),
		validation.Field(&r.Role, validation.NilOrNotEmpty, validation.By(knownRole)),
	)
}

func matches(password string) validation.RuleFunc {
	return func(value interface{}) error {
		if s, _ := value.(string); s != password {
			return errPasswordsMismatch
		}
		return nil
	}
}

// knownRole accepts an empty role, leaving the default to the caller.
func knownRole(value interface{}) error {
	value, isNil := validation.Indirect(value)
	if isNil || validation.IsEmpty(value) {
		return nil
	}
	if role, _ := value.(users.Role); !role.Valid() {
		return errUnknownRole
	}
	return nil
}
