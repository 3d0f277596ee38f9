package sqlite

import (
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/goserg/accountserver/auth/gen/model"
	"github.com/goserg/accountserver/auth/users"
)

func toRow(u users.User, secret users.Secret) model.Users {
	return model.Users{
		ID:                u.ID.String(),
		Email:             u.Email,
		Name:              u.Name,
		Role:              string(u.Role),
		Status:            u.Status,
		PasswordHash:      hex.EncodeToString(secret.PasswordHash),
		PasswordSalt:      hex.EncodeToString(secret.Salt),
		ConfirmationToken: nullable(u.ConfirmationToken),
		RecoverToken:      nullable(u.RecoverToken),
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func fromRow(row model.Users) (users.User, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return users.User{}, err
	}
	return users.User{
		ID:                id,
		Email:             row.Email,
		Name:              row.Name,
		Role:              users.Role(row.Role),
		Status:            row.Status,
		ConfirmationToken: deref(row.ConfirmationToken),
		RecoverToken:      deref(row.RecoverToken),
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

func secretFromRow(row model.Users) (users.Secret, error) {
	hash, err := hex.DecodeString(row.PasswordHash)
	if err != nil {
		return users.Secret{}, err
	}
	salt, err := hex.DecodeString(row.PasswordSalt)
	if err != nil {
		return users.Secret{}, err
	}
	return users.Secret{
		PasswordHash: hash,
		Salt:         salt,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
