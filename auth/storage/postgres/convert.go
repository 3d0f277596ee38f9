package postgres

import (
	"encoding/hex"

	"github.com/goserg/accountserver/auth/users"
	"github.com/goserg/accountserver/gen/auth/public/model"
)

func toRow(u users.User, secret users.Secret) model.Users {
	row := model.Users{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		Status:       u.Status,
		PasswordHash: hex.EncodeToString(secret.PasswordHash),
		PasswordSalt: hex.EncodeToString(secret.Salt),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.ConfirmationToken != "" {
		row.ConfirmationToken = &u.ConfirmationToken
	}
	if u.RecoverToken != "" {
		row.RecoverToken = &u.RecoverToken
	}
	return row
}

func fromRow(row model.Users) users.User {
	u := users.User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		Role:      users.Role(row.Role),
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.ConfirmationToken != nil {
		u.ConfirmationToken = *row.ConfirmationToken
	}
	if row.RecoverToken != nil {
		u.RecoverToken = *row.RecoverToken
	}
	return u
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
	return users.Secret{PasswordHash: hash, Salt: salt}, nil
}
