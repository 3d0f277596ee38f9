package mongo

import (
	"time"

	"github.com/google/uuid"

	"github.com/goserg/accountserver/auth/users"
)

type userDocument struct {
	ID                string    `bson:"_id"`
	Email             string    `bson:"email"`
	Name              string    `bson:"name"`
	Role              string    `bson:"role"`
	Status            bool      `bson:"status"`
	PasswordHash      []byte    `bson:"password_hash,omitempty"`
	PasswordSalt      []byte    `bson:"password_salt,omitempty"`
	ConfirmationToken string    `bson:"confirmation_token,omitempty"`
	RecoverToken      string    `bson:"recover_token,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func toDocument(u users.User, secret users.Secret) userDocument {
	return userDocument{
		ID:                u.ID.String(),
		Email:             u.Email,
		Name:              u.Name,
		Role:              string(u.Role),
		Status:            u.Status,
		PasswordHash:      secret.PasswordHash,
		PasswordSalt:      secret.Salt,
		ConfirmationToken: u.ConfirmationToken,
		RecoverToken:      u.RecoverToken,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func (d userDocument) user() (users.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return users.User{}, err
	}
	return users.User{
		ID:                id,
		Email:             d.Email,
		Name:              d.Name,
		Role:              users.Role(d.Role),
		Status:            d.Status,
		ConfirmationToken: d.ConfirmationToken,
		RecoverToken:      d.RecoverToken,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

func (d userDocument) secret() users.Secret {
	return users.Secret{
		PasswordHash: d.PasswordHash,
		Salt:         d.PasswordSalt,
	}
}
