package users

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Roles is the fixed set of assignable roles.
var Roles = mapset.NewSet[Role](RoleUser, RoleAdmin)

func (r Role) Valid() bool {
	return Roles.Contains(r)
}

// User is an account without its credentials. An empty ConfirmationToken or
// RecoverToken means the token is not set.
type User struct {
	ID                uuid.UUID
	Email             string
	Name              string
	Role              Role
	Status            bool
	ConfirmationToken string
	RecoverToken      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Confirmed reports whether the email address was confirmed.
func (u User) Confirmed() bool {
	return u.ConfirmationToken == ""
}

// Recovering reports whether a password reset is in flight.
func (u User) Recovering() bool {
	return u.RecoverToken != ""
}

type Secret struct {
	PasswordHash []byte
	Salt         []byte
}

// Page is one page of search results plus the total number of matches.
type Page struct {
	Users []User
	Total int
}
