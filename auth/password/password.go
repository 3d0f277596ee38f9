// Package password hashes and verifies salted passwords with argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"

	"github.com/goserg/accountserver/auth/users"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	keySize  = 32
)

var ErrEmptySalt = errors.New("password: empty salt")

// Params are the argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

var DefaultParams = Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
}

type Hasher struct {
	params Params
	pepper string
}

// New returns a Hasher. Zero fields of params fall back to DefaultParams.
func New(params Params, pepper string) *Hasher {
	if params.Time == 0 {
		params.Time = DefaultParams.Time
	}
	if params.Memory == 0 {
		params.Memory = DefaultParams.Memory
	}
	if params.Threads == 0 {
		params.Threads = DefaultParams.Threads
	}
	return &Hasher{params: params, pepper: pepper}
}

func (h *Hasher) GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Hash is deterministic for a given plaintext, salt, pepper and params.
func (h *Hasher) Hash(plaintext string, salt []byte) ([]byte, error) {
	if len(salt) == 0 {
		return nil, ErrEmptySalt
	}
	return argon2.IDKey([]byte(h.pepper+plaintext), salt, h.params.Time, h.params.Memory, h.params.Threads, keySize), nil
}

// NewSecret hashes plaintext with a fresh salt.
func (h *Hasher) NewSecret(plaintext string) (users.Secret, error) {
	salt, err := h.GenerateSalt()
	if err != nil {
		return users.Secret{}, err
	}
	hash, err := h.Hash(plaintext, salt)
	if err != nil {
		return users.Secret{}, err
	}
	return users.Secret{
		PasswordHash: hash,
		Salt:         salt,
	}, nil
}

func (h *Hasher) Verify(plaintext string, secret users.Secret) (bool, error) {
	hash, err := h.Hash(plaintext, secret.Salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(hash, secret.PasswordHash) == 1, nil
}
