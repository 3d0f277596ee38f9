// Package token mints opaque confirmation/recovery tokens and signed bearer
// tokens.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

const opaqueSize = 32

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("token: empty signing secret")
)

// NewOpaque returns 32 random bytes, hex encoded.
func NewOpaque() (string, error) {
	b := make([]byte, opaqueSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type Claims struct {
	ID string `json:"id"`
	jwt.StandardClaims
}

// Issuer signs and verifies HS256 bearer tokens. A zero ttl issues tokens
// without an expiry.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (i *Issuer) Issue(userID uuid.UUID) (string, error) {
	now := i.now()
	claims := Claims{
		ID: userID.String(),
		StandardClaims: jwt.StandardClaims{
			IssuedAt: now.Unix(),
			Subject:  userID.String(),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = now.Add(i.ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks the signature (and expiry, when present) and returns the
// user id carried by the token.
func (i *Issuer) Verify(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, describe(err))
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad id claim", ErrInvalidToken)
	}
	return id, nil
}

func describe(err error) string {
	ve := &jwt.ValidationError{}
	if !errors.As(err, &ve) {
		return err.Error()
	}
	switch {
	case ve.Errors&jwt.ValidationErrorMalformed != 0:
		return "malformed"
	case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
		return "expired"
	case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
		return "signature invalid"
	default:
		return err.Error()
	}
}
