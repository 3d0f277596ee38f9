package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpaque(t *testing.T) {
	a, err := NewOpaque()
	require.NoError(t, err)
	b, err := NewOpaque()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewIssuer("secret", 0)
	require.NoError(t, err)
	id := uuid.New()

	signed, err := issuer.Issue(id)
	require.NoError(t, err)

	got, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestIssuer_NoExpiryByDefault(t *testing.T) {
	issuer, err := NewIssuer("secret", 0)
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Now().AddDate(-10, 0, 0) }

	signed, err := issuer.Issue(uuid.New())
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.NoError(t, err)
}

func TestIssuer_Expired(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	signed, err := issuer.Issue(uuid.New())
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Rejects(t *testing.T) {
	issuer, err := NewIssuer("secret", 0)
	require.NoError(t, err)
	other, err := NewIssuer("other", 0)
	require.NoError(t, err)

	signed, err := other.Issue(uuid.New())
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: uuid.NewString()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ID: "not-a-uuid"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.token"},
		{name: "foreign secret", token: signed},
		{name: "tampered payload", token: tampered},
		{name: "alg none", token: none},
		{name: "bad id", token: badID},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewIssuer_EmptySecret(t *testing.T) {
	_, err := NewIssuer("", 0)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
