package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type tokenClaims struct {
	subject string
	email   string
	role    string
	issuer  string
	expires time.Time
}

func signToken(t *testing.T, secret string, c tokenClaims) string {
	t.Helper()

	builder := jwt.NewBuilder().IssuedAt(time.Now())
	if c.subject != "" {
		builder = builder.Subject(c.subject)
	}
	if c.issuer != "" {
		builder = builder.Issuer(c.issuer)
	}
	if c.expires.IsZero() {
		c.expires = time.Now().Add(time.Hour)
	}
	builder = builder.Expiration(c.expires)

	tok, err := builder.Build()
	require.NoError(t, err)
	if c.email != "" {
		require.NoError(t, tok.Set(ClaimEmail, c.email))
	}
	if c.role != "" {
		require.NoError(t, tok.Set(ClaimRole, c.role))
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	require.NoError(t, err)
	return string(signed)
}
