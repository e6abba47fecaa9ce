package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/observability"
)

// Validator turns a bearer token into an identity.
type Validator interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

// jwtValidator validates HS256 tokens.
type jwtValidator struct {
	secret []byte
	issuer string
	now    func() time.Time
	logger observability.Logger
}

// ValidatorOption is a functional option for the validator.
type ValidatorOption func(*jwtValidator)

// WithValidatorLogger sets the logger for the validator.
func WithValidatorLogger(logger observability.Logger) ValidatorOption {
	return func(v *jwtValidator) {
		v.logger = logger
	}
}

// WithValidatorClock sets the clock used for expiry checks.
func WithValidatorClock(now func() time.Time) ValidatorOption {
	return func(v *jwtValidator) {
		v.now = now
	}
}

// NewValidator creates a token validator from the auth configuration.
func NewValidator(cfg config.AuthConfig, opts ...ValidatorOption) (Validator, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}

	v := &jwtValidator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		now:    time.Now,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// Validate verifies the signature and the time claims of token.
func (v *jwtValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoCredentials
	}

	parseOpts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	}
	if v.issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.Parse([]byte(token), parseOpts...)
	if err != nil {
		v.logger.WithContext(ctx).Debug("token validation failed", observability.Error(err))
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if parsed.Subject() == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return &Identity{
		Subject:   parsed.Subject(),
		Issuer:    parsed.Issuer(),
		ExpiresAt: parsed.Expiration(),
		Email:     stringClaim(parsed, ClaimEmail),
		Role:      stringClaim(parsed, ClaimRole),
	}, nil
}

func stringClaim(token jwt.Token, name string) string {
	value, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

// ExtractBearerToken returns the token of a "Bearer" Authorization header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(HeaderAuthorization)
	if len(header) <= len(AuthSchemeBearer) ||
		!strings.EqualFold(header[:len(AuthSchemeBearer)], AuthSchemeBearer) {
		return "", ErrNoCredentials
	}

	token := strings.TrimSpace(header[len(AuthSchemeBearer):])
	if token == "" {
		return "", ErrNoCredentials
	}
	return token, nil
}
