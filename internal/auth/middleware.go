package auth

import (
	"errors"
	"net/http"

	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

// Decision labels.
const (
	decisionPublic        = "public"
	decisionAuthenticated = "authenticated"
	decisionRejected      = "rejected"
)

type middlewareOptions struct {
	logger          observability.Logger
	metrics         *Metrics
	forwardIdentity bool
}

// MiddlewareOption is a functional option for the auth middleware.
type MiddlewareOption func(*middlewareOptions)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.metrics = metrics
	}
}

// WithForwardIdentity controls whether the validated identity is copied to
// the X-User-* request headers sent upstream.
func WithForwardIdentity(enabled bool) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.forwardIdentity = enabled
	}
}

// Middleware enforces the route table's auth decision. Requests to public
// routes pass straight through. Everything else needs a valid bearer token
// and is rejected with 401 before reaching the next handler otherwise.
func Middleware(resolver RouteResolver, validator Validator, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := &middlewareOptions{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			stripIdentityHeaders(r.Header)

			route, _ := resolver.FindRoute(r.URL.Path, r.Method)
			if !RequiresAuth(route) {
				o.metrics.recordDecision(decisionPublic)
				next.ServeHTTP(w, r)
				return
			}

			identity, err := authenticate(r, validator)
			if err != nil {
				o.metrics.recordDecision(decisionRejected)
				o.metrics.recordFailure(failureReason(err))
				o.logger.WithContext(r.Context()).Warn("authentication failed",
					observability.String("path", r.URL.Path),
					observability.String("method", r.Method),
					observability.Error(err),
				)
				writeUnauthorized(w, r, err)
				return
			}

			o.metrics.recordDecision(decisionAuthenticated)
			if o.forwardIdentity {
				setIdentityHeaders(r.Header, identity)
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose bearer token does not carry role.
// Missing or invalid tokens get 401, a valid token with another role 403.
func RequireRole(validator Validator, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				var err error
				identity, err = authenticate(r, validator)
				if err != nil {
					writeUnauthorized(w, r, err)
					return
				}
			}

			if !identity.HasRole(role) {
				util.WriteError(w, r.URL.Path, util.NewForbiddenError("Insufficient permissions"))
				return
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, validator Validator) (*Identity, error) {
	if validator == nil {
		return nil, ErrNoSecret
	}
	token, err := ExtractBearerToken(r)
	if err != nil {
		return nil, err
	}
	return validator.Validate(r.Context(), token)
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	message := "Authentication required"
	switch {
	case errors.Is(err, ErrTokenExpired):
		message = "Token expired"
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrMissingClaim):
		message = "Invalid token"
	}

	w.Header().Set(HeaderWWWAuthenticate, "Bearer")
	util.WriteError(w, r.URL.Path, util.NewUnauthorizedError(message))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrMissingClaim):
		return "missing_claim"
	case errors.Is(err, ErrNoSecret):
		return "not_configured"
	default:
		return "invalid_token"
	}
}

func stripIdentityHeaders(h http.Header) {
	h.Del(HeaderUserID)
	h.Del(HeaderUserEmail)
	h.Del(HeaderUserRole)
}

func setIdentityHeaders(h http.Header, identity *Identity) {
	h.Set(HeaderUserID, identity.Subject)
	if identity.Email != "" {
		h.Set(HeaderUserEmail, identity.Email)
	}
	if identity.Role != "" {
		h.Set(HeaderUserRole, identity.Role)
	}
}
