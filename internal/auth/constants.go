package auth

// HTTP header constants for authentication.
const (
	// HeaderAuthorization is the Authorization header name.
	HeaderAuthorization = "Authorization"

	// HeaderWWWAuthenticate is the WWW-Authenticate header name.
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// HeaderUserID carries the validated subject to upstream services.
	HeaderUserID = "X-User-ID"

	// HeaderUserEmail carries the validated email to upstream services.
	HeaderUserEmail = "X-User-Email"

	// HeaderUserRole carries the validated role to upstream services.
	HeaderUserRole = "X-User-Role"
)

// AuthSchemeBearer is the Bearer authentication scheme prefix.
const AuthSchemeBearer = "Bearer "

// Claim names read from tokens.
const (
	ClaimEmail = "email"
	ClaimRole  = "role"
)
