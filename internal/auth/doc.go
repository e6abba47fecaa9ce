// Package auth decides which requests need an authenticated caller and
// validates bearer tokens for them.
//
// The decision is taken from the route table: a matched route carries its
// own flag, and a request that matches no route is treated as protected.
// Tokens are HS256 JWTs carrying "sub", "email" and "role" claims.
package auth
