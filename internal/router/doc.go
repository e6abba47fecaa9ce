// Package router provides the gateway route table.
//
// A route maps a path pattern and a set of HTTP methods to an upstream
// service. Patterns are literal paths, paths with ":name" segments that
// match a single path component, or paths ending in "*" that match the
// rest of the path including slashes.
//
// Lookup checks literal patterns first and then walks every pattern in
// registration order; the first one accepting the method wins.
//
//	table, err := router.New(cfg.Services, cfg.Routes)
//	route, ok := table.FindRoute("/api/v1/user/42", http.MethodGet)
//
// The table is built once and never mutated, so lookups need no locking.
package router
