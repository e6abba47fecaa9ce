package proxy

import (
	"net/http"
	"net/url"
	"strings"
)

// requestHeaderDenyList holds request headers never forwarded upstream.
var requestHeaderDenyList = []string{
	"Host",
	"Content-Length",
	"Connection",
}

// responseHeaderAllowList holds the only upstream response headers
// returned to the caller.
var responseHeaderAllowList = []string{
	"Content-Type",
	"Cache-Control",
	"Expires",
	"Last-Modified",
	"Etag",
}

// BuildTargetURL joins the service base URL with the substituted path and
// the encoded query. escapedPath must be in escaped form so that reserved
// characters decoded from the inbound URL cannot change the target.
func BuildTargetURL(baseURL, pattern, escapedPath string, query url.Values) string {
	target := strings.TrimSuffix(baseURL, "/") + SubstitutePath(pattern, escapedPath)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// SubstitutePath computes the upstream path for path matched by pattern.
// A trailing wildcard keeps everything after the pattern's base verbatim.
// Named segments take the value found at the same position in path.
func SubstitutePath(pattern, path string) string {
	if strings.HasSuffix(pattern, "*") {
		base := strings.TrimSuffix(strings.TrimSuffix(pattern, "*"), "/")
		if strings.HasPrefix(path, base) {
			return base + path[len(base):]
		}
		return path
	}

	if !strings.Contains(pattern, ":") {
		return pattern
	}

	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	params := make(map[string]string)
	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") && i < len(pathParts) && pathParts[i] != "" {
			params[part[1:]] = pathParts[i]
		}
	}

	for i, part := range patternParts {
		if !strings.HasPrefix(part, ":") {
			continue
		}
		if value, ok := params[part[1:]]; ok {
			patternParts[i] = value
		}
	}
	return strings.Join(patternParts, "/")
}

// sanitizeRequestHeaders copies h without the headers that must not be
// forwarded.
func sanitizeRequestHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for _, name := range requestHeaderDenyList {
		out.Del(name)
	}
	return out
}

// filterResponseHeaders keeps only allow-listed headers.
func filterResponseHeaders(h http.Header) http.Header {
	out := make(http.Header, len(responseHeaderAllowList))
	for _, name := range responseHeaderAllowList {
		if values := h.Values(name); len(values) > 0 {
			out[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
		}
	}
	return out
}
