package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vyrodovalexey/apigateway/internal/router"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

// VersionSource lists the API versions served by the gateway.
type VersionSource interface {
	SupportedVersions() []string
	LatestVersion() string
}

// GatewayHeaders returns a middleware that sets the gateway and API
// version headers on every response, including errors written by inner
// handlers.
func GatewayHeaders(versions VersionSource) Middleware {
	supported := strings.Join(versions.SupportedVersions(), ", ")
	latest := versions.LatestVersion()
	if latest == "" {
		latest = DefaultAPIVersion
	}
	if supported == "" {
		supported = latest
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := util.StartTimeFromContext(r.Context())
			if start.IsZero() {
				start = time.Now()
				r = r.WithContext(util.ContextWithStartTime(r.Context(), start))
			}

			version := router.VersionFromPath(r.URL.Path)
			if version == "" {
				version = DefaultAPIVersion
			}

			rw := newResponseWriter(w)
			rw.beforeWrite = func(h http.Header) {
				h.Set(HeaderGatewayVersion, GatewayVersion)
				h.Set(HeaderGatewayResponseTime, strconv.FormatInt(time.Since(start).Milliseconds(), 10)+"ms")
				h.Set(HeaderAPIVersion, version)
				h.Set(HeaderAPISupportedVersions, supported)
				h.Set(HeaderAPILatestVersion, latest)
			}

			next.ServeHTTP(rw, r)

			if !rw.wroteHeader {
				rw.WriteHeader(http.StatusOK)
			}
		})
	}
}
