package middleware

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/ratelimit"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

// maxLoggedBody caps the request body inspected for debug logging.
const maxLoggedBody = 64 << 10

type loggingOptions struct {
	logBodies bool
	clientIP  *ratelimit.ClientIPResolver
}

// LoggingOption configures Logging.
type LoggingOption func(*loggingOptions)

// WithBodyLogging logs redacted JSON bodies of POST, PUT and PATCH
// requests at debug level.
func WithBodyLogging(enabled bool) LoggingOption {
	return func(o *loggingOptions) {
		o.logBodies = enabled
	}
}

// WithClientIPResolver sets how the logged client_ip is resolved. The
// default is the peer address.
func WithClientIPResolver(resolver *ratelimit.ClientIPResolver) LoggingOption {
	return func(o *loggingOptions) {
		o.clientIP = resolver
	}
}

// Logging returns a middleware that logs each request once it completes.
func Logging(logger observability.Logger, opts ...LoggingOption) Middleware {
	o := loggingOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			if util.StartTimeFromContext(r.Context()).IsZero() {
				r = r.WithContext(util.ContextWithStartTime(r.Context(), start))
			}
			reqLogger := logger.WithContext(r.Context())

			if o.logBodies && hasLoggableBody(r) {
				logRequestBody(reqLogger, r)
			}

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			fields := []observability.Field{
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.Int("status", rw.status),
				observability.Int("size", rw.size),
				observability.Duration("duration", time.Since(start)),
				observability.String("client_ip", o.clientIP.ClientIP(r)),
				observability.String("user_agent", r.UserAgent()),
			}
			if route := util.RouteFromContext(r.Context()); route != "" {
				fields = append(fields, observability.String("route", route))
			}

			switch {
			case rw.status >= http.StatusInternalServerError:
				reqLogger.Error("http request", fields...)
			case rw.status >= http.StatusBadRequest:
				reqLogger.Warn("http request", fields...)
			default:
				reqLogger.Info("http request", fields...)
			}
		})
	}
}

func hasLoggableBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get(HeaderContentType))
	return err == nil && mediaType == ContentTypeJSON
}

// logRequestBody logs the redacted body and restores it for the next
// handler.
func logRequestBody(logger observability.Logger, r *http.Request) {
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), Closer: r.Body}
	if err != nil || len(buf) == 0 {
		return
	}

	redacted, ok := RedactJSON(buf)
	if !ok {
		logger.Debug("request body", observability.String("body", "[unparseable]"))
		return
	}
	logger.Debug("request body", observability.String("body", string(redacted)))
}

type readCloser struct {
	io.Reader
	io.Closer
}
