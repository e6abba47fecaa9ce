package proxy

import (
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

// upgrader upgrades client connections. Origins are checked by the CORS
// middleware.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWebSocket relays a WebSocket session to the routed upstream. The
// session is opaque to the gateway; only the handshake goes through the
// circuit breaker.
func (o *Orchestrator) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := o.logger.WithContext(r.Context())

	match, ok := o.table.Match(r.URL.Path, r.Method)
	if !ok {
		util.WriteError(w, r.URL.Path, util.NewRouteNotFoundError(r.Method, r.URL.Path))
		return
	}
	route := match.Route

	endpoint, ok := o.table.ServiceEndpoint(route.ServiceKey)
	if !ok {
		util.WriteError(w, r.URL.Path, util.NewServiceNotConfiguredError(route.ServiceKey))
		return
	}

	breaker := o.breakers.GetOrCreate(route.ServiceKey)
	if !breaker.Allow() {
		util.WriteError(w, r.URL.Path, util.NewCircuitOpenError())
		return
	}

	backendURL := websocketURL(BuildTargetURL(endpoint.BaseURL, route.PathPattern, r.URL.EscapedPath(), r.URL.Query()))
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: o.timeout,
	}

	backendConn, resp, err := dialer.DialContext(r.Context(), backendURL, websocketRequestHeaders(r))
	if err != nil {
		if resp == nil {
			breaker.RecordFailure()
			logger.Warn("websocket upstream dial failed",
				observability.String("service", route.ServiceKey),
				observability.Error(err),
			)
			util.WriteError(w, r.URL.Path, util.NewUpstreamUnreachableError(classifyTransportError(err)))
			return
		}
		defer resp.Body.Close()
		breaker.RecordSuccess()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodyBytes))
		util.WriteError(w, r.URL.Path, util.NewUpstreamError(resp.StatusCode, body, resp.Header.Get("Content-Type")))
		return
	}
	defer backendConn.Close()
	breaker.RecordSuccess()

	clientConn, err := upgrader.Upgrade(w, r, websocketResponseHeaders(resp))
	if err != nil {
		logger.Debug("websocket client upgrade failed", observability.Error(err))
		return
	}
	defer clientConn.Close()

	sent, received := relay(clientConn, backendConn)
	logger.Debug("websocket session closed",
		observability.String("service", route.ServiceKey),
		observability.Int64("messages_sent", sent),
		observability.Int64("messages_received", received),
	)
}

// relay copies messages in both directions until either side closes. It
// returns the number of messages sent to and received from the client.
func relay(clientConn, backendConn *websocket.Conn) (sent, received int64) {
	errCh := make(chan error, 2)
	var sentCount, receivedCount atomic.Int64

	pump := func(src, dst *websocket.Conn, counter *atomic.Int64) {
		for {
			msgType, msg, err := src.ReadMessage()
			if err != nil {
				_ = dst.WriteMessage(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				)
				errCh <- err
				return
			}
			counter.Add(1)
			if err := dst.WriteMessage(msgType, msg); err != nil {
				errCh <- err
				return
			}
		}
	}

	go pump(backendConn, clientConn, &sentCount)
	go pump(clientConn, backendConn, &receivedCount)

	<-errCh

	return sentCount.Load(), receivedCount.Load()
}

// websocketURL switches an http(s) URL to ws(s).
func websocketURL(target string) string {
	switch {
	case strings.HasPrefix(target, "https://"):
		return "wss://" + strings.TrimPrefix(target, "https://")
	case strings.HasPrefix(target, "http://"):
		return "ws://" + strings.TrimPrefix(target, "http://")
	default:
		return target
	}
}

// websocketRequestHeaders copies the client headers gorilla does not set
// itself.
func websocketRequestHeaders(r *http.Request) http.Header {
	header := http.Header{}
	for k, vv := range sanitizeRequestHeaders(r.Header) {
		switch strings.ToLower(k) {
		case "upgrade", "sec-websocket-key", "sec-websocket-version",
			"sec-websocket-extensions", "sec-websocket-protocol":
			continue
		}
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	return header
}

// websocketResponseHeaders copies the upstream handshake headers gorilla
// does not manage.
func websocketResponseHeaders(resp *http.Response) http.Header {
	if resp == nil {
		return nil
	}
	header := http.Header{}
	for k, vv := range resp.Header {
		switch strings.ToLower(k) {
		case "upgrade", "connection", "sec-websocket-accept", "sec-websocket-extensions":
			continue
		}
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	return header
}
