package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apigateway/internal/circuitbreaker"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

func TestHandler_ForwardsResponse(t *testing.T) {
	t.Parallel()

	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Powered-By", "Express")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"path":"`+r.URL.Path+`"}`)
	})
	orch, _ := newTestOrchestrator(t, up.URL)
	h := Handler(orch)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/challenge/9", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"/api/v1/challenge/9"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("X-Powered-By"))
}

func TestHandler_KeepsEscapedPathUpstream(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		target  string
		wantURI string
	}{
		{name: "escaped question mark", target: "/api/v1/challenge/77%3Fadmin=true", wantURI: "/api/v1/challenge/77%3Fadmin=true"},
		{name: "escaped fragment", target: "/api/v1/challenge/77%23frag", wantURI: "/api/v1/challenge/77%23frag"},
		{name: "escaped slash under wildcard", target: "/terminal/files/a%2Fb", wantURI: "/terminal/files/a%2Fb"},
		{name: "real query kept", target: "/api/v1/challenge/77?lang=go", wantURI: "/api/v1/challenge/77?lang=go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			orch, _ := newTestOrchestrator(t, up.URL)

			rec := httptest.NewRecorder()
			Handler(orch).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantURI, up.lastPath.Load())
		})
	}
}

func TestHandler_ErrorEnvelope(t *testing.T) {
	t.Parallel()

	up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {})
	orch, _ := newTestOrchestrator(t, up.URL)
	h := Handler(orch)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body util.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, util.CodeRouteNotFound, body.Error.Code)
	assert.Equal(t, http.StatusNotFound, body.Error.StatusCode)
	assert.Equal(t, "/api/v1/unknown", body.Error.Path)
	_, err := time.Parse(util.TimestampFormat, body.Error.Timestamp)
	assert.NoError(t, err)
}

func TestHandler_UpstreamErrorPassthrough(t *testing.T) {
	t.Parallel()

	up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"already exists"}`)
	})
	orch, _ := newTestOrchestrator(t, up.URL)

	rec := httptest.NewRecorder()
	Handler(orch).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/challenges", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message":"already exists"}`, rec.Body.String())
}

func TestHandler_NotModified(t *testing.T) {
	t.Parallel()

	up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusNotModified)
	})
	orch, _ := newTestOrchestrator(t, up.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/challenge/3", nil)
	req.Header.Set("If-None-Match", `"abc"`)
	rec := httptest.NewRecorder()
	Handler(orch).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Equal(t, `"abc"`, rec.Header().Get("ETag"))
	assert.Zero(t, rec.Body.Len())
}

func TestHandler_BodyTooLarge(t *testing.T) {
	t.Parallel()

	up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {})
	orch, _ := newTestOrchestrator(t, up.URL)
	h := Handler(orch, WithMaxBodyBytes(8))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/challenges", strings.NewReader(`{"too":"large"}`)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, up.hits.Load())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/challenges", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), up.hits.Load())
}

func TestHandler_WebSocketRelay(t *testing.T) {
	t.Parallel()

	backend := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		u := websocket.Upgrader{}
		conn, err := u.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, append([]byte("echo:"), msg...)); err != nil {
				return
			}
		}
	})
	orch, _ := newTestOrchestrator(t, backend.URL)

	gateway := httptest.NewServer(Handler(orch))
	t.Cleanup(gateway.Close)

	wsURL := "ws" + strings.TrimPrefix(gateway.URL, "http") + "/terminal/ws/session1"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ls")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	msgType, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	assert.Equal(t, "echo:ls", string(msg))
	assert.Equal(t, "/terminal/ws/session1", backend.lastPath.Load())
}

func TestHandler_WebSocketCircuitOpen(t *testing.T) {
	t.Parallel()

	backend := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {})
	orch, breakers := newTestOrchestrator(t, backend.URL)
	cb := breakers.GetOrCreate("terminal-service")
	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, circuitbreaker.StateOpen, cb.State())

	gateway := httptest.NewServer(Handler(orch))
	t.Cleanup(gateway.Close)

	wsURL := "ws" + strings.TrimPrefix(gateway.URL, "http") + "/terminal/ws/session1"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Zero(t, backend.hits.Load())
}

func TestHandler_WebSocketUnreachable(t *testing.T) {
	t.Parallel()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	orch, breakers := newTestOrchestrator(t, deadURL)
	gateway := httptest.NewServer(Handler(orch))
	t.Cleanup(gateway.Close)

	wsURL := "ws" + strings.TrimPrefix(gateway.URL, "http") + "/terminal/ws/session1"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	status, ok := breakers.Status("terminal-service")
	require.True(t, ok)
	assert.Equal(t, 1, status.FailureCount)
}

func TestWebsocketURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ws://svc:3004/terminal", websocketURL("http://svc:3004/terminal"))
	assert.Equal(t, "wss://svc/terminal", websocketURL("https://svc/terminal"))
	assert.Equal(t, "ws://svc/x", websocketURL("ws://svc/x"))
}
