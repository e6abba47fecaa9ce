package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultMaxBodyBytes caps the inbound request body buffered for forwarding.
const DefaultMaxBodyBytes int64 = 10 << 20

// ProxyRequest is one inbound call to be forwarded.
// Path is the decoded path used for route matching. RawPath is the path
// as the caller escaped it; when empty it is derived from Path.
type ProxyRequest struct {
	Method  string
	Path    string
	RawPath string
	Header  http.Header
	Body    []byte
	Query   url.Values
}

// ProxyResponse is a completed upstream call. Header holds only the
// allow-listed response headers.
type ProxyResponse struct {
	StatusCode int         `json:"statusCode"`
	Header     http.Header `json:"headers"`
	Body       []byte      `json:"body"`
}

// NewProxyRequest buffers r into a ProxyRequest. Bodies larger than
// maxBody bytes fail with ErrRequestTooLarge.
func NewProxyRequest(r *http.Request, maxBody int64) (*ProxyRequest, error) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		if int64(len(data)) > maxBody {
			return nil, ErrRequestTooLarge
		}
		body = data
	}

	return &ProxyRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		RawPath: r.URL.EscapedPath(),
		Header:  r.Header.Clone(),
		Body:    body,
		Query:   r.URL.Query(),
	}, nil
}

// EscapedPath returns the path in its escaped form, safe to place in an
// upstream URL.
func (req *ProxyRequest) EscapedPath() string {
	if req.RawPath != "" {
		return req.RawPath
	}
	return (&url.URL{Path: req.Path}).EscapedPath()
}

// Send writes the response to w.
func (resp *ProxyResponse) Send(w http.ResponseWriter) error {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) == 0 {
		return nil
	}
	_, err := w.Write(resp.Body)
	return err
}

func encodeResponse(resp *ProxyResponse) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(data []byte) (*ProxyResponse, error) {
	var resp ProxyResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.StatusCode == 0 {
		return nil, errors.New("cached response has no status")
	}
	return &resp, nil
}
