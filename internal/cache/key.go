package cache

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// ProxyKeyPrefix is the prefix of every proxy response key.
const ProxyKeyPrefix = "proxy:"

// ProxyKey returns the cache key of a proxied GET request. Queries are
// appended as JSON with sorted keys, so parameter order does not change the
// key. A parameter given once is encoded as a string, a repeated one as an
// array.
func ProxyKey(path string, query url.Values) string {
	key := ProxyKeyPrefix + path
	if len(query) == 0 {
		return key
	}

	canonical := make(map[string]interface{}, len(query))
	for name, values := range query {
		switch len(values) {
		case 0:
			canonical[name] = ""
		case 1:
			canonical[name] = values[0]
		default:
			canonical[name] = values
		}
	}

	// encoding/json writes map keys in sorted order.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(canonical); err != nil {
		return key
	}

	return key + ":" + strings.TrimSuffix(buf.String(), "\n")
}
