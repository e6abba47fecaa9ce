package middleware

import (
	"encoding/json"
	"strings"
)

// RedactedValue replaces sensitive values in logged bodies.
const RedactedValue = "[REDACTED]"

// sensitiveFields are matched as substrings of lower-cased field names.
var sensitiveFields = []string{"password", "token", "secret", "key", "authorization"}

// IsSensitiveField reports whether a field name may carry a credential.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// RedactJSON returns body with every sensitive field, at any depth,
// replaced by RedactedValue. ok is false when body is not valid JSON.
func RedactJSON(body []byte) (redacted []byte, ok bool) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	out, err := json.Marshal(redactValue(v))
	if err != nil {
		return nil, false
	}
	return out, true
}

func redactValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if IsSensitiveField(k) {
				t[k] = RedactedValue
				continue
			}
			t[k] = redactValue(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = redactValue(val)
		}
		return t
	default:
		return v
	}
}
