package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathMatcher_Type(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern  string
		wantType string
	}{
		{"/api/v1/user", "exact"},
		{"/api/v1/user/:id", "parameter"},
		{"/terminal/*", "wildcard"},
		{"/api/:version/user/*", "wildcard"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			t.Parallel()

			m, err := NewPathMatcher(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, m.Type())
			assert.Equal(t, tt.pattern, m.Pattern())
		})
	}
}

func TestNewPathMatcher_Invalid(t *testing.T) {
	t.Parallel()

	tests := []string{
		"/api/:1id",
		"/api/:",
		"/api/*/more*",
		"/api/:na-me",
	}

	for _, pattern := range tests {
		t.Run(pattern, func(t *testing.T) {
			t.Parallel()

			_, err := NewPathMatcher(pattern)
			assert.Error(t, err)
		})
	}
}

func TestParameterMatcher_Match(t *testing.T) {
	t.Parallel()

	m, err := NewParameterMatcher("/api/v1/user/:id")
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		wantMatch  bool
		wantParams map[string]string
	}{
		{"numeric id", "/api/v1/user/42", true, map[string]string{"id": "42"}},
		{"string id", "/api/v1/user/abc", true, map[string]string{"id": "abc"}},
		{"nested path", "/api/v1/user/42/extra", false, nil},
		{"empty segment", "/api/v1/user/", false, nil},
		{"prefix only", "/api/v1/user", false, nil},
		{"other route", "/api/v1/users/42", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			matched, params := m.Match(tt.path)
			assert.Equal(t, tt.wantMatch, matched)
			if tt.wantMatch {
				assert.Equal(t, tt.wantParams, params)
			}
		})
	}
}

func TestParameterMatcher_LiteralsAreQuoted(t *testing.T) {
	t.Parallel()

	m, err := NewParameterMatcher("/api/v1.0/item/:id")
	require.NoError(t, err)

	matched, _ := m.Match("/api/v1x0/item/1")
	assert.False(t, matched)

	matched, params := m.Match("/api/v1.0/item/1")
	assert.True(t, matched)
	assert.Equal(t, "1", params["id"])
}

func TestWildcardMatcher_Match(t *testing.T) {
	t.Parallel()

	m, err := NewWildcardMatcher("/terminal/*")
	require.NoError(t, err)

	tests := []struct {
		name      string
		path      string
		wantMatch bool
		wantRest  string
	}{
		{"single segment", "/terminal/abc", true, "abc"},
		{"nested segments", "/terminal/abc/def/ghi", true, "abc/def/ghi"},
		{"empty remainder", "/terminal/", true, ""},
		{"no trailing slash", "/terminal", false, ""},
		{"other prefix", "/terminals/abc", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			matched, params := m.Match(tt.path)
			assert.Equal(t, tt.wantMatch, matched)
			if tt.wantMatch {
				assert.Equal(t, tt.wantRest, params[WildcardParam])
			}
		})
	}
}

func TestWildcardMatcher_WithParameter(t *testing.T) {
	t.Parallel()

	m, err := NewWildcardMatcher("/files/:bucket/*")
	require.NoError(t, err)

	matched, params := m.Match("/files/logs/2024/01/app.log")
	require.True(t, matched)
	assert.Equal(t, "logs", params["bucket"])
	assert.Equal(t, "2024/01/app.log", params[WildcardParam])
}

func TestIsDynamic(t *testing.T) {
	t.Parallel()

	assert.False(t, IsDynamic("/api/v1/user"))
	assert.True(t, IsDynamic("/api/v1/user/:id"))
	assert.True(t, IsDynamic("/terminal/*"))
}
