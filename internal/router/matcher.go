package router

import (
	"fmt"
	"regexp"
	"strings"
)

// WildcardParam is the key under which a wildcard match stores the rest
// of the path.
const WildcardParam = "*"

var paramNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PathMatcher is the interface for path matching.
type PathMatcher interface {
	Match(path string) (bool, map[string]string)
	Type() string
	Pattern() string
}

// NewPathMatcher compiles a route pattern into the matcher for its kind.
func NewPathMatcher(pattern string) (PathMatcher, error) {
	switch {
	case strings.HasSuffix(pattern, "*"):
		return NewWildcardMatcher(pattern)
	case strings.Contains(pattern, ":"):
		return NewParameterMatcher(pattern)
	default:
		return NewExactMatcher(pattern), nil
	}
}

// IsDynamic reports whether a pattern contains parameter or wildcard
// segments.
func IsDynamic(pattern string) bool {
	return strings.HasSuffix(pattern, "*") || strings.Contains(pattern, "/:")
}

// ExactMatcher matches exact paths.
type ExactMatcher struct {
	path string
}

// NewExactMatcher creates a new exact path matcher.
func NewExactMatcher(path string) *ExactMatcher {
	return &ExactMatcher{path: path}
}

// Match checks if the path matches exactly.
func (m *ExactMatcher) Match(path string) (matched bool, params map[string]string) {
	return path == m.path, nil
}

// Type returns the matcher type.
func (m *ExactMatcher) Type() string {
	return "exact"
}

// Pattern returns the pattern.
func (m *ExactMatcher) Pattern() string {
	return m.path
}

// ParameterMatcher matches paths with parameters like /users/:id.
type ParameterMatcher struct {
	pattern string
	regex   *regexp.Regexp
}

// NewParameterMatcher creates a new parameter path matcher.
func NewParameterMatcher(pattern string) (*ParameterMatcher, error) {
	expr, err := compilePattern(pattern, false)
	if err != nil {
		return nil, err
	}
	return &ParameterMatcher{pattern: pattern, regex: expr}, nil
}

// Match checks if the path matches the pattern and extracts parameters.
func (m *ParameterMatcher) Match(path string) (matched bool, params map[string]string) {
	return matchRegex(m.regex, path)
}

// Type returns the matcher type.
func (m *ParameterMatcher) Type() string {
	return "parameter"
}

// Pattern returns the pattern.
func (m *ParameterMatcher) Pattern() string {
	return m.pattern
}

// WildcardMatcher matches patterns ending in "*". The wildcard matches
// any remainder, including an empty one and one containing slashes.
type WildcardMatcher struct {
	pattern string
	regex   *regexp.Regexp
}

// NewWildcardMatcher creates a new wildcard path matcher.
func NewWildcardMatcher(pattern string) (*WildcardMatcher, error) {
	expr, err := compilePattern(pattern, true)
	if err != nil {
		return nil, err
	}
	return &WildcardMatcher{pattern: pattern, regex: expr}, nil
}

// Match checks if the path matches the pattern. The remainder is returned
// under WildcardParam.
func (m *WildcardMatcher) Match(path string) (matched bool, params map[string]string) {
	return matchRegex(m.regex, path)
}

// Type returns the matcher type.
func (m *WildcardMatcher) Type() string {
	return "wildcard"
}

// Pattern returns the pattern.
func (m *WildcardMatcher) Pattern() string {
	return m.pattern
}

// wildcardGroup is the regex group name standing in for WildcardParam,
// which is not a valid group name.
const wildcardGroup = "__wildcard"

func compilePattern(pattern string, wildcard bool) (*regexp.Regexp, error) {
	body := pattern
	if wildcard {
		body = strings.TrimSuffix(pattern, "*")
		if strings.Contains(body, "*") {
			return nil, fmt.Errorf("pattern %q: wildcard is only allowed at the end", pattern)
		}
	}

	var sb strings.Builder
	sb.WriteString("^")

	parts := strings.Split(body, "/")
	for i, part := range parts {
		if i > 0 {
			sb.WriteString("/")
		}
		if strings.HasPrefix(part, ":") {
			name := part[1:]
			if !paramNamePattern.MatchString(name) || name == wildcardGroup {
				return nil, fmt.Errorf("pattern %q: invalid parameter name %q", pattern, name)
			}
			sb.WriteString("(?P<")
			sb.WriteString(name)
			sb.WriteString(">[^/]+)")
			continue
		}
		sb.WriteString(regexp.QuoteMeta(part))
	}

	if wildcard {
		sb.WriteString("(?P<" + wildcardGroup + ">.*)")
	}
	sb.WriteString("$")

	expr, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	return expr, nil
}

func matchRegex(expr *regexp.Regexp, path string) (matched bool, params map[string]string) {
	matches := expr.FindStringSubmatch(path)
	if matches == nil {
		return false, nil
	}

	params = make(map[string]string)
	for i, name := range expr.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if name == wildcardGroup {
			params[WildcardParam] = matches[i]
			continue
		}
		params[name] = matches[i]
	}

	return true, params
}
