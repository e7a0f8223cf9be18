package matching

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/faultd/faultd/pkg/rule"
)

// RequestContext is an immutable snapshot of the inbound request, taken
// before any request-side action ran. Response-side selectors evaluate
// their port, path, method, and request-header dimensions against this
// snapshot rather than against the possibly-mutated live request.
type RequestContext struct {
	Port   int
	URL    *url.URL
	Method string
	Header http.Header
}

// Capture snapshots the parts of a request that response matching needs.
// The URL and headers are copied so later mutation of the request cannot
// leak into response-side evaluation.
func Capture(port int, r *http.Request) *RequestContext {
	u := *r.URL
	return &RequestContext{
		Port:   port,
		URL:    &u,
		Method: r.Method,
		Header: r.Header.Clone(),
	}
}

// Request reports whether the selector matches a request intercepted on
// the given local port. Absent selector fields are vacuously true.
func Request(port int, r *http.Request, s *rule.Selector) bool {
	if s.Port != nil && port != *s.Port {
		return false
	}
	if s.Path != nil && !strings.HasPrefix(r.URL.Path, *s.Path) {
		return false
	}
	if s.Method != nil && r.Method != *s.Method {
		return false
	}
	if !headersMatch(s.Headers, r.Header) {
		return false
	}
	return filterMatch(s.Filter, port, r.Method, r.URL, r.Header)
}

// Response reports whether the selector matches a response, given the
// captured context of the request that produced it.
func Response(rc *RequestContext, resp *http.Response, s *rule.Selector) bool {
	if s.Port != nil && rc.Port != *s.Port {
		return false
	}
	if s.Path != nil && !strings.HasPrefix(rc.URL.Path, *s.Path) {
		return false
	}
	if s.Method != nil && rc.Method != *s.Method {
		return false
	}
	if s.Code != nil && resp.StatusCode != *s.Code {
		return false
	}
	if !headersMatch(s.Headers, rc.Header) {
		return false
	}
	if !headersMatch(s.ResponseHeaders, resp.Header) {
		return false
	}
	return filterMatch(s.Filter, rc.Port, rc.Method, rc.URL, rc.Header)
}

// headersMatch checks every (name, value) pair the selector requires.
// A pair matches when any occurrence of that header carries exactly the
// expected value; extra occurrences and unlisted headers are ignored.
func headersMatch(want, have http.Header) bool {
	for name, values := range want {
		for _, expected := range values {
			if !anyValueEquals(have.Values(name), expected) {
				return false
			}
		}
	}
	return true
}

func anyValueEquals(values []string, expected string) bool {
	for _, v := range values {
		if v == expected {
			return true
		}
	}
	return false
}

// filterMatch evaluates an optional compiled filter expression. The
// matcher has no failure mode, so an evaluation error or a non-boolean
// result counts as no-match rather than propagating.
func filterMatch(program *vm.Program, port int, method string, u *url.URL, header http.Header) bool {
	if program == nil {
		return true
	}

	out, err := expr.Run(program, FilterEnv(port, method, u, header))
	if err != nil {
		return false
	}
	matched, ok := out.(bool)
	return ok && matched
}

// FilterEnv builds the environment a filter expression is evaluated
// against. Header names are exposed in canonical form with their first
// value, which covers the common single-valued case expressions care
// about.
func FilterEnv(port int, method string, u *url.URL, header http.Header) map[string]any {
	headers := make(map[string]string, len(header))
	for name := range header {
		headers[name] = header.Get(name)
	}
	return map[string]any{
		"port":    port,
		"method":  method,
		"path":    u.Path,
		"query":   u.RawQuery,
		"host":    u.Host,
		"headers": headers,
	}
}
