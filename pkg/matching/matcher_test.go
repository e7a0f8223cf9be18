package matching

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/expr-lang/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultd/faultd/pkg/rule"
)

func intptr(i int) *int       { return &i }
func strptr(s string) *string { return &s }

func newRequest(t *testing.T, method, target string, headers map[string]string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	for name, value := range headers {
		r.Header.Set(name, value)
	}
	return r
}

func TestRequestMatching(t *testing.T) {
	tests := []struct {
		name     string
		port     int
		method   string
		target   string
		headers  map[string]string
		selector rule.Selector
		want     bool
	}{
		{
			name:     "empty selector matches everything",
			port:     80,
			method:   http.MethodGet,
			target:   "/anything",
			selector: rule.Selector{},
			want:     true,
		},
		{
			name:     "port match",
			port:     8080,
			method:   http.MethodGet,
			target:   "/",
			selector: rule.Selector{Port: intptr(8080)},
			want:     true,
		},
		{
			name:     "port mismatch",
			port:     8080,
			method:   http.MethodGet,
			target:   "/",
			selector: rule.Selector{Port: intptr(9090)},
			want:     false,
		},
		{
			name:     "path is a prefix match",
			port:     80,
			method:   http.MethodGet,
			target:   "/api/users/42",
			selector: rule.Selector{Path: strptr("/api")},
			want:     true,
		},
		{
			name:     "path prefix does not match elsewhere",
			port:     80,
			method:   http.MethodGet,
			target:   "/static/api",
			selector: rule.Selector{Path: strptr("/api")},
			want:     false,
		},
		{
			name:     "query string is not part of the path comparison",
			port:     80,
			method:   http.MethodGet,
			target:   "/users?path=/api",
			selector: rule.Selector{Path: strptr("/api")},
			want:     false,
		},
		{
			name:     "method exact match",
			port:     80,
			method:   http.MethodPost,
			target:   "/",
			selector: rule.Selector{Method: strptr(http.MethodPost)},
			want:     true,
		},
		{
			name:     "method mismatch",
			port:     80,
			method:   http.MethodGet,
			target:   "/",
			selector: rule.Selector{Method: strptr(http.MethodPost)},
			want:     false,
		},
		{
			name:    "header value match",
			port:    80,
			method:  http.MethodGet,
			target:  "/",
			headers: map[string]string{"X-Tenant": "acme"},
			selector: rule.Selector{
				Headers: http.Header{"X-Tenant": []string{"acme"}},
			},
			want: true,
		},
		{
			name:    "header value mismatch",
			port:    80,
			method:  http.MethodGet,
			target:  "/",
			headers: map[string]string{"X-Tenant": "acme"},
			selector: rule.Selector{
				Headers: http.Header{"X-Tenant": []string{"globex"}},
			},
			want: false,
		},
		{
			name:   "header absent",
			port:   80,
			method: http.MethodGet,
			target: "/",
			selector: rule.Selector{
				Headers: http.Header{"X-Tenant": []string{"acme"}},
			},
			want: false,
		},
		{
			name:    "path, method, and header together",
			port:    80,
			method:  http.MethodGet,
			target:  "/rs-tproxy?x=1",
			headers: map[string]string{"aname": "avalue"},
			selector: rule.Selector{
				Path:    strptr("/rs-tproxy"),
				Method:  strptr(http.MethodGet),
				Headers: http.Header{"Aname": []string{"avalue"}},
			},
			want: true,
		},
		{
			name:   "all conditions must hold",
			port:   8080,
			method: http.MethodGet,
			target: "/api/users",
			selector: rule.Selector{
				Port:   intptr(8080),
				Path:   strptr("/api"),
				Method: strptr(http.MethodPost),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRequest(t, tt.method, tt.target, tt.headers)
			got := Request(tt.port, r, &tt.selector)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeaderMatchIsExistentialOverOccurrences(t *testing.T) {
	r := newRequest(t, http.MethodGet, "/", nil)
	r.Header.Add("X-Flag", "a")
	r.Header.Add("X-Flag", "b")

	s := rule.Selector{Headers: http.Header{"X-Flag": []string{"b"}}}
	assert.True(t, Request(80, r, &s))

	s = rule.Selector{Headers: http.Header{"X-Flag": []string{"c"}}}
	assert.False(t, Request(80, r, &s))
}

func TestResponseMatching(t *testing.T) {
	req := newRequest(t, http.MethodGet, "/api/orders", map[string]string{"X-Tenant": "acme"})
	rc := Capture(8080, req)

	resp := &http.Response{
		StatusCode: http.StatusServiceUnavailable,
		Header:     http.Header{"X-Backend": []string{"orders-2"}},
	}

	tests := []struct {
		name     string
		selector rule.Selector
		want     bool
	}{
		{
			name:     "empty selector matches",
			selector: rule.Selector{},
			want:     true,
		},
		{
			name:     "status code match",
			selector: rule.Selector{Code: intptr(503)},
			want:     true,
		},
		{
			name:     "status code mismatch",
			selector: rule.Selector{Code: intptr(200)},
			want:     false,
		},
		{
			name: "response header match",
			selector: rule.Selector{
				ResponseHeaders: http.Header{"X-Backend": []string{"orders-2"}},
			},
			want: true,
		},
		{
			name: "request dimensions evaluate against the captured request",
			selector: rule.Selector{
				Port:    intptr(8080),
				Path:    strptr("/api"),
				Method:  strptr(http.MethodGet),
				Headers: http.Header{"X-Tenant": []string{"acme"}},
			},
			want: true,
		},
		{
			name:     "captured port mismatch",
			selector: rule.Selector{Port: intptr(9090)},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Response(rc, resp, &tt.selector)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCaptureIsImmuneToRequestMutation(t *testing.T) {
	req := newRequest(t, http.MethodGet, "/original?a=1", map[string]string{"X-Tenant": "acme"})
	rc := Capture(80, req)

	// Mutate the live request the way request actions would.
	req.URL.Path = "/rewritten"
	req.URL.RawQuery = "b=2"
	req.Method = http.MethodPost
	req.Header.Set("X-Tenant", "globex")

	assert.Equal(t, "/original", rc.URL.Path)
	assert.Equal(t, "a=1", rc.URL.RawQuery)
	assert.Equal(t, http.MethodGet, rc.Method)
	assert.Equal(t, "acme", rc.Header.Get("X-Tenant"))
}

func TestFilterExpression(t *testing.T) {
	compile := func(t *testing.T, src string) rule.Selector {
		t.Helper()
		program, err := expr.Compile(src, expr.AsBool())
		require.NoError(t, err)
		return rule.Selector{Filter: program, FilterSource: src}
	}

	r := newRequest(t, http.MethodGet, "/api/users?limit=10", map[string]string{"X-Tenant": "acme"})

	t.Run("true expression matches", func(t *testing.T) {
		s := compile(t, `method == "GET" && path startsWith "/api"`)
		assert.True(t, Request(80, r, &s))
	})

	t.Run("false expression does not match", func(t *testing.T) {
		s := compile(t, `port == 9090`)
		assert.False(t, Request(80, r, &s))
	})

	t.Run("headers are visible in canonical form", func(t *testing.T) {
		s := compile(t, `headers["X-Tenant"] == "acme"`)
		assert.True(t, Request(80, r, &s))
	})

	t.Run("evaluation failure counts as no-match", func(t *testing.T) {
		program, err := expr.Compile(`int(headers["Missing"]) > 0`, expr.AsBool())
		require.NoError(t, err)
		s := rule.Selector{Filter: program}
		assert.False(t, Request(80, r, &s))
	})
}
