package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultd/faultd/pkg/rule"
)

func TestTranslate(t *testing.T) {
	method := "post"
	path := "/api"
	code := 503

	cfg := &Config{
		Rules: []RuleConfig{
			{
				ID:     "named",
				Target: "REQUEST",
				Selector: SelectorConfig{
					Path:    &path,
					Method:  &method,
					Headers: map[string]string{"x-tenant": "acme"},
				},
				Actions: ActionsConfig{
					Delay: "250ms",
					Append: &AppendConfig{
						Queries: "injected=1",
						Headers: map[string][]string{"X-Fault": {"a", "b"}},
					},
				},
			},
			{
				Target: "response",
				Selector: SelectorConfig{
					Code: &code,
				},
				Actions: ActionsConfig{
					Replace: &ReplaceConfig{
						Code: &code,
						Body: "injected failure",
					},
				},
			},
		},
	}

	rules, err := cfg.Translate()
	require.NoError(t, err)
	require.Len(t, rules, 2)

	first := rules[0]
	assert.Equal(t, "named", first.ID)
	assert.Equal(t, rule.TargetRequest, first.Target)
	assert.Equal(t, "POST", *first.Selector.Method)
	assert.Equal(t, "acme", first.Selector.Headers.Get("X-Tenant"))
	assert.Equal(t, 250*time.Millisecond, first.Actions.Delay)
	require.NotNil(t, first.Actions.Append)
	assert.Equal(t, "injected=1", first.Actions.Append.Queries)
	assert.Equal(t, []string{"a", "b"}, first.Actions.Append.Headers.Values("X-Fault"))

	second := rules[1]
	assert.NotEmpty(t, second.ID, "unnamed rules get a generated id")
	assert.Equal(t, rule.TargetResponse, second.Target)
	require.NotNil(t, second.Actions.Replace)
	assert.Equal(t, []byte("injected failure"), second.Actions.Replace.Body)
}

func TestTranslateGeneratedIDsAreUnique(t *testing.T) {
	cfg := &Config{
		Rules: []RuleConfig{
			{Target: "request"},
			{Target: "request"},
		},
	}
	rules, err := cfg.Translate()
	require.NoError(t, err)
	assert.NotEqual(t, rules[0].ID, rules[1].ID)
}

func TestTranslateFilter(t *testing.T) {
	cfg := &Config{
		Rules: []RuleConfig{
			{
				Target: "request",
				Selector: SelectorConfig{
					Filter: `method == "GET" && port in 8000..9000`,
				},
			},
		},
	}
	rules, err := cfg.Translate()
	require.NoError(t, err)
	require.NotNil(t, rules[0].Selector.Filter)
	assert.Equal(t, `method == "GET" && port in 8000..9000`, rules[0].Selector.FilterSource)
}

func TestTranslateErrors(t *testing.T) {
	t.Run("bad filter expression", func(t *testing.T) {
		cfg := &Config{
			Rules: []RuleConfig{
				{Target: "request", Selector: SelectorConfig{Filter: "method =="}},
			},
		}
		_, err := cfg.Translate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rules[0]")
		assert.Contains(t, err.Error(), "filter")
	})

	t.Run("bad delay", func(t *testing.T) {
		cfg := &Config{
			Rules: []RuleConfig{
				{Target: "request", Actions: ActionsConfig{Delay: "1 parsec"}},
			},
		}
		_, err := cfg.Translate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid delay")
	})

	t.Run("invalid target", func(t *testing.T) {
		cfg := &Config{Rules: []RuleConfig{{Target: "sideways"}}}
		_, err := cfg.Translate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid target")
	})
}

func TestHeaderConversion(t *testing.T) {
	assert.Nil(t, toHeader(nil))
	assert.Nil(t, toMultiHeader(map[string][]string{}))

	h := toHeader(map[string]string{"x-a": "1"})
	assert.Equal(t, "1", h.Get("X-A"))

	mh := toMultiHeader(map[string][]string{"x-b": {"1", "2"}})
	assert.Equal(t, []string{"1", "2"}, mh[http.CanonicalHeaderKey("x-b")])
}
