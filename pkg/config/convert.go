package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/google/uuid"

	"github.com/faultd/faultd/pkg/rule"
)

// Translate converts the raw rule list into the typed, immutable rule
// model the pipeline consumes: durations parsed, methods normalized,
// header maps turned into multimaps, filter expressions compiled, and
// unnamed rules given generated IDs.
func (c *Config) Translate() ([]rule.Rule, error) {
	rules := make([]rule.Rule, 0, len(c.Rules))
	for i := range c.Rules {
		r, err := translateRule(&c.Rules[i])
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func translateRule(rc *RuleConfig) (rule.Rule, error) {
	r := rule.Rule{
		ID:     rc.ID,
		Target: rule.Target(strings.ToLower(rc.Target)),
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	sel, err := translateSelector(&rc.Selector)
	if err != nil {
		return rule.Rule{}, fmt.Errorf("selector: %w", err)
	}
	r.Selector = sel

	actions, err := translateActions(&rc.Actions)
	if err != nil {
		return rule.Rule{}, fmt.Errorf("actions: %w", err)
	}
	r.Actions = actions

	if err := r.Validate(); err != nil {
		return rule.Rule{}, err
	}
	return r, nil
}

func translateSelector(sc *SelectorConfig) (rule.Selector, error) {
	sel := rule.Selector{
		Port:            sc.Port,
		Path:            sc.Path,
		Code:            sc.Code,
		Headers:         toHeader(sc.Headers),
		ResponseHeaders: toHeader(sc.ResponseHeaders),
	}

	if sc.Method != nil {
		m := strings.ToUpper(*sc.Method)
		sel.Method = &m
	}

	if sc.Filter != "" {
		program, err := expr.Compile(sc.Filter, expr.AsBool())
		if err != nil {
			return rule.Selector{}, fmt.Errorf("filter: %v", err)
		}
		sel.Filter = program
		sel.FilterSource = sc.Filter
	}

	return sel, nil
}

func translateActions(ac *ActionsConfig) (rule.Actions, error) {
	actions := rule.Actions{Abort: ac.Abort}

	if ac.Delay != "" {
		d, err := time.ParseDuration(ac.Delay)
		if err != nil {
			return rule.Actions{}, fmt.Errorf("invalid delay %q: %v", ac.Delay, err)
		}
		actions.Delay = d
	}

	if ac.Append != nil {
		actions.Append = &rule.AppendAction{
			Queries: ac.Append.Queries,
			Headers: toMultiHeader(ac.Append.Headers),
		}
	}

	if ac.Replace != nil {
		replace := &rule.ReplaceAction{
			Path:    ac.Replace.Path,
			Code:    ac.Replace.Code,
			Headers: toMultiHeader(ac.Replace.Headers),
		}
		if ac.Replace.Method != nil {
			m := strings.ToUpper(*ac.Replace.Method)
			replace.Method = &m
		}
		if ac.Replace.Body != "" {
			replace.Body = []byte(ac.Replace.Body)
		}
		if len(ac.Replace.Queries) > 0 {
			queries := make(map[string]string, len(ac.Replace.Queries))
			for k, v := range ac.Replace.Queries {
				queries[k] = v
			}
			replace.Queries = queries
		}
		actions.Replace = replace
	}

	return actions, nil
}

func toHeader(m map[string]string) http.Header {
	if len(m) == 0 {
		return nil
	}
	h := make(http.Header, len(m))
	for name, value := range m {
		h.Add(name, value)
	}
	return h
}

func toMultiHeader(m map[string][]string) http.Header {
	if len(m) == 0 {
		return nil
	}
	h := make(http.Header, len(m))
	for name, values := range m {
		for _, v := range values {
			h.Add(name, v)
		}
	}
	return h
}
