package config

// Config is the root of a faultd configuration document.
type Config struct {
	// Version of the config schema. Currently "1".
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// ProxyPorts are the local ports traffic is intercepted on. One
	// forwarding server is started per port.
	ProxyPorts []int `json:"proxyPorts,omitempty" yaml:"proxyPorts,omitempty"`

	// Logging configures log output.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`

	// Rules are evaluated in declaration order; the first match wins.
	Rules []RuleConfig `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// RuleConfig is the raw form of a single rule.
type RuleConfig struct {
	// ID names the rule in logs and stats. Auto-assigned when empty.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Target is "request" or "response".
	Target string `json:"target" yaml:"target"`

	Selector SelectorConfig `json:"selector,omitempty" yaml:"selector,omitempty"`
	Actions  ActionsConfig  `json:"actions" yaml:"actions"`
}

// SelectorConfig is the raw form of a selector. Absent fields match
// everything in that dimension.
type SelectorConfig struct {
	Port            *int              `json:"port,omitempty" yaml:"port,omitempty"`
	Path            *string           `json:"path,omitempty" yaml:"path,omitempty"`
	Method          *string           `json:"method,omitempty" yaml:"method,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Code            *int              `json:"code,omitempty" yaml:"code,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty" yaml:"responseHeaders,omitempty"`

	// Filter is an optional expr-lang boolean expression over the
	// exchange (port, method, path, query, host, headers).
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// ActionsConfig is the raw form of an action set.
type ActionsConfig struct {
	Abort   bool           `json:"abort,omitempty" yaml:"abort,omitempty"`
	Delay   string         `json:"delay,omitempty" yaml:"delay,omitempty"`
	Append  *AppendConfig  `json:"append,omitempty" yaml:"append,omitempty"`
	Replace *ReplaceConfig `json:"replace,omitempty" yaml:"replace,omitempty"`
}

// AppendConfig is the raw form of additive mutations.
type AppendConfig struct {
	Queries string              `json:"queries,omitempty" yaml:"queries,omitempty"`
	Headers map[string][]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ReplaceConfig is the raw form of overriding mutations.
type ReplaceConfig struct {
	Path    *string             `json:"path,omitempty" yaml:"path,omitempty"`
	Method  *string             `json:"method,omitempty" yaml:"method,omitempty"`
	Body    string              `json:"body,omitempty" yaml:"body,omitempty"`
	Code    *int                `json:"code,omitempty" yaml:"code,omitempty"`
	Queries map[string]string   `json:"queries,omitempty" yaml:"queries,omitempty"`
	Headers map[string][]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}
