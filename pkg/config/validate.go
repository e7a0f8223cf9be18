package config

import (
	"fmt"
	"strings"
)

// ValidationError is a single configuration problem, located by its
// config path (e.g. "rules[2].actions.delay").
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationResult accumulates every problem found in a config document
// so users see all of them at once instead of fixing one per run.
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a combined error message.
func (r *ValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(path, message string) {
	r.Errors = append(r.Errors, ValidationError{Path: path, Message: message})
}

// Validate semantically checks the whole document and returns every
// problem found. Shape errors (wrong types, unknown fields) are caught
// earlier by the JSON Schema; this pass checks the values.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	if c.Version != "" && c.Version != "1" {
		result.AddError("version", fmt.Sprintf("unsupported version %q, expected \"1\"", c.Version))
	}

	seenPorts := make(map[int]bool)
	for i, port := range c.ProxyPorts {
		path := fmt.Sprintf("proxyPorts[%d]", i)
		if port < 1 || port > 65535 {
			result.AddError(path, fmt.Sprintf("invalid port %d, must be 1-65535", port))
		} else if seenPorts[port] {
			result.AddError(path, fmt.Sprintf("duplicate port %d", port))
		}
		seenPorts[port] = true
	}

	seenIDs := make(map[string]bool)
	for i := range c.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		rc := &c.Rules[i]

		if rc.ID != "" {
			if seenIDs[rc.ID] {
				result.AddError(path+".id", fmt.Sprintf("duplicate rule id %q", rc.ID))
			}
			seenIDs[rc.ID] = true
		}

		if _, err := translateRule(rc); err != nil {
			result.AddError(path, err.Error())
		}
	}

	return result
}
