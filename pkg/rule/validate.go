package rule

import (
	"fmt"
	"strings"
)

// validMethods are the HTTP method tokens a rule may reference.
var validMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "CONNECT": true, "OPTIONS": true, "TRACE": true,
}

// Validate checks that the rule is internally consistent. Config
// translation runs this after building a rule, so the matcher and
// applicator can assume these invariants hold.
func (r *Rule) Validate() error {
	switch r.Target {
	case TargetRequest, TargetResponse:
	default:
		return fmt.Errorf("invalid target %q, must be %q or %q", r.Target, TargetRequest, TargetResponse)
	}

	if err := r.Selector.Validate(r.Target); err != nil {
		return fmt.Errorf("selector: %w", err)
	}
	if err := r.Actions.Validate(r.Target); err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	return nil
}

// Validate checks selector fields against the rule target.
func (s *Selector) Validate(target Target) error {
	if s.Port != nil && (*s.Port < 1 || *s.Port > 65535) {
		return fmt.Errorf("invalid port %d, must be 1-65535", *s.Port)
	}
	if s.Path != nil && !strings.HasPrefix(*s.Path, "/") {
		return fmt.Errorf("path %q must start with /", *s.Path)
	}
	if s.Method != nil && !validMethods[*s.Method] {
		return fmt.Errorf("invalid method %q", *s.Method)
	}
	if s.Code != nil {
		if target != TargetResponse {
			return fmt.Errorf("code selector is only valid on response rules")
		}
		if *s.Code < 100 || *s.Code > 599 {
			return fmt.Errorf("invalid status code %d, must be 100-599", *s.Code)
		}
	}
	if len(s.ResponseHeaders) > 0 && target != TargetResponse {
		return fmt.Errorf("responseHeaders selector is only valid on response rules")
	}
	return nil
}

// Validate checks action fields against the rule target.
func (a *Actions) Validate(target Target) error {
	if a.Delay < 0 {
		return fmt.Errorf("invalid delay %v, must not be negative", a.Delay)
	}
	if a.Append != nil {
		if a.Append.Queries != "" && target != TargetRequest {
			return fmt.Errorf("append.queries is only valid on request rules")
		}
	}
	if a.Replace != nil {
		if err := a.Replace.validate(target); err != nil {
			return fmt.Errorf("replace: %w", err)
		}
	}
	return nil
}

func (r *ReplaceAction) validate(target Target) error {
	if r.Path != nil {
		if target != TargetRequest {
			return fmt.Errorf("path is only valid on request rules")
		}
		if *r.Path != "" && !strings.HasPrefix(*r.Path, "/") {
			return fmt.Errorf("path %q must start with /", *r.Path)
		}
	}
	if r.Method != nil {
		if target != TargetRequest {
			return fmt.Errorf("method is only valid on request rules")
		}
		if !validMethods[*r.Method] {
			return fmt.Errorf("invalid method %q", *r.Method)
		}
	}
	if len(r.Queries) > 0 && target != TargetRequest {
		return fmt.Errorf("queries is only valid on request rules")
	}
	if r.Code != nil {
		if target != TargetResponse {
			return fmt.Errorf("code is only valid on response rules")
		}
		if *r.Code < 100 || *r.Code > 599 {
			return fmt.Errorf("invalid status code %d, must be 100-599", *r.Code)
		}
	}
	return nil
}
