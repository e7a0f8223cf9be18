package rule

import (
	"net/http"
	"time"

	"github.com/expr-lang/expr/vm"
)

// Target identifies which side of an HTTP exchange a rule applies to.
type Target string

const (
	// TargetRequest applies the rule to inbound requests before forwarding.
	TargetRequest Target = "request"
	// TargetResponse applies the rule to upstream responses before they
	// are returned to the client.
	TargetResponse Target = "response"
)

// Selector is a conjunctive predicate over an HTTP exchange. Every field
// is optional; an absent field matches everything in that dimension, so
// the zero Selector matches all traffic.
type Selector struct {
	// Port matches the local port the connection was intercepted on.
	Port *int

	// Path is a prefix match against the request path. The query string
	// is never part of the comparison.
	Path *string

	// Method is an exact match against the HTTP method.
	Method *string

	// Headers lists required request header values. For each (name,
	// value) pair, at least one occurrence of that header on the request
	// must equal the value. Unlisted headers are ignored. On response
	// rules this is evaluated against the originating request's headers.
	Headers http.Header

	// Code is an exact match against the response status code.
	// Response rules only.
	Code *int

	// ResponseHeaders has the same any-occurrence-equals semantics as
	// Headers, evaluated against the response's own headers. Response
	// rules only.
	ResponseHeaders http.Header

	// Filter is an optional compiled boolean expression evaluated
	// against the exchange (port, method, path, host, headers). A nil
	// Filter matches everything; an expression that fails to evaluate
	// counts as no-match.
	Filter *vm.Program

	// FilterSource is the expression Filter was compiled from, kept for
	// logging and introspection.
	FilterSource string
}

// Actions is the set of mutation directives applied when a selector
// matches. All fields are optional.
type Actions struct {
	// Abort terminates the exchange instead of forwarding it. When set,
	// no other field is consulted.
	Abort bool

	// Delay suspends the exchange for this duration after all other
	// mutations have been applied. Zero means no delay.
	Delay time.Duration

	// Append holds additive mutations.
	Append *AppendAction

	// Replace holds overriding mutations.
	Replace *ReplaceAction
}

// AppendAction adds to a request or response without removing anything
// that is already there.
type AppendAction struct {
	// Queries is a raw, pre-encoded "key=value&..." fragment concatenated
	// onto the existing query string. It is never decoded, so duplicate
	// keys accumulate. Requests only.
	Queries string

	// Headers are added as additional occurrences, never overwriting
	// existing values.
	Headers http.Header
}

// ReplaceAction overwrites parts of a request or response wholesale.
// All fields are optional and independent.
type ReplaceAction struct {
	// Path replaces the URI path. The empty string normalizes to "/".
	// The existing query string is preserved. Requests only.
	Path *string

	// Method replaces the HTTP method. Requests only.
	Method *string

	// Body replaces the message body.
	Body []byte

	// Code replaces the response status code. Responses only.
	Code *int

	// Queries replaces query values by key: a key present here replaces
	// every prior occurrence of that key. Keys not listed are kept.
	// Requests only.
	Queries map[string]string

	// Headers overwrite all prior values for each listed header name.
	Headers http.Header
}

// Rule binds a selector to an action set for one side of the exchange.
type Rule struct {
	// ID names the rule in logs and stats. Assigned at load time.
	ID string

	Target   Target
	Selector Selector
	Actions  Actions
}
