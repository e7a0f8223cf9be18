// Package matching implements the selector predicates that decide
// whether a rule applies to a request or a response.
//
// All matching is pure and total: a predicate never fails and never
// mutates its inputs, and an absent selector field is vacuously true.
// Response predicates run against a RequestContext captured from the
// inbound request before any request-side mutation, so a response rule
// can target "responses to GET /foo" even after a request rule rewrote
// the request.
package matching
