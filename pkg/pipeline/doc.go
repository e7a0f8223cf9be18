// Package pipeline drives rule evaluation for in-flight exchanges. It
// holds the rule set as an immutable snapshot shared read-only by every
// concurrent exchange, evaluates rules in declaration order with
// first-match-wins, and applies the matched rule's actions.
//
// Hot reload swaps in a whole new snapshot atomically; a rule set is
// never mutated while exchanges are in flight.
package pipeline
