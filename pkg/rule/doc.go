// Package rule defines the immutable rule model for fault injection:
// a Rule pairs a Selector (which requests or responses it applies to)
// with a set of Actions (how the matched exchange is rewritten, delayed,
// or aborted).
//
// Rules are constructed once from parsed configuration and shared
// read-only across all in-flight exchanges for the lifetime of the
// process. Nothing in this package mutates a Rule after construction.
package rule
