// Package action applies a rule's action set to a request or response
// in a fixed order: abort short-circuit, then append, then replace,
// then delay.
//
// The delay step is the only suspension point and honors context
// cancellation; all mutation completes before the delay begins, so a
// cancelled exchange never observes a partially-applied action set.
package action
