// Package rewrite implements the URI mutation algorithms used by replace
// and append actions: appending a raw query fragment, replacing the
// path, and replacing query values by key.
//
// Every function is a pure transformation from an input URL to a new
// URL value; the input is never modified, and on error nothing is
// returned, so a failed rewrite can never leave a URI partially
// mutated.
package rewrite
