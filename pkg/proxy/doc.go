// Package proxy runs the transparent HTTP interception servers. One
// server listens per configured port; every exchange flows through the
// rule pipeline on the way in and on the way out.
package proxy
