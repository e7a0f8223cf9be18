package rewrite

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidURI is returned when a rewrite cannot re-encode its result
// as a valid URI, or when an existing query string cannot be decoded.
// It signals a configuration or input problem, never a transient one.
var ErrInvalidURI = errors.New("invalid URI")

// AppendQueries concatenates a raw, pre-encoded query fragment onto the
// URL's query string. The fragment is joined with "&" if a query already
// exists and "?" otherwise; a URL with no path gets the default path "/".
// The fragment is treated as opaque — it is never decoded, so duplicate
// keys accumulate. An empty fragment leaves the URL unchanged.
func AppendQueries(u *url.URL, raw string) (*url.URL, error) {
	if raw == "" {
		out := *u
		return &out, nil
	}

	query := u.RawQuery
	if query == "" {
		query = raw
	} else {
		query = query + "&" + raw
	}

	return rebuild(u, pathOrRoot(u), query)
}

// ReplacePath substitutes the URL's path, keeping the existing query
// string. A nil path leaves the URL unchanged; the empty string is
// normalized to "/". A URL with no path-and-query component at all is
// returned unchanged, since there is nothing to anchor the replacement
// to.
func ReplacePath(u *url.URL, path *string) (*url.URL, error) {
	if path == nil || (u.EscapedPath() == "" && u.RawQuery == "") {
		out := *u
		return &out, nil
	}

	p := *path
	if p == "" {
		p = "/"
	}

	return rebuild(u, p, u.RawQuery)
}

// ReplaceQueries merges override values into the URL's query string by
// key. The existing query is decoded into a key-value map first — the
// last occurrence of a duplicate key wins — and each override key then
// replaces all prior values for that key. Keys not overridden keep
// their decoded value. A nil override map leaves the URL unchanged.
//
// The merged query is re-encoded with existing keys in their original
// first-seen order followed by new keys in sorted order; callers must
// not rely on the original ordering of overridden keys, only on the
// resulting value set.
func ReplaceQueries(u *url.URL, overrides map[string]string) (*url.URL, error) {
	if overrides == nil {
		out := *u
		return &out, nil
	}

	pairs, err := decodeQuery(u.RawQuery)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(pairs))
	for i, p := range pairs {
		seen[p.key] = i
	}

	var added []string
	for key := range overrides {
		if i, ok := seen[key]; ok {
			pairs[i].value = overrides[key]
		} else {
			added = append(added, key)
		}
	}
	sort.Strings(added)
	for _, key := range added {
		pairs = append(pairs, queryPair{key: key, value: overrides[key]})
	}

	return rebuild(u, pathOrRoot(u), encodeQuery(pairs))
}

type queryPair struct {
	key   string
	value string
}

// decodeQuery splits a raw query string into ordered pairs, collapsing
// duplicate keys so the last occurrence wins while keeping the key's
// first-seen position.
func decodeQuery(raw string) ([]queryPair, error) {
	if raw == "" {
		return nil, nil
	}

	var pairs []queryPair
	index := make(map[string]int)

	for _, segment := range strings.Split(raw, "&") {
		if segment == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(segment, "=")

		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed query key %q: %v", ErrInvalidURI, rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed query value %q: %v", ErrInvalidURI, rawValue, err)
		}

		if i, ok := index[key]; ok {
			pairs[i].value = value
			continue
		}
		index[key] = len(pairs)
		pairs = append(pairs, queryPair{key: key, value: value})
	}

	return pairs, nil
}

func encodeQuery(pairs []queryPair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// pathOrRoot returns the URL's escaped path, defaulting to "/" when the
// URL has no path component.
func pathOrRoot(u *url.URL) string {
	if p := u.EscapedPath(); p != "" {
		return p
	}
	return "/"
}

// rebuild assembles path and query into a new URL based on u, verifying
// that the combination still parses as a valid request target. The input
// URL is left untouched, so a failed rebuild cannot partially mutate it.
func rebuild(u *url.URL, path, rawQuery string) (*url.URL, error) {
	candidate := path
	if rawQuery != "" {
		candidate = path + "?" + rawQuery
	}

	parsed, err := url.ParseRequestURI(candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURI, candidate, err)
	}

	out := *u
	out.Path = parsed.Path
	out.RawPath = parsed.RawPath
	out.RawQuery = parsed.RawQuery
	out.ForceQuery = false
	return &out, nil
}
