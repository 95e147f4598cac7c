package querycache

import (
	"net/url"
	"strings"
)

// Key addresses one cache entry: resource, scope, then any params,
// e.g. Key{"customers", "detail", "C1"}. Invalidation matches by prefix, so
// Key{"customers", "list"} covers every filtered customer list.
type Key []string

// NewKey builds a key from its segments.
func NewKey(parts ...string) Key {
	return Key(parts)
}

// With returns a copy of k extended by parts.
func (k Key) With(parts ...string) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

// HasPrefix reports whether every segment of p leads k.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

// String is the stable map form of the key. Segments are path-escaped so a
// param containing "/" cannot collide with a deeper key.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, s := range k {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

// ParseKey reverses String.
func ParseKey(s string) Key {
	if s == "" {
		return Key{}
	}
	raw := strings.Split(s, "/")
	out := make(Key, len(raw))
	for i, p := range raw {
		if v, err := url.PathUnescape(p); err == nil {
			out[i] = v
		} else {
			out[i] = p
		}
	}
	return out
}
