// Package request builds Involves API URLs from a base address, path
// segments, and query parameters, replacing the error-prone manual
// concatenation of separators.
package request

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Builder assembles an absolute request URL.
type Builder struct {
	base     string
	segments []string
	query    url.Values
}

// New creates a Builder rooted at the given base URL.
// The base may already carry a path and query string.
func New(base string) *Builder {
	return &Builder{
		base:  strings.TrimRight(base, "/"),
		query: url.Values{},
	}
}

// Path appends path segments. Segments are escaped individually.
func (b *Builder) Path(segments ...string) *Builder {
	b.segments = append(b.segments, segments...)
	return b
}

// Query adds a query parameter.
func (b *Builder) Query(key, value string) *Builder {
	b.query.Add(key, value)
	return b
}

// String renders the URL. Query parameters are emitted in sorted key order
// so the same logical request always produces the same cache identity.
func (b *Builder) String() string {
	var sb strings.Builder
	sb.WriteString(b.base)
	for _, seg := range b.segments {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(seg))
	}
	if len(b.query) > 0 {
		sb.WriteByte(separator(sb.String()))
		sb.WriteString(encodeSorted(b.query))
	}
	return sb.String()
}

// Environment creates a Builder rooted at the v3 environment scope:
// <base>/v3/environments/<environmentID>.
func Environment(base, environmentID string) *Builder {
	return New(base).Path("v3", "environments", environmentID)
}

// WithPage appends page and size parameters to an already built URL,
// using '&' when the URL carries a query string and '?' otherwise.
func WithPage(rawURL string, page, size int) string {
	return fmt.Sprintf("%s%cpage=%d&size=%d", rawURL, separator(rawURL), page, size)
}

// Expand substitutes an identifier into a "{id}" URL template.
func Expand(template, id string) string {
	return strings.ReplaceAll(template, "{id}", url.PathEscape(id))
}

func separator(rawURL string) byte {
	if strings.Contains(rawURL, "?") {
		return '&'
	}
	return '?'
}

func encodeSorted(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}
