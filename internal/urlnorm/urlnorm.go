// Package urlnorm maps raw URLs to the canonical form used as crawl identity.
package urlnorm

import (
	"net/url"
	"sort"
	"strings"
)

// DefaultScheme is assumed for URLs written without a scheme.
const DefaultScheme = "https"

// trackingKeys are query parameters dropped regardless of value.
var trackingKeys = map[string]bool{
	"gclid":  true,
	"fbclid": true,
	"mc_cid": true,
	"mc_eid": true,
}

// trackingPrefix marks campaign parameters such as utm_source.
const trackingPrefix = "utm_"

// Normalize resolves raw against base (which may be empty) and returns the
// canonical URL, or "" when raw cannot be parsed.
//
// The canonical form has:
//   - an https scheme when none was given
//   - no fragment
//   - no tracking parameters (utm_*, gclid, fbclid, mc_cid, mc_eid)
//   - the remaining query sorted by key, then value
//   - no trailing slash on non-root paths, and "/" for an empty path
//   - a lower-case host
func Normalize(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := resolve(raw, base)
	if err != nil {
		return ""
	}

	if u.Scheme == "" {
		u, err = url.Parse(DefaultScheme + "://" + strings.TrimPrefix(u.String(), "//"))
		if err != nil {
			return ""
		}
	}
	u.Scheme = strings.ToLower(u.Scheme)

	// Non-web schemes (mailto:, javascript:, tel:) keep their opaque form and
	// are rejected later by scoping.
	if u.Opaque != "" {
		u.Fragment = ""
		u.RawFragment = ""
		return u.String()
	}

	if isWebScheme(u.Scheme) && u.Host == "" {
		return ""
	}
	u.Host = stripDefaultPort(u.Scheme, strings.ToLower(u.Host))
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = cleanQuery(u.RawQuery)

	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if p != "/" {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	if err := setEscapedPath(u, p); err != nil {
		return ""
	}

	return u.String()
}

// resolve parses raw and, when base is set, resolves it as a reference.
func resolve(raw, base string) (*url.URL, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if base == "" {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	return b.ResolveReference(ref), nil
}

// setEscapedPath replaces the path of u, keeping percent-encoding intact.
func setEscapedPath(u *url.URL, escaped string) error {
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		return err
	}
	u.Path = unescaped
	u.RawPath = ""
	if u.EscapedPath() != escaped {
		u.RawPath = escaped
	}
	return nil
}

// cleanQuery drops tracking parameters and sorts the rest.
func cleanQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	type pair struct{ key, value string }
	pairs := make([]pair, 0)
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			k = key
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			v = value
		}
		lowered := strings.ToLower(k)
		if strings.HasPrefix(lowered, trackingPrefix) || trackingKeys[lowered] {
			continue
		}
		pairs = append(pairs, pair{key: k, value: v})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

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

// isWebScheme reports whether scheme is http or https.
func isWebScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}

// Hostname returns the lower-case hostname of rawURL, or "".
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// PathWithQuery returns the path of rawURL ("/" when empty) followed by
// "?query" when a query is present.
func PathWithQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// Origin returns scheme://host of rawURL, or "" when it has no host.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// stripDefaultPort drops :80 from http and :443 from https hosts.
func stripDefaultPort(scheme, host string) string {
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	}
	return host
}
