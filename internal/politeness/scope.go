package politeness

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/webkb/internal/urlnorm"
)

// IgnoredExtensions are path suffixes that never hold documents.
var IgnoredExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico",
	".css", ".js",
	".pdf",
	".zip", ".tar", ".gz", ".rar",
	".mp4", ".mp3", ".wav",
}

// Scope decides which URLs belong to a crawl: host scoping, path prefixes
// and the extension denylist.
type Scope struct {
	startHost         string
	rootDomain        string
	allowedHosts      []string
	pathPrefixes      []string
	includeSubdomains bool
}

// NewScope builds the scope of a crawl seeded at startURL.
// Hosts are compared case-insensitively; empty entries are ignored.
func NewScope(startURL string, allowedHosts, pathPrefixes []string, includeSubdomains bool) *Scope {
	startHost := urlnorm.Hostname(startURL)
	s := &Scope{
		startHost:         startHost,
		rootDomain:        RootDomain(startHost),
		includeSubdomains: includeSubdomains,
	}
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			s.allowedHosts = append(s.allowedHosts, h)
		}
	}
	for _, p := range pathPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			s.pathPrefixes = append(s.pathPrefixes, p)
		}
	}
	return s
}

// StartHost returns the host of the seed URL.
func (s *Scope) StartHost() string {
	return s.startHost
}

// RootDomainName returns the registrable domain of the seed host.
func (s *Scope) RootDomainName() string {
	return s.rootDomain
}

// IsInternal reports whether rawURL is inside the crawl's host scope.
//
// The start host always matches. With an allow-list, only listed hosts and
// their subdomains match. Otherwise the root domain matches, and its
// subdomains match when subdomain inclusion is enabled. The scheme must be
// http, https or absent.
func (s *Scope) IsInternal(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "", "http", "https":
	default:
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || host == s.startHost {
		return true
	}

	if len(s.allowedHosts) > 0 {
		for _, allowed := range s.allowedHosts {
			if host == allowed || strings.HasSuffix(host, "."+allowed) {
				return true
			}
		}
		return false
	}

	if host == s.rootDomain {
		return true
	}
	return s.includeSubdomains && strings.HasSuffix(host, "."+s.rootDomain)
}

// MatchesPathPrefix reports whether the path and query of rawURL start
// with one of the configured prefixes. With no prefixes, every path matches.
func (s *Scope) MatchesPathPrefix(rawURL string) bool {
	if len(s.pathPrefixes) == 0 {
		return true
	}
	target := urlnorm.PathWithQuery(rawURL)
	for _, prefix := range s.pathPrefixes {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

// Allows combines the extension, host and path checks.
func (s *Scope) Allows(rawURL string) bool {
	return !HasIgnoredExtension(rawURL) && s.IsInternal(rawURL) && s.MatchesPathPrefix(rawURL)
}

// HasIgnoredExtension reports whether the URL path ends in a non-document extension.
func HasIgnoredExtension(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, ext := range IgnoredExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// RootDomain returns the registrable domain (eTLD+1) of host. Hosts the
// public suffix list cannot split, such as IP literals or single labels,
// fall back to their last two labels.
func RootDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return ""
	}
	if root, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return root
	}
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return host
}
