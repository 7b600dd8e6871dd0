package config

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Limits applied to options coming from the HTTP surface.
const (
	// FormCrawlTimeout is the crawl budget of HTTP-triggered crawls.
	FormCrawlTimeout = 90 * time.Second

	// FormMaxConcurrentRequests is the batch size of HTTP-triggered crawls.
	FormMaxConcurrentRequests = 8

	// FormDefaultMaxPages applies when the form omits max_pages.
	FormDefaultMaxPages = 10

	// MaxBulkURLs is the largest accepted bulk request.
	MaxBulkURLs = 200
)

var listSeparator = regexp.MustCompile(`[,\s]+`)

// ParseList splits a comma or whitespace separated field.
func ParseList(raw string) []string {
	out := make([]string, 0)
	for _, part := range listSeparator.Split(raw, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseBool reads 1/true/yes/on and 0/false/no/off. Anything else,
// including an empty value, yields def.
func ParseBool(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// ClampMaxDepth parses max_depth and clamps it to 1..10. Missing or
// unparsable values give DefaultMaxDepth.
func ClampMaxDepth(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultMaxDepth
	}
	return max(1, min(v, 10))
}

// ClampMinTextChars parses min_text_chars and clamps it to 200..5000.
// Missing or unparsable values give DefaultMinTextChars.
func ClampMinTextChars(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultMinTextChars
	}
	return max(200, min(v, 5000))
}

// ValidateMaxPages parses max_pages. Missing values give FormDefaultMaxPages,
// unparsable ones 1, and values over MaxPagesLimit are rejected.
func ValidateMaxPages(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FormDefaultMaxPages, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 1, nil
	}
	if v > MaxPagesLimit {
		return 0, ErrMaxPagesTooLarge
	}
	return max(1, v), nil
}

// EnsurePublicURL adds a missing https scheme, rejects non-http(s) schemes
// and refuses localhost and literal private, loopback or link-local IPs.
// Host names are not resolved here; the crawler's guard does that.
func EnsurePublicURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoStartURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme == "" {
		if u, err = url.Parse("https://" + strings.TrimPrefix(raw, "//")); err != nil {
			return "", fmt.Errorf("invalid url %q: %w", raw, err)
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidScheme
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return "", ErrBlockedTarget
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		ip := net.IP(addr.Unmap().AsSlice())
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return "", ErrBlockedTarget
		}
	}
	return u.String(), nil
}

// FormConfig builds the configuration of an HTTP-triggered crawl from form
// fields layered over base.
func FormConfig(form url.Values, base *Config) (*Config, error) {
	cfg := base.Clone()

	startURL, err := EnsurePublicURL(form.Get("url"))
	if err != nil {
		return nil, err
	}
	cfg.StartURL = startURL

	if cfg.MaxPages, err = ValidateMaxPages(form.Get("max_pages")); err != nil {
		return nil, err
	}
	cfg.AllowedHosts = ParseList(form.Get("allowed_hosts"))
	cfg.PathPrefixes = ParseList(form.Get("path_prefixes"))
	cfg.IncludeSubdomains = ParseBool(form.Get("include_subdomains"), false)
	cfg.RespectRobots = ParseBool(form.Get("respect_robots"), true)
	cfg.UseSitemap = ParseBool(form.Get("use_sitemap"), true)
	cfg.MaxDepth = ClampMaxDepth(form.Get("max_depth"))
	cfg.StripLinks = ParseBool(form.Get("strip_links"), true)
	cfg.StripImages = ParseBool(form.Get("strip_images"), true)
	cfg.ReadabilityFallback = ParseBool(form.Get("readability_fallback"), true)
	cfg.MinTextChars = ClampMinTextChars(form.Get("min_text_chars"))
	cfg.CrawlTimeout = FormCrawlTimeout
	cfg.MaxConcurrentRequests = FormMaxConcurrentRequests

	cfg.Clamp()
	return cfg, nil
}

// BulkConfig builds the configuration of a bulk fetch. options holds the
// loosely typed "options" object of the request body.
func BulkConfig(urls, allowedHosts, pathPrefixes []string, options map[string]any, base *Config) *Config {
	cfg := base.Clone()
	if len(urls) > 0 {
		cfg.StartURL = urls[0]
	}
	cfg.MaxPages = max(1, len(urls))
	cfg.AllowedHosts = allowedHosts
	cfg.PathPrefixes = pathPrefixes

	cfg.StripLinks = ParseBool(optionString(options, "strip_links"), true)
	cfg.StripImages = ParseBool(optionString(options, "strip_images"), true)
	readability := optionString(options, "use_readability")
	if readability == "" {
		readability = optionString(options, "readability_fallback")
	}
	cfg.ReadabilityFallback = ParseBool(readability, true)
	cfg.MinTextChars = ClampMinTextChars(optionString(options, "min_text_chars"))
	cfg.IncludeSubdomains = ParseBool(optionString(options, "include_subdomains"), true)
	cfg.CrawlTimeout = FormCrawlTimeout
	cfg.MaxConcurrentRequests = FormMaxConcurrentRequests

	cfg.Clamp()
	return cfg
}

func optionString(options map[string]any, key string) string {
	v, ok := options[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// ValidateURLs checks a bulk URL list: 1..MaxBulkURLs entries, each made
// public with EnsurePublicURL, blanks dropped and duplicates removed in
// order.
func ValidateURLs(urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	if len(urls) > MaxBulkURLs {
		return nil, ErrTooManyURLs
	}

	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		u, err := EnsurePublicURL(raw)
		if err != nil {
			return nil, err
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	if len(out) == 0 {
		return nil, ErrNoURLs
	}
	return out, nil
}
