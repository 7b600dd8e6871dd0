package politeness

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
)

// Getter performs a single plain GET. The fetcher implements it and the
// robots cache and sitemap discoverer use it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (status int, body []byte, err error)
}

// ParseRobots extracts the disallow rules that apply to every crawler
// (User-agent: *). An empty Disallow value is read as "/", and an Allow line
// removes an identical Disallow recorded earlier in the same block.
func ParseRobots(content string) []string {
	disallow := make([]string, 0)
	relevant := false

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(field)) {
		case "user-agent":
			relevant = strings.ToLower(value) == "*"
		case "disallow":
			if !relevant {
				continue
			}
			if value == "" {
				value = "/"
			}
			disallow = append(disallow, value)
		case "allow":
			if !relevant {
				continue
			}
			if i := slices.Index(disallow, value); i >= 0 {
				disallow = slices.Delete(disallow, i, i+1)
			}
		}
	}
	return disallow
}

// IsDisallowedPath reports whether any rule forbids path. A rule forbids a
// path when it is "/" or a literal prefix of the path.
func IsDisallowedPath(rules []string, path string) bool {
	if path == "" {
		path = "/"
	}
	for _, rule := range rules {
		if rule == "" {
			continue
		}
		if rule == "/" || strings.HasPrefix(path, rule) {
			return true
		}
	}
	return false
}

// RobotsCache holds the disallow rules per host for one run.
// Rules are fetched at most once per host. Two concurrent first lookups
// of the same host may both fetch; the second write simply replaces the
// first with identical rules.
type RobotsCache struct {
	getter Getter
	logger *slog.Logger

	mu    sync.RWMutex
	rules map[string][]string
}

// NewRobotsCache creates an empty cache that fetches through getter.
func NewRobotsCache(getter Getter, logger *slog.Logger) *RobotsCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsCache{
		getter: getter,
		logger: logger,
		rules:  make(map[string][]string),
	}
}

// Ensure fetches /robots.txt for the host of rawURL unless it is cached.
// Any failure leaves the host with no rules.
func (c *RobotsCache) Ensure(ctx context.Context, rawURL string) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return
	}
	host := strings.ToLower(u.Hostname())

	c.mu.RLock()
	_, cached := c.rules[host]
	c.mu.RUnlock()
	if cached {
		return
	}

	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	rules := make([]string, 0)
	status, body, err := c.getter.Get(ctx, robotsURL)
	switch {
	case err != nil:
		c.logger.Debug("robots.txt unavailable", "url", robotsURL, "error", err)
	case status != http.StatusOK:
		c.logger.Debug("robots.txt not served", "url", robotsURL, "status", status)
	default:
		rules = ParseRobots(string(body))
	}

	c.mu.Lock()
	c.rules[host] = rules
	c.mu.Unlock()
}

// Forbid records an empty rule set for host without fetching.
// The engine uses it for hosts it refuses to contact.
func (c *RobotsCache) Forbid(host string) {
	host = strings.ToLower(host)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rules[host]; !ok {
		c.rules[host] = []string{}
	}
}

// IsDisallowed reports whether cached rules forbid rawURL.
// Unknown hosts are allowed.
func (c *RobotsCache) IsDisallowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	c.mu.RLock()
	rules := c.rules[strings.ToLower(u.Hostname())]
	c.mu.RUnlock()
	return IsDisallowedPath(rules, u.Path)
}

// Hosts returns the number of hosts with cached rules.
func (c *RobotsCache) Hosts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}
