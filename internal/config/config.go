package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "webkb"

	// DefaultMaxPages is the page cap of a crawl.
	DefaultMaxPages = 50

	// MaxPagesLimit is the largest accepted page cap.
	MaxPagesLimit = 500

	// DefaultMaxDepth is the link depth followed from the seed.
	DefaultMaxDepth = 3

	// DefaultMaxConcurrentRequests is the batch size of the scheduler.
	DefaultMaxConcurrentRequests = 8

	// DefaultTimeout applies to each HTTP request.
	DefaultTimeout = 10 * time.Second

	// DefaultCrawlTimeout is the wall-clock budget of a crawl.
	DefaultCrawlTimeout = 120 * time.Second

	// DefaultMinTextChars is the visible-text length under which the
	// readability fallback runs.
	DefaultMinTextChars = 600

	// DefaultMinTotalChars is the combined markdown length under which a run
	// is reported as insufficient content.
	DefaultMinTotalChars = 500

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultListenAddr is the address of the HTTP server.
	DefaultListenAddr = ":8000"
)

// Config holds every option of a crawl plus the settings of the program
// around it. It is populated from defaults, the config file and CLI flags
// (or form fields), then clamped and validated once before use.
type Config struct {
	// StartURL is the seed of the crawl.
	StartURL string

	// MaxPages caps the pages collected. Clamped to 1..MaxPagesLimit.
	MaxPages int

	// MaxDepth is the largest link depth enqueued. 0 fetches only the seed
	// (and sitemap URLs).
	MaxDepth int

	// IncludeSubdomains admits subdomains of the seed's root domain.
	IncludeSubdomains bool

	// AllowedHosts replaces root-domain scoping with an explicit list.
	// Subdomains of listed hosts are admitted.
	AllowedHosts []string

	// PathPrefixes restricts links to paths (with query) starting with one
	// of the prefixes.
	PathPrefixes []string

	// RespectRobots enables robots.txt enforcement.
	RespectRobots bool

	// UseSitemap seeds the frontier from /sitemap.xml.
	UseSitemap bool

	// StripLinks and StripImages control markdown conversion.
	StripLinks  bool
	StripImages bool

	// MinTextChars is the readability fallback threshold.
	MinTextChars int

	// ReadabilityFallback enables the readability pass.
	ReadabilityFallback bool

	// RemoveAdditionalNoise also strips forms, noscript, svg and iframes.
	RemoveAdditionalNoise bool

	// MainSelectors overrides the content selector chain.
	MainSelectors []string

	// MaxConcurrentRequests is the number of fetches per batch.
	MaxConcurrentRequests int

	// Timeout applies to each request.
	Timeout time.Duration

	// CrawlTimeout is the wall-clock budget checked before each batch.
	CrawlTimeout time.Duration

	// UserAgent overrides the browser User-Agent sent by default.
	UserAgent string

	// Headers are extra request headers, usually from the config file.
	Headers map[string]string

	// MaxBodySize caps decoded response bodies.
	MaxBodySize int64

	// ProxyURL routes requests through an http(s) or socks5 proxy.
	ProxyURL string

	// RequestsPerSecond limits requests per host. 0 means unlimited.
	RequestsPerSecond float64

	// MinTotalChars is the run-level content threshold.
	MinTotalChars int

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the YAML file given on the command line.
	ConfigFilePath string

	// SiteConfigs holds the loaded config file, nil when there is none.
	SiteConfigs *File

	// OutputDir receives generated knowledge bases. Empty disables writing.
	OutputDir string

	// DBDir holds the run history database. Empty disables history.
	DBDir string

	// ListenAddr is the HTTP server address.
	ListenAddr string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:              DefaultMaxPages,
		MaxDepth:              DefaultMaxDepth,
		RespectRobots:         true,
		UseSitemap:            true,
		StripLinks:            true,
		StripImages:           true,
		MinTextChars:          DefaultMinTextChars,
		ReadabilityFallback:   true,
		RemoveAdditionalNoise: true,
		MaxConcurrentRequests: DefaultMaxConcurrentRequests,
		Timeout:               DefaultTimeout,
		CrawlTimeout:          DefaultCrawlTimeout,
		MaxBodySize:           DefaultMaxBodySize,
		MinTotalChars:         DefaultMinTotalChars,
		ListenAddr:            DefaultListenAddr,
	}
}

// Clone returns a deep copy, so per-request changes never leak into a
// shared base configuration.
func (c *Config) Clone() *Config {
	cp := *c
	cp.AllowedHosts = append([]string(nil), c.AllowedHosts...)
	cp.PathPrefixes = append([]string(nil), c.PathPrefixes...)
	cp.MainSelectors = append([]string(nil), c.MainSelectors...)
	if c.Headers != nil {
		cp.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			cp.Headers[k] = v
		}
	}
	return &cp
}

// Clamp forces numeric options into their accepted ranges and normalizes
// the host and prefix lists. Call it once before the crawl starts.
func (c *Config) Clamp() {
	c.MaxPages = max(1, min(c.MaxPages, MaxPagesLimit))
	c.MaxDepth = max(0, c.MaxDepth)
	c.MaxConcurrentRequests = max(1, c.MaxConcurrentRequests)
	c.MinTextChars = max(0, c.MinTextChars)
	c.AllowedHosts = normalizeHosts(c.AllowedHosts)
	c.PathPrefixes = normalizePrefixes(c.PathPrefixes)
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

func normalizePrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StartURL) == "" {
		return ErrNoStartURL
	}
	if _, err := EnsurePublicURL(c.StartURL); err != nil {
		return err
	}
	if c.MaxPages > MaxPagesLimit {
		return ErrMaxPagesTooLarge
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlTimeout <= 0 {
		return ErrInvalidCrawlTimeout
	}
	if c.MaxConcurrentRequests <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	return nil
}

// ApplySite merges the config file entry for host into c. Values set in
// the file override the current ones.
func (c *Config) ApplySite(host string) {
	if c.SiteConfigs == nil {
		return
	}
	site := c.SiteConfigs.GetSiteConfig(host)

	if site.MaxDepth != 0 {
		c.MaxDepth = site.MaxDepth
	}
	if site.MaxPages != 0 {
		c.MaxPages = site.MaxPages
	}
	if len(site.AllowedHosts) > 0 {
		c.AllowedHosts = append([]string(nil), site.AllowedHosts...)
	}
	if len(site.PathPrefixes) > 0 {
		c.PathPrefixes = append([]string(nil), site.PathPrefixes...)
	}
	if len(site.MainSelectors) > 0 {
		c.MainSelectors = append([]string(nil), site.MainSelectors...)
	}
	if site.UserAgent != "" {
		c.UserAgent = site.UserAgent
	}
	if len(site.Headers) > 0 || site.Cookie != "" {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		for k, v := range site.Headers {
			c.Headers[k] = v
		}
		if site.Cookie != "" {
			c.Headers["Cookie"] = site.Cookie
		}
	}
}

// XDGDataDir returns the XDG data directory for webkb.
// On Linux: ~/.local/share/webkb
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webkb.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultOutputDir is where generated knowledge bases are written.
func DefaultOutputDir() string {
	return filepath.Join(XDGDataDir(), "outputs")
}
