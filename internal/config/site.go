package config

import "strings"

// SiteConfig holds per-host overrides from the config file.
type SiteConfig struct {
	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra request headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the default User-Agent.
	UserAgent string `yaml:"userAgent,omitempty"`

	// MaxDepth overrides the crawl depth. Zero keeps the current value.
	MaxDepth int `yaml:"maxDepth,omitempty"`

	// MaxPages overrides the page cap. Zero keeps the current value.
	MaxPages int `yaml:"maxPages,omitempty"`

	// AllowedHosts replaces root-domain scoping for this site.
	AllowedHosts []string `yaml:"allowedHosts,omitempty"`

	// PathPrefixes restricts the crawl to these path prefixes.
	PathPrefixes []string `yaml:"pathPrefixes,omitempty"`

	// MainSelectors overrides the content selector chain.
	MainSelectors []string `yaml:"mainSelectors,omitempty"`
}

// File represents the structure of the .webkb.yaml configuration file.
type File struct {
	// Sites maps host names to their configuration, e.g. "docs.example.com".
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
// Host names are matched case-insensitively.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	site, ok := cf.Sites[strings.ToLower(host)]
	if !ok {
		for name, s := range cf.Sites {
			if strings.EqualFold(name, host) {
				site, ok = s, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.MaxDepth != 0 {
		result.MaxDepth = site.MaxDepth
	}
	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	if len(site.AllowedHosts) > 0 {
		result.AllowedHosts = site.AllowedHosts
	}
	if len(site.PathPrefixes) > 0 {
		result.PathPrefixes = site.PathPrefixes
	}
	if len(site.MainSelectors) > 0 {
		result.MainSelectors = site.MainSelectors
	}
	return result
}
