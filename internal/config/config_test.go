package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig pins the defaults so that changes to them are intentional.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	tests := []struct {
		name string
		ok   bool
	}{
		{"MaxPages is 50", cfg.MaxPages == 50},
		{"MaxDepth is 3", cfg.MaxDepth == 3},
		{"IncludeSubdomains is false", !cfg.IncludeSubdomains},
		{"RespectRobots is true", cfg.RespectRobots},
		{"UseSitemap is true", cfg.UseSitemap},
		{"StripLinks and StripImages are true", cfg.StripLinks && cfg.StripImages},
		{"MinTextChars is 600", cfg.MinTextChars == 600},
		{"ReadabilityFallback is true", cfg.ReadabilityFallback},
		{"MaxConcurrentRequests is 8", cfg.MaxConcurrentRequests == 8},
		{"Timeout is 10 seconds", cfg.Timeout == 10*time.Second},
		{"CrawlTimeout is 120 seconds", cfg.CrawlTimeout == 120*time.Second},
		{"MinTotalChars is 500", cfg.MinTotalChars == 500},
		{"ListenAddr is :8000", cfg.ListenAddr == ":8000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !tt.ok {
				t.Errorf("unexpected default: %+v", cfg)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.StartURL = "https://example.com/"
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"valid config returns nil", func(*Config) {}, nil},
		{"empty start url", func(c *Config) { c.StartURL = "  " }, ErrNoStartURL},
		{"ftp scheme", func(c *Config) { c.StartURL = "ftp://example.com/" }, ErrInvalidScheme},
		{"loopback target", func(c *Config) { c.StartURL = "http://127.0.0.1:8080/" }, ErrBlockedTarget},
		{"too many pages", func(c *Config) { c.MaxPages = 501 }, ErrMaxPagesTooLarge},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero crawl timeout", func(c *Config) { c.CrawlTimeout = 0 }, ErrInvalidCrawlTimeout},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentRequests = 0 }, ErrInvalidConcurrency},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -1 }, ErrInvalidRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigClamp(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.MaxPages = 9000
	cfg.MaxDepth = -2
	cfg.MaxConcurrentRequests = 0
	cfg.AllowedHosts = []string{" Docs.Example.com ", ""}
	cfg.PathPrefixes = []string{" /docs ", " "}
	cfg.Clamp()

	if cfg.MaxPages != MaxPagesLimit {
		t.Errorf("expected %d, got %d", MaxPagesLimit, cfg.MaxPages)
	}
	if cfg.MaxDepth != 0 {
		t.Errorf("expected depth 0, got %d", cfg.MaxDepth)
	}
	if cfg.MaxConcurrentRequests != 1 {
		t.Errorf("expected concurrency 1, got %d", cfg.MaxConcurrentRequests)
	}
	if len(cfg.AllowedHosts) != 1 || cfg.AllowedHosts[0] != "docs.example.com" {
		t.Errorf("expected [docs.example.com], got %v", cfg.AllowedHosts)
	}
	if len(cfg.PathPrefixes) != 1 || cfg.PathPrefixes[0] != "/docs" {
		t.Errorf("expected [/docs], got %v", cfg.PathPrefixes)
	}
}

func TestConfigClone(t *testing.T) {
	t.Parallel()

	base := NewConfig()
	base.AllowedHosts = []string{"example.com"}
	base.Headers = map[string]string{"X-Test": "1"}

	cp := base.Clone()
	cp.AllowedHosts[0] = "other.com"
	cp.Headers["X-Test"] = "2"

	if base.AllowedHosts[0] != "example.com" {
		t.Errorf("expected base hosts untouched, got %v", base.AllowedHosts)
	}
	if base.Headers["X-Test"] != "1" {
		t.Errorf("expected base headers untouched, got %v", base.Headers)
	}
}

func TestApplySite(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.SiteConfigs = &File{
		Defaults: SiteConfig{Headers: map[string]string{"Accept-Language": "ja"}},
		Sites: map[string]SiteConfig{
			"docs.example.com": {
				Cookie:        "session=abc",
				MaxDepth:      5,
				PathPrefixes:  []string{"/docs"},
				MainSelectors: []string{"div.markdown-body"},
				UserAgent:     "custom/1.0",
			},
		},
	}

	cfg.ApplySite("DOCS.example.com")

	if cfg.MaxDepth != 5 {
		t.Errorf("expected depth 5, got %d", cfg.MaxDepth)
	}
	if cfg.MaxPages != DefaultMaxPages {
		t.Errorf("expected max pages untouched, got %d", cfg.MaxPages)
	}
	if cfg.UserAgent != "custom/1.0" {
		t.Errorf("expected custom user agent, got %q", cfg.UserAgent)
	}
	if cfg.Headers["Cookie"] != "session=abc" || cfg.Headers["Accept-Language"] != "ja" {
		t.Errorf("unexpected headers %v", cfg.Headers)
	}
	if len(cfg.MainSelectors) != 1 || cfg.MainSelectors[0] != "div.markdown-body" {
		t.Errorf("unexpected selectors %v", cfg.MainSelectors)
	}

	other := NewConfig()
	other.SiteConfigs = cfg.SiteConfigs
	other.ApplySite("blog.example.com")
	if other.Headers["Cookie"] != "" {
		t.Errorf("expected no cookie for other host, got %q", other.Headers["Cookie"])
	}
	if other.Headers["Accept-Language"] != "ja" {
		t.Errorf("expected default headers, got %v", other.Headers)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `defaults:
  maxDepth: 2
sites:
  docs.example.com:
    pathPrefixes:
      - /guide
    cookie: "a=b"
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		site := cf.GetSiteConfig("docs.example.com")
		if site.MaxDepth != 2 {
			t.Errorf("expected inherited depth 2, got %d", site.MaxDepth)
		}
		if site.Cookie != "a=b" || len(site.PathPrefixes) != 1 {
			t.Errorf("unexpected site config %+v", site)
		}
	})

	t.Run("sample config parses", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(SampleConfig), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected non-nil sites map")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("sites: [unclosed"), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if got := FindConfigFile(path); got != path {
		t.Errorf("expected %q, got %q", path, got)
	}
	if got := FindConfigFile(path + ".missing"); got != "" {
		t.Errorf("expected empty path, got %q", got)
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{}},
		{"a.com", []string{"a.com"}},
		{"a.com, b.com  c.com\n/d", []string{"a.com", "b.com", "c.com", "/d"}},
		{" ,, ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got := ParseList(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		def  bool
		want bool
	}{
		{"1", false, true},
		{"Yes", false, true},
		{"on", false, true},
		{"TRUE", false, true},
		{"0", true, false},
		{"no", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			if got := ParseBool(tt.raw, tt.def); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClamps(t *testing.T) {
	t.Parallel()

	depth := map[string]int{"": 3, "x": 3, "0": 1, "5": 5, "50": 10}
	for raw, want := range depth {
		if got := ClampMaxDepth(raw); got != want {
			t.Errorf("max_depth %q: expected %d, got %d", raw, want, got)
		}
	}

	minText := map[string]int{"": 600, "abc": 600, "10": 200, "800": 800, "9999": 5000}
	for raw, want := range minText {
		if got := ClampMinTextChars(raw); got != want {
			t.Errorf("min_text_chars %q: expected %d, got %d", raw, want, got)
		}
	}
}

func TestValidateMaxPages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    int
		wantErr error
	}{
		{"", 10, nil},
		{"25", 25, nil},
		{"0", 1, nil},
		{"-4", 1, nil},
		{"abc", 1, nil},
		{"500", 500, nil},
		{"501", 0, ErrMaxPagesTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := ValidateMaxPages(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestEnsurePublicURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    string
		wantErr error
	}{
		{"example.com/docs", "https://example.com/docs", nil},
		{"http://example.com", "http://example.com", nil},
		{"ftp://example.com", "", ErrInvalidScheme},
		{"http://localhost:8000/", "", ErrBlockedTarget},
		{"http://10.0.0.5/", "", ErrBlockedTarget},
		{"http://192.168.1.1/", "", ErrBlockedTarget},
		{"http://169.254.169.254/latest", "", ErrBlockedTarget},
		{"http://[::1]/", "", ErrBlockedTarget},
		{"http://93.184.216.34/", "http://93.184.216.34/", nil},
		{"", "", ErrNoStartURL},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := EnsurePublicURL(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := FormConfig(url.Values{"url": {"example.com"}}, NewConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.StartURL != "https://example.com" {
			t.Errorf("expected https url, got %q", cfg.StartURL)
		}
		if cfg.MaxPages != 10 || cfg.MaxDepth != 3 || cfg.MinTextChars != 600 {
			t.Errorf("unexpected limits: pages=%d depth=%d min=%d", cfg.MaxPages, cfg.MaxDepth, cfg.MinTextChars)
		}
		if cfg.CrawlTimeout != FormCrawlTimeout || cfg.MaxConcurrentRequests != 8 {
			t.Errorf("unexpected crawl budget %v / %d", cfg.CrawlTimeout, cfg.MaxConcurrentRequests)
		}
		if cfg.IncludeSubdomains || !cfg.RespectRobots || !cfg.UseSitemap {
			t.Errorf("unexpected flags %+v", cfg)
		}
	})

	t.Run("fields", func(t *testing.T) {
		t.Parallel()

		form := url.Values{
			"url":                {"https://docs.example.com"},
			"max_pages":          {"40"},
			"max_depth":          {"99"},
			"allowed_hosts":      {"docs.example.com, api.example.com"},
			"path_prefixes":      {"/guide /api"},
			"include_subdomains": {"on"},
			"respect_robots":     {"off"},
			"strip_links":        {"0"},
			"min_text_chars":     {"50"},
		}
		base := NewConfig()
		cfg, err := FormConfig(form, base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxPages != 40 || cfg.MaxDepth != 10 || cfg.MinTextChars != 200 {
			t.Errorf("unexpected limits: pages=%d depth=%d min=%d", cfg.MaxPages, cfg.MaxDepth, cfg.MinTextChars)
		}
		if len(cfg.AllowedHosts) != 2 || len(cfg.PathPrefixes) != 2 {
			t.Errorf("unexpected lists %v %v", cfg.AllowedHosts, cfg.PathPrefixes)
		}
		if !cfg.IncludeSubdomains || cfg.RespectRobots || cfg.StripLinks {
			t.Errorf("unexpected flags %+v", cfg)
		}
		if base.MaxPages != DefaultMaxPages {
			t.Errorf("expected base config untouched, got %d", base.MaxPages)
		}
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		if _, err := FormConfig(url.Values{"url": {"http://127.0.0.1"}}, NewConfig()); !errors.Is(err, ErrBlockedTarget) {
			t.Errorf("expected ErrBlockedTarget, got %v", err)
		}
		form := url.Values{"url": {"example.com"}, "max_pages": {"600"}}
		if _, err := FormConfig(form, NewConfig()); !errors.Is(err, ErrMaxPagesTooLarge) {
			t.Errorf("expected ErrMaxPagesTooLarge, got %v", err)
		}
	})
}

func TestBulkConfig(t *testing.T) {
	t.Parallel()

	options := map[string]any{
		"strip_links":     false,
		"use_readability": "no",
		"min_text_chars":  float64(1000),
	}
	cfg := BulkConfig([]string{"https://a.com/x", "https://b.com/y"}, nil, nil, options, NewConfig())

	if cfg.StripLinks {
		t.Error("expected links kept")
	}
	if !cfg.StripImages {
		t.Error("expected images stripped by default")
	}
	if cfg.ReadabilityFallback {
		t.Error("expected readability disabled")
	}
	if cfg.MinTextChars != 1000 {
		t.Errorf("expected 1000, got %d", cfg.MinTextChars)
	}
	if !cfg.IncludeSubdomains {
		t.Error("expected subdomains included by default")
	}
	if cfg.MaxPages != 2 {
		t.Errorf("expected 2 pages, got %d", cfg.MaxPages)
	}
}

func TestValidateURLs(t *testing.T) {
	t.Parallel()

	if _, err := ValidateURLs(nil); !errors.Is(err, ErrNoURLs) {
		t.Errorf("expected ErrNoURLs, got %v", err)
	}
	if _, err := ValidateURLs([]string{" ", ""}); !errors.Is(err, ErrNoURLs) {
		t.Errorf("expected ErrNoURLs for blanks, got %v", err)
	}

	many := make([]string, MaxBulkURLs+1)
	for i := range many {
		many[i] = "https://example.com/"
	}
	if _, err := ValidateURLs(many); !errors.Is(err, ErrTooManyURLs) {
		t.Errorf("expected ErrTooManyURLs, got %v", err)
	}

	got, err := ValidateURLs([]string{"example.com/a", "https://example.com/a", "https://example.com/b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "https://example.com/a" || got[1] != "https://example.com/b" {
		t.Errorf("unexpected urls %v", got)
	}

	if _, err := ValidateURLs([]string{"https://example.com", "http://localhost"}); !errors.Is(err, ErrBlockedTarget) {
		t.Errorf("expected ErrBlockedTarget, got %v", err)
	}
}
