package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webkb/internal/config"
	"github.com/nao1215/webkb/internal/crawler"
	"github.com/nao1215/webkb/internal/crawler/crawlertest"
	"github.com/nao1215/webkb/internal/database"
	"github.com/nao1215/webkb/internal/pipeline"
)

var longText = strings.Repeat("The guide explains every option of the crawler in detail. ", 10)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildCrawlConfig(t *testing.T) {
	t.Parallel()

	configFile := filepath.Join(t.TempDir(), "webkb.yaml")
	yaml := `sites:
  docs.example.com:
    maxDepth: 5
    pathPrefixes: [/guide]
    cookie: "session=abc"
`
	if err := os.WriteFile(configFile, []byte(yaml), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "defaults and scheme",
			args: []string{"--no-history"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.StartURL != "https://docs.example.com" {
					t.Errorf("expected https start url, got %q", cfg.StartURL)
				}
				if cfg.MaxPages != config.DefaultMaxPages || !cfg.RespectRobots || cfg.DBDir != "" {
					t.Errorf("unexpected defaults %+v", cfg)
				}
			},
		},
		{
			name: "flags",
			args: []string{"-p", "700", "--allowed-hosts", "a.example.com,b.example.com", "--respect-robots=false", "--crawl-timeout", "30s"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.MaxPages != config.MaxPagesLimit {
					t.Errorf("expected clamped max pages, got %d", cfg.MaxPages)
				}
				if len(cfg.AllowedHosts) != 2 || cfg.RespectRobots {
					t.Errorf("unexpected scope %+v", cfg)
				}
				if cfg.CrawlTimeout != 30*time.Second {
					t.Errorf("expected 30s crawl timeout, got %s", cfg.CrawlTimeout)
				}
				if cfg.DBDir == "" {
					t.Error("expected history to be enabled")
				}
			},
		},
		{
			name: "config file site entry",
			args: []string{"-c", configFile},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.MaxDepth != 5 {
					t.Errorf("expected max depth 5, got %d", cfg.MaxDepth)
				}
				if len(cfg.PathPrefixes) != 1 || cfg.PathPrefixes[0] != "/guide" {
					t.Errorf("unexpected prefixes %v", cfg.PathPrefixes)
				}
				if cfg.Headers["Cookie"] != "session=abc" {
					t.Errorf("expected cookie header, got %v", cfg.Headers)
				}
			},
		},
		{
			name: "flags win over the config file",
			args: []string{"-c", configFile, "-d", "1"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.MaxDepth != 1 {
					t.Errorf("expected max depth 1, got %d", cfg.MaxDepth)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewCrawlCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}
			cfg, err := buildCrawlConfig(cmd, []string{"docs.example.com"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}

	t.Run("rejects private targets", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		_, err := buildCrawlConfig(cmd, []string{"http://127.0.0.1/"})
		if !errors.Is(err, config.ErrBlockedTarget) {
			t.Errorf("expected ErrBlockedTarget, got %v", err)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "none.yaml")}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		if _, err := buildCrawlConfig(cmd, []string{"docs.example.com"}); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func crawlConfig(dbDir string) *config.Config {
	cfg := config.NewConfig()
	cfg.StartURL = "http://docs.example.com/"
	cfg.UseSitemap = false
	cfg.RespectRobots = false
	cfg.ReadabilityFallback = false
	cfg.DBDir = dbDir
	return cfg
}

func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("writes the knowledge base and saves the run", func(t *testing.T) {
		t.Parallel()

		site := crawlertest.NewSite(t, map[string]string{
			"/":      crawlertest.Page("Home", longText, "/guide"),
			"/guide": crawlertest.Page("Guide", longText+" Second page."),
		})
		dbDir := t.TempDir()
		outPath := filepath.Join(t.TempDir(), "kb", "docs.md")

		var stdout, stderr bytes.Buffer
		err := runCrawl(context.Background(), crawlConfig(dbDir),
			crawlOptions{output: outPath, reports: []string{"text", "json"}},
			&stdout, &stderr, discardLogger(),
			crawler.WithHTTPClient(site.Client()),
			crawler.WithResolver(crawlertest.Resolver{}),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("expected output file: %v", err)
		}
		if !strings.HasPrefix(string(content), "<!-- Crawl summary:\nTotal pages: 2\n") {
			t.Errorf("unexpected knowledge base %q", content)
		}
		if stdout.Len() != 0 {
			t.Errorf("expected nothing on stdout, got %q", stdout.String())
		}
		for _, want := range []string{"WEBKB CRAWL REPORT", `"pages_count": 2`, "Wrote 2 pages to"} {
			if !strings.Contains(stderr.String(), want) {
				t.Errorf("expected stderr to contain %q, got %q", want, stderr.String())
			}
		}

		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()
		records, err := db.List(context.Background(), 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(records) != 1 || records[0].Stats.PagesCount != 2 {
			t.Errorf("expected one stored run with 2 pages, got %+v", records)
		}
	})

	t.Run("insufficient content", func(t *testing.T) {
		t.Parallel()

		site := crawlertest.NewSite(t, map[string]string{
			"/": crawlertest.Page("Home", "Tiny."),
		})

		var stdout, stderr bytes.Buffer
		err := runCrawl(context.Background(), crawlConfig(""), crawlOptions{},
			&stdout, &stderr, discardLogger(),
			crawler.WithHTTPClient(site.Client()),
			crawler.WithResolver(crawlertest.Resolver{}),
		)
		if !errors.Is(err, pipeline.ErrInsufficientContent) {
			t.Fatalf("expected ErrInsufficientContent, got %v", err)
		}
		if stdout.Len() != 0 {
			t.Errorf("expected no knowledge base, got %q", stdout.String())
		}
	})

	t.Run("unknown report format", func(t *testing.T) {
		t.Parallel()

		err := runCrawl(context.Background(), crawlConfig(""), crawlOptions{reports: []string{"pdf"}},
			io.Discard, io.Discard, discardLogger())
		if err == nil || !strings.Contains(err.Error(), "unknown report format") {
			t.Errorf("expected format error, got %v", err)
		}
	})
}
