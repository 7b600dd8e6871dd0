package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/webkb/internal/config"
	"github.com/nao1215/webkb/internal/crawler"
	"github.com/nao1215/webkb/internal/model"
	"github.com/nao1215/webkb/internal/pipeline"
	"github.com/nao1215/webkb/internal/report"
	"github.com/nao1215/webkb/internal/urlnorm"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a website into one markdown knowledge base",
		Long: `Crawl walks a website breadth first from the given URL and prints the
combined markdown knowledge base.

Pages are limited by --max-pages, --max-depth and --crawl-timeout. The scope
is the root domain of the URL (with --include-subdomains), or the hosts given
with --allowed-hosts. robots.txt is honoured unless --respect-robots=false.

Examples:
  # Crawl the docs into a file
  webkb crawl https://docs.example.com/ -o docs.md

  # Only follow the guide section, two levels deep
  webkb crawl docs.example.com --path-prefixes /guide --max-depth 2

  # Print a JSON run report to stderr
  webkb crawl https://docs.example.com/ --report json > docs.md`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	f := cmd.Flags()
	f.IntP("max-pages", "p", config.DefaultMaxPages, "Maximum number of pages to collect (1-500)")
	f.IntP("max-depth", "d", config.DefaultMaxDepth, "Maximum link depth from the start URL")
	f.Bool("include-subdomains", false, "Also crawl subdomains of the root domain")
	f.StringSlice("allowed-hosts", nil, "Crawl only these hosts and their subdomains")
	f.StringSlice("path-prefixes", nil, "Follow only links whose path starts with one of these prefixes")
	f.Bool("respect-robots", true, "Honour robots.txt")
	f.Bool("use-sitemap", true, "Seed the crawl from /sitemap.xml")
	f.Bool("strip-links", true, "Keep link text but drop link targets")
	f.Bool("strip-images", true, "Drop images")
	f.Bool("readability", true, "Use readability when the main region has little text")
	f.Bool("remove-noise", true, "Also remove forms, noscript, svg and iframes")
	f.Int("min-text-chars", config.DefaultMinTextChars, "Visible text length under which readability runs")
	f.StringSlice("selectors", nil, "CSS selectors of the main content, tried in order")
	f.IntP("concurrency", "n", config.DefaultMaxConcurrentRequests, "Concurrent requests per batch")
	f.DurationP("timeout", "t", config.DefaultTimeout, "Timeout of each request")
	f.Duration("crawl-timeout", config.DefaultCrawlTimeout, "Wall-clock budget of the crawl")
	f.String("user-agent", "", "User-Agent header (default: a desktop browser)")
	f.String("proxy", "", "Proxy URL (http, https or socks5)")
	f.Float64("rate", 0, "Maximum requests per second per host (0: unlimited)")
	f.Int("min-total-chars", config.DefaultMinTotalChars, "Fail when the pages hold fewer characters")
	f.StringP("config", "c", "", "Configuration file (default: .webkb.yaml in current or home directory)")
	f.StringP("output", "o", "", "Write the knowledge base to this file instead of stdout")
	f.StringSliceP("report", "r", nil, "Print a run report to stderr: markdown, json, text")
	f.Bool("no-history", false, "Do not store the run in the history database")

	return cmd
}

// crawlOptions are the settings of the crawl command that are not part of
// the crawl configuration.
type crawlOptions struct {
	output  string
	reports []string
	verbose bool
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	opts := crawlOptions{verbose: getVerboseFlag(cmd)}
	if opts.output, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if opts.reports, err = cmd.Flags().GetStringSlice("report"); err != nil {
		return err
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return runCrawl(ctx, cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildCrawlConfig layers the config file entry of the target host, then
// the flags the user set, over the defaults.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	fs := cmd.Flags()

	configPath, err := fs.GetString("config")
	if err != nil {
		return nil, err
	}
	if err := loadConfigFile(cfg, configPath); err != nil {
		return nil, err
	}

	startURL, err := config.EnsurePublicURL(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", args[0], err)
	}
	cfg.StartURL = startURL
	cfg.ApplySite(urlnorm.Hostname(startURL))

	for _, err := range []error{
		setIfChanged(fs, "max-pages", fs.GetInt, &cfg.MaxPages),
		setIfChanged(fs, "max-depth", fs.GetInt, &cfg.MaxDepth),
		setIfChanged(fs, "include-subdomains", fs.GetBool, &cfg.IncludeSubdomains),
		setIfChanged(fs, "allowed-hosts", fs.GetStringSlice, &cfg.AllowedHosts),
		setIfChanged(fs, "path-prefixes", fs.GetStringSlice, &cfg.PathPrefixes),
		setIfChanged(fs, "respect-robots", fs.GetBool, &cfg.RespectRobots),
		setIfChanged(fs, "use-sitemap", fs.GetBool, &cfg.UseSitemap),
		setIfChanged(fs, "strip-links", fs.GetBool, &cfg.StripLinks),
		setIfChanged(fs, "strip-images", fs.GetBool, &cfg.StripImages),
		setIfChanged(fs, "readability", fs.GetBool, &cfg.ReadabilityFallback),
		setIfChanged(fs, "remove-noise", fs.GetBool, &cfg.RemoveAdditionalNoise),
		setIfChanged(fs, "min-text-chars", fs.GetInt, &cfg.MinTextChars),
		setIfChanged(fs, "selectors", fs.GetStringSlice, &cfg.MainSelectors),
		setIfChanged(fs, "concurrency", fs.GetInt, &cfg.MaxConcurrentRequests),
		setIfChanged(fs, "timeout", fs.GetDuration, &cfg.Timeout),
		setIfChanged(fs, "crawl-timeout", fs.GetDuration, &cfg.CrawlTimeout),
		setIfChanged(fs, "user-agent", fs.GetString, &cfg.UserAgent),
		setIfChanged(fs, "proxy", fs.GetString, &cfg.ProxyURL),
		setIfChanged(fs, "rate", fs.GetFloat64, &cfg.RequestsPerSecond),
		setIfChanged(fs, "min-total-chars", fs.GetInt, &cfg.MinTotalChars),
	} {
		if err != nil {
			return nil, err
		}
	}

	noHistory, err := fs.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if !noHistory {
		cfg.DBDir = config.XDGDataDir()
	}
	cfg.Verbose = getVerboseFlag(cmd)

	cfg.Clamp()
	return cfg, nil
}

// runCrawl executes the crawl and writes the knowledge base to out (or the
// output file) and reports to errOut. The run is stored in the history
// even when its content check fails.
func runCrawl(ctx context.Context, cfg *config.Config, opts crawlOptions, out, errOut io.Writer, logger *slog.Logger, extra ...crawler.Option) error {
	writer, err := reportWriter(errOut, opts)
	if err != nil {
		return err
	}

	logger.Info("starting crawl", "url", cfg.StartURL, "max_pages", cfg.MaxPages, "max_depth", cfg.MaxDepth)
	crawlerOpts := append([]crawler.Option{crawler.WithLogger(logger)}, extra...)
	run, err := pipeline.Generate(ctx, cfg, crawlerOpts...)
	if run == nil {
		return err
	}
	logger.Info("crawl finished", "pages", len(run.Pages), "errors", len(run.Errors), "timed_out", run.TimedOut)

	saveRun(ctx, cfg.DBDir, run, logger)
	if writer != nil {
		if _, werr := writer.Write(run); werr != nil {
			logger.Warn("failed to write report", "error", werr)
		}
	}

	var contentErr *pipeline.ContentError
	if errors.As(err, &contentErr) {
		return fmt.Errorf("%w (see --report text for the error ledger)", err)
	}
	if err != nil {
		return err
	}

	if err := writeOutput(out, opts.output, []byte(run.Markdown)); err != nil {
		return err
	}
	if opts.output != "" {
		fmt.Fprintf(errOut, "Wrote %d pages to %s\n", len(run.Pages), opts.output)
	}
	return nil
}

// reportWriter builds the writers of the requested report formats, nil
// when none was requested.
func reportWriter(w io.Writer, opts crawlOptions) (report.Writer, error) {
	if len(opts.reports) == 0 {
		return nil, nil
	}
	writers := make([]report.Writer, 0, len(opts.reports))
	for _, format := range opts.reports {
		rw, err := newReportWriter(w, format, opts.verbose)
		if err != nil {
			return nil, err
		}
		writers = append(writers, rw)
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return report.NewMultiWriter(writers...), nil
}

func newReportWriter(w io.Writer, format string, verbose bool) (report.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "markdown", "md":
		return report.NewMarkdownWriter(w), nil
	case "json":
		return report.NewJSONWriter(w, report.WithPrettyPrint()), nil
	case "text", "txt":
		return report.NewSimpleWriter(w, report.WithVerbose(verbose)), nil
	default:
		return nil, fmt.Errorf("unknown report format %q (use markdown, json or text)", format)
	}
}

func saveRun(ctx context.Context, dbDir string, run *model.Run, logger *slog.Logger) {
	db, err := openHistory(dbDir)
	if err != nil {
		logger.Warn("run not saved", "error", err)
		return
	}
	if db == nil {
		return
	}
	defer db.Close()

	if _, err := db.Save(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("run not saved", "error", err)
	}
}
