package server

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/nao1215/webkb/internal/config"
	"github.com/nao1215/webkb/internal/model"
	"github.com/nao1215/webkb/internal/pipeline"
	"github.com/nao1215/webkb/internal/report"
	"github.com/nao1215/webkb/internal/urlnorm"
)

const insufficientContentMessage = "Crawl produced too little content. Please review diagnostics."

// contentDetail is the detail of an insufficient-content failure.
type contentDetail struct {
	Message     string                   `json:"message"`
	Diagnostics []model.DiagnosticRecord `json:"diagnostics"`
	Errors      []model.ErrorRecord      `json:"errors"`
}

// PreviewItem is one page listed by /crawl-preview.
type PreviewItem struct {
	ID                int    `json:"id"`
	URL               string `json:"url"`
	Host              string `json:"host"`
	Path              string `json:"path"`
	Title             string `json:"title"`
	SuggestedFilename string `json:"suggested_filename"`
}

// LastRunInfo is the body of /debug/last-run.
type LastRunInfo struct {
	Errors         []model.ErrorRecord      `json:"errors"`
	Diagnostics    []model.DiagnosticRecord `json:"diagnostics"`
	PagesCount     int                      `json:"pages_count"`
	ThinPagesCount int                      `json:"thin_pages_count"`
	TotalChars     int                      `json:"total_chars"`
	SkippedLinks   int                      `json:"skipped_links"`
	TimedOut       bool                     `json:"timed_out"`
}

// parseForm accepts both url-encoded and multipart bodies.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxUploadMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

// crawlConfig builds the configuration of a form-driven crawl. The config
// file entry of the target host is applied first; form fields win.
func (s *Server) crawlConfig(form url.Values) (*config.Config, error) {
	base := s.base
	if target, err := config.EnsurePublicURL(form.Get("url")); err == nil {
		base = s.base.Clone()
		base.ApplySite(urlnorm.Hostname(target))
	}
	return config.FormConfig(form, base)
}

// crawl runs the knowledge-base pipeline for a form and records the run.
// It writes the error response itself and returns ok=false on failure.
// Insufficient content is not a failure here; it comes back as the
// second value for the caller to handle.
func (s *Server) crawl(w http.ResponseWriter, r *http.Request) (*model.Run, *pipeline.ContentError, bool) {
	if err := parseForm(r); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid form body.")
		return nil, nil, false
	}
	cfg, err := s.crawlConfig(r.Form)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, userMessage(err))
		return nil, nil, false
	}

	s.logger.Info("crawl requested", "url", cfg.StartURL, "max_pages", cfg.MaxPages, "max_depth", cfg.MaxDepth)
	run, err := pipeline.Generate(r.Context(), cfg, s.spiderOptions()...)
	if run == nil {
		writeDetail(w, http.StatusBadRequest, userMessage(err))
		return nil, nil, false
	}
	s.remember(r.Context(), run)

	var contentErr *pipeline.ContentError
	if err != nil && !errors.As(err, &contentErr) {
		s.logger.Error("crawl failed", "url", cfg.StartURL, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Crawl failed.")
		return nil, nil, false
	}
	return run, contentErr, true
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	run, contentErr, ok := s.crawl(w, r)
	if !ok {
		return
	}
	if contentErr != nil {
		writeDetail(w, http.StatusBadRequest, contentDetail{
			Message:     insufficientContentMessage,
			Diagnostics: contentErr.Diagnostics,
			Errors:      contentErr.Errors,
		})
		return
	}

	if s.outputDir != "" {
		if path, err := s.writeOutput(run); err != nil {
			s.logger.Warn("failed to write knowledge base", "error", err)
		} else {
			s.logger.Info("knowledge base written", "path", path)
		}
	}
	writeAttachment(w, "text/markdown; charset=utf-8", "knowledgebase.md", []byte(run.Markdown), 0)
}

// writeOutput stores the knowledge base as {host-slug}__{timestamp}.md.
func (s *Server) writeOutput(run *model.Run) (string, error) {
	host := urlnorm.Hostname(run.StartURL)
	if host == "" {
		host = "output"
	}
	name := report.Slugify(host) + "__" + s.now().UTC().Format("20060102_150405") + ".md"

	if err := os.MkdirAll(s.outputDir, 0750); err != nil {
		return "", err
	}
	path := filepath.Join(s.outputDir, name)
	if err := os.WriteFile(path, []byte(run.Markdown), 0600); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) handleCrawlPreview(w http.ResponseWriter, r *http.Request) {
	run, _, ok := s.crawl(w, r)
	if !ok {
		return
	}
	if len(run.Pages) == 0 {
		writeDetail(w, http.StatusBadRequest, "No pages found for this configuration.")
		return
	}

	items := make([]PreviewItem, 0, len(run.Pages))
	for i, p := range run.Pages {
		items = append(items, PreviewItem{
			ID:                i,
			URL:               p.URL,
			Host:              p.Host,
			Path:              p.Path,
			Title:             p.Title,
			SuggestedFilename: report.PageFilename(p),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	run := s.LastRun()
	if run == nil && s.history != nil {
		latest, err := s.history.Latest(r.Context())
		if err != nil {
			s.logger.Warn("failed to load last run", "error", err)
		}
		run = latest
	}
	writeJSON(w, http.StatusOK, lastRunInfo(run))
}

func lastRunInfo(run *model.Run) LastRunInfo {
	info := LastRunInfo{
		Errors:      make([]model.ErrorRecord, 0),
		Diagnostics: make([]model.DiagnosticRecord, 0),
	}
	if run == nil {
		return info
	}
	stats := run.Stats()
	info.Errors = append(info.Errors, run.Errors...)
	info.Diagnostics = append(info.Diagnostics, run.Diagnostics...)
	info.PagesCount = stats.PagesCount
	info.ThinPagesCount = stats.ThinPagesCount
	info.TotalChars = stats.TotalChars
	info.SkippedLinks = stats.SkippedLinks
	info.TimedOut = stats.TimedOut
	return info
}

func (s *Server) handleUsage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(usage))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.version)
}

const usage = `webkb: turn a website into a markdown knowledge base

POST /generate            form: url, max_pages, max_depth, allowed_hosts, path_prefixes,
                          include_subdomains, respect_robots, use_sitemap, strip_links,
                          strip_images, readability_fallback, min_text_chars
POST /crawl-preview       same form, returns the pages found as JSON
POST /download-selected   JSON: crawl options plus pages [{url, filename, host, title, path}]
POST /bulk/combined       JSON: {urls, allowed_hosts, path_prefixes, options}
POST /bulk/zip            same body, returns a zip with an index.md
POST /import?mode=combined|zip   multipart field "files"
GET  /debug/last-run      ledgers of the latest crawl
GET  /healthz
GET  /version
`
