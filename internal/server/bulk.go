package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/webkb/internal/config"
	"github.com/nao1215/webkb/internal/crawler"
	"github.com/nao1215/webkb/internal/mdnorm"
	"github.com/nao1215/webkb/internal/model"
	"github.com/nao1215/webkb/internal/pipeline"
	"github.com/nao1215/webkb/internal/report"
)

const noBulkPagesMessage = "No pages could be processed for the provided URLs."

// BulkRequest is the body of the /bulk routes. allowed_hosts and
// path_prefixes may be lists or comma separated strings.
type BulkRequest struct {
	URLs         []any          `json:"urls"`
	AllowedHosts any            `json:"allowed_hosts"`
	PathPrefixes any            `json:"path_prefixes"`
	Options      map[string]any `json:"options"`
}

// SelectedPage is one entry of a /download-selected request.
type SelectedPage struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Host     string `json:"host"`
	Title    string `json:"title"`
	Path     string `json:"path"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

// stringList reads a JSON value that is either a list or a separated string.
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return config.ParseList(fmt.Sprint(t))
	}
}

// bulkPages validates req, then fetches and cleans every URL with bounded
// concurrency. Scope is derived from the first URL.
func (s *Server) bulkPages(r *http.Request, req BulkRequest) ([]*model.PageRecord, error) {
	raw := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u != nil {
			raw = append(raw, fmt.Sprint(u))
		}
	}
	urls, err := config.ValidateURLs(raw)
	if err != nil {
		return nil, err
	}

	cfg := config.BulkConfig(urls, stringList(req.AllowedHosts), stringList(req.PathPrefixes), req.Options, s.base)
	spider, err := crawler.NewSpider(cfg, s.spiderOptions()...)
	if err != nil {
		return nil, err
	}

	bp := pipeline.NewBatchProcessor(spider,
		pipeline.WithConcurrency(cfg.MaxConcurrentRequests),
		pipeline.WithBatchLogger(s.logger),
	)
	results, err := bp.ProcessBatch(r.Context(), urls)
	if err != nil {
		return nil, err
	}
	return pipeline.Pages(results), nil
}

func (s *Server) readBulk(w http.ResponseWriter, r *http.Request) ([]*model.PageRecord, bool) {
	var req BulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON body.")
		return nil, false
	}
	pages, err := s.bulkPages(r, req)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, userMessage(err))
		return nil, false
	}
	if len(pages) == 0 {
		writeDetail(w, http.StatusBadRequest, noBulkPagesMessage)
		return nil, false
	}
	return pages, true
}

func (s *Server) handleBulkCombined(w http.ResponseWriter, r *http.Request) {
	pages, ok := s.readBulk(w, r)
	if !ok {
		return
	}
	writeAttachment(w, "text/markdown; charset=utf-8", "bulk_combined.md", []byte(report.Grouped(pages)), len(pages))
}

func (s *Server) handleBulkZip(w http.ResponseWriter, r *http.Request) {
	pages, ok := s.readBulk(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := make([]report.IndexEntry, 0, len(pages))
	for _, p := range pages {
		name := report.PageFilename(p)
		if err := writeZipEntry(zw, name, p.Markdown); err != nil {
			s.logger.Error("failed to build zip", "error", err)
			writeDetail(w, http.StatusInternalServerError, "Failed to build archive.")
			return
		}
		entries = append(entries, report.IndexEntry{Host: p.Host, Title: p.Heading(), Filename: name})
	}
	if err := writeZipEntry(zw, "index.md", report.Index(entries)); err != nil {
		s.logger.Error("failed to build zip", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to build archive.")
		return
	}
	if err := zw.Close(); err != nil {
		s.logger.Error("failed to build zip", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to build archive.")
		return
	}
	writeAttachment(w, "application/zip", "bulk_pages.zip", buf.Bytes(), len(pages))
}

// handleDownloadSelected fetches pages picked from a crawl preview. Each
// page is re-checked against robots.txt and the scope of the crawl
// options in the body.
func (s *Server) handleDownloadSelected(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeJSON(w, r, &raw); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	selection, err := selectedPages(raw["pages"])
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid page selection.")
		return
	}

	form := formValues(raw)
	if strings.TrimSpace(form.Get("url")) == "" {
		writeDetail(w, http.StatusBadRequest, "URL is required.")
		return
	}
	if len(selection) == 0 {
		writeDetail(w, http.StatusBadRequest, "No pages selected.")
		return
	}
	cfg, err := s.crawlConfig(form)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, userMessage(err))
		return
	}
	spider, err := crawler.NewSpider(cfg, s.spiderOptions()...)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, userMessage(err))
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	added := 0
	for _, sel := range selection {
		if sel.URL == "" {
			continue
		}
		if !spider.CanVisit(r.Context(), sel.URL) {
			continue
		}
		page, err := spider.FetchAndClean(r.Context(), sel.URL)
		if err != nil {
			s.logger.Warn("selected page failed", "url", sel.URL, "error", err)
			continue
		}

		name := sel.Filename
		if name == "" {
			name = "page-" + strconv.Itoa(added) + ".md"
		}
		host := sel.Host
		if host == "" {
			host = page.Host
		}
		heading := sel.Title
		if heading == "" {
			heading = sel.Path
		}
		if heading == "" {
			heading = page.Title
		}
		body := mdnorm.Normalize("# " + host + "\n## " + heading + "\n\n" + page.Markdown)
		if err := writeZipEntry(zw, name, body); err != nil {
			s.logger.Error("failed to build zip", "error", err)
			writeDetail(w, http.StatusInternalServerError, "Failed to build archive.")
			return
		}
		added++
	}
	if err := zw.Close(); err != nil {
		s.logger.Error("failed to build zip", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to build archive.")
		return
	}
	if added == 0 {
		writeDetail(w, http.StatusBadRequest, "No pages could be downloaded with the provided selection.")
		return
	}
	writeAttachment(w, "application/zip", "knowledgebase_pages.zip", buf.Bytes(), added)
}

func selectedPages(v any) ([]SelectedPage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var pages []SelectedPage
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// formValues flattens a JSON object into form fields so JSON requests share
// the form validation. Lists become comma separated values.
func formValues(raw map[string]any) url.Values {
	form := url.Values{}
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
		case string:
			form.Set(k, t)
		case bool:
			form.Set(k, strconv.FormatBool(t))
		case float64:
			form.Set(k, strconv.FormatFloat(t, 'f', -1, 64))
		case []any:
			form.Set(k, strings.Join(stringList(t), ","))
		}
	}
	return form
}

func writeZipEntry(zw *zip.Writer, name, content string) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write([]byte(content))
	return err
}
