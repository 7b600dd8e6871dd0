// Package crawlertest serves fixed sites to crawler tests under public host
// names, so the SSRF guard stays enabled while requests reach httptest.
package crawlertest

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// PublicIP is the address Resolver returns for unlisted hosts.
const PublicIP = "93.184.216.34"

// Resolver answers with PublicIP unless the host is listed.
type Resolver map[string]string

// LookupIPAddr implements politeness.Resolver.
func (r Resolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	if ip, ok := r[host]; ok {
		return []net.IPAddr{{IP: net.ParseIP(ip)}}, nil
	}
	return []net.IPAddr{{IP: net.ParseIP(PublicIP)}}, nil
}

// Site serves documents keyed by path and counts requests per path.
type Site struct {
	srv  *httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

// NewSite starts a server for docs. It is closed when the test ends.
func NewSite(t *testing.T, docs map[string]string) *Site {
	t.Helper()

	s := &Site{hits: make(map[string]int)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()

		body, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch {
		case r.URL.Path == "/robots.txt":
			w.Header().Set("Content-Type", "text/plain")
		case strings.HasSuffix(r.URL.Path, ".xml"):
			w.Header().Set("Content-Type", "application/xml")
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

// Hits returns the number of requests for path.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Client returns a client that dials the site whatever host a URL names.
func (s *Site) Client() *http.Client {
	addr := s.srv.Listener.Addr().String()
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}

// Page renders an HTML document with a title, one paragraph in <main> and
// the given links.
func Page(title, body string, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + title + "</title></head><body><main>")
	b.WriteString("<p>" + body + "</p>")
	for _, l := range links {
		b.WriteString(`<a href="` + l + `">link</a>`)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}
