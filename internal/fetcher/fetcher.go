package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/webkb/internal/model"
	"github.com/nao1215/webkb/internal/politeness"
	"github.com/nao1215/webkb/internal/urlnorm"
)

// DefaultUserAgent is a desktop Chrome User-Agent. Many sites serve reduced
// or blocked pages to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 2

	// DefaultMaxBodySize caps decoded response bodies.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	defaultTimeout = 10 * time.Second
)

// retryStatuses are answered with another attempt while retries remain.
var retryStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooEarly:            true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Fetcher performs polite HTTP GETs and classifies the results.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	maxRetries  int
	proxyURL    string
	limiter     *HostLimiter
	backoff     func(attempt int) time.Duration
	headers     map[string]string
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client. The client's own timeout and
// transport are used as-is.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize caps the decoded body size.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRetries = n
		}
	}
}

// WithProxyURL routes requests through an http, https, socks5 or socks5h proxy.
// The dial-time address check is not installed then, because the dialed
// address is the proxy's. Callers must check target hosts before fetching.
func WithProxyURL(raw string) Option {
	return func(f *Fetcher) {
		f.proxyURL = strings.TrimSpace(raw)
	}
}

// WithRequestsPerSecond limits requests per host. Zero disables the limit.
func WithRequestsPerSecond(rps float64) Option {
	return func(f *Fetcher) {
		f.limiter = NewHostLimiter(rps, 1)
	}
}

// WithHeaders adds request headers. They override the defaults, except
// User-Agent which is set with WithUserAgent.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// WithBackoff replaces the delay computed before retry number attempt+1.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(f *Fetcher) {
		if fn != nil {
			f.backoff = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Fetcher. Without WithHTTPClient it builds a transport that
// refuses to dial private addresses and honours WithProxyURL.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		userAgent:   DefaultUserAgent,
		timeout:     defaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		maxRetries:  DefaultMaxRetries,
		backoff:     Backoff,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.timeout <= 0 {
		f.timeout = defaultTimeout
	}

	if f.client == nil {
		transport, err := newTransport(f.timeout, f.proxyURL)
		if err != nil {
			return nil, err
		}
		f.client = &http.Client{Timeout: f.timeout, Transport: transport}
	}
	return f, nil
}

func newTransport(timeout time.Duration, proxyURL string) (*http.Transport, error) {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if proxyURL == "" {
		dialer.Control = politeness.DialControl
		transport.DialContext = dialer.DialContext
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
		transport.DialContext = dialer.DialContext
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, dialer)
		if err != nil {
			return nil, fmt.Errorf("socks proxy: %w", err)
		}
		if cd, ok := d.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return d.Dial(network, addr)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return transport, nil
}

// Backoff returns 0.5s doubled per attempt with ±50ms of jitter, never negative.
func Backoff(attempt int) time.Duration {
	base := 0.5 * math.Pow(2, float64(attempt))
	jitter := rand.Float64()*0.1 - 0.05 //nolint:gosec // jitter does not need a CSPRNG
	return time.Duration(math.Max(0, base+jitter) * float64(time.Second))
}

// Fetch downloads rawURL, retrying retryable failures with backoff. The
// returned outcome is never Retryable: exhausted retries become Fatal with
// the last attempt's reason.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Outcome {
	var out Outcome
	for attempt := 0; ; attempt++ {
		out = f.attempt(ctx, rawURL)
		out.Attempts = attempt + 1
		if out.Kind != Retryable || attempt >= f.maxRetries {
			break
		}

		delay := f.backoff(attempt)
		f.logger.Debug("retrying fetch",
			"url", rawURL,
			"reason", out.Reason,
			"status", out.Status,
			"attempt", attempt+1,
			"delay", delay,
		)
		if err := sleep(ctx, delay); err != nil {
			break
		}
	}
	if out.Kind == Retryable {
		out.Kind = Fatal
	}

	if out.OK() {
		f.logger.Debug("fetched page", "url", rawURL, "status", out.Status, "bytes", out.Bytes)
	} else {
		f.logger.Info("fetch failed", "url", rawURL, "reason", out.Reason, "status", out.Status)
	}
	return out
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string) (out Outcome) {
	start := time.Now()
	out = Outcome{URL: rawURL, FinalURL: rawURL}
	defer func() {
		out.Elapsed = time.Since(start)
	}()

	if err := f.limiter.Wait(ctx, urlnorm.Hostname(rawURL)); err != nil {
		out.Kind = Fatal
		out.Reason = model.ReasonTimeout
		return out
	}

	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		out.Kind = Fatal
		out.Reason = model.ReasonHTTPError
		return out
	}

	resp, err := f.client.Do(req)
	if err != nil {
		out.Kind = Retryable
		out.Reason = transportReason(err)
		if ctx.Err() != nil {
			out.Kind = Fatal
		}
		f.logger.Debug("request failed", "url", rawURL, "error", err)
		return out
	}
	defer resp.Body.Close()

	out.Status = resp.StatusCode
	out.ContentType = resp.Header.Get("Content-Type")
	if resp.Request != nil && resp.Request.URL != nil {
		out.FinalURL = resp.Request.URL.String()
	}

	body, err := readBody(resp, f.maxBodySize)
	if err != nil {
		out.Kind = Retryable
		out.Reason = transportReason(err)
		return out
	}
	out.Bytes = len(body)

	switch {
	case retryStatuses[resp.StatusCode]:
		out.Kind = Retryable
		out.Reason = statusReason(resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		out.Kind = Fatal
		out.Reason = statusReason(resp.StatusCode)
	case !isHTML(out.ContentType):
		out.Kind = Fatal
		out.Reason = model.ReasonNonHTML
	default:
		out.Kind = Success
		out.Reason = model.ReasonOK
		out.Body = decodeText(body, out.ContentType)
	}
	return out
}

// Get performs a single GET without retries or classification. It serves
// robots.txt and sitemap requests.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	if err := f.limiter.Wait(ctx, urlnorm.Hostname(rawURL)); err != nil {
		return 0, nil, err
	}
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return 0, nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp, f.maxBodySize)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (f *Fetcher) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range f.headers {
		if strings.EqualFold(k, "User-Agent") || strings.EqualFold(k, "Accept-Encoding") {
			continue
		}
		req.Header.Set(k, v)
	}
	return req, nil
}

// statusReason maps an error status to its ledger reason.
func statusReason(status int) model.Reason {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return model.ReasonBlocked
	default:
		return model.ReasonHTTPError
	}
}

// transportReason maps a transport error to its ledger reason.
func transportReason(err error) model.Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.ReasonTimeout
	}
	return model.ReasonHTTPError
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
