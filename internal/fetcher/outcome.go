package fetcher

import (
	"strconv"
	"time"

	"github.com/nao1215/webkb/internal/model"
)

// Kind tells the retry loop what to do with an attempt.
type Kind int

const (
	// Success carries an HTML body.
	Success Kind = iota
	// Retryable failed in a way another attempt may fix
	// (timeouts, transport errors, 408/425/429/5xx gateways).
	Retryable
	// Fatal failed for good (other 4xx/5xx, non-HTML content).
	Fatal
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of a single attempt, and after the retry
// loop, of the whole fetch.
type Outcome struct {
	Kind Kind

	// Body is the UTF-8 HTML text. Set only on Success.
	Body string

	// URL is the requested URL and FinalURL the URL after redirects.
	URL      string
	FinalURL string

	// Reason classifies failures. It is model.ReasonOK on Success.
	Reason model.Reason

	// Status is the HTTP status code, 0 when no response arrived.
	Status int

	ContentType string
	Bytes       int
	Elapsed     time.Duration

	// Attempts is the number of requests issued.
	Attempts int
}

// OK reports whether the outcome carries a usable body.
func (o Outcome) OK() bool {
	return o.Kind == Success
}

// statusText renders the status for the ledgers: empty when no response arrived.
func (o Outcome) statusText() string {
	if o.Status == 0 {
		return ""
	}
	return strconv.Itoa(o.Status)
}

// Diagnostic converts the outcome into its diagnostic ledger entry.
func (o Outcome) Diagnostic() model.DiagnosticRecord {
	finalURL := o.FinalURL
	if finalURL == "" {
		finalURL = o.URL
	}
	return model.DiagnosticRecord{
		URL:         o.URL,
		FinalURL:    finalURL,
		Status:      o.statusText(),
		ContentType: o.ContentType,
		Bytes:       o.Bytes,
		ElapsedMS:   o.Elapsed.Milliseconds(),
		Reason:      o.Reason,
	}
}

// ErrorRecord converts a failed outcome into its error ledger entry.
// It returns false for successful outcomes.
func (o Outcome) ErrorRecord() (model.ErrorRecord, bool) {
	if o.OK() {
		return model.ErrorRecord{}, false
	}
	return model.ErrorRecord{URL: o.URL, Reason: o.Reason, Status: o.statusText()}, true
}
