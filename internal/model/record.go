package model

// Reason classifies the terminal outcome of a URL.
type Reason string

// Failure and success reasons recorded in the error and diagnostic ledgers.
const (
	// ReasonOK marks a successful fetch in the diagnostic ledger.
	ReasonOK Reason = "ok"
	// ReasonBlocked is recorded for 401, 403 and 429 responses.
	ReasonBlocked Reason = "blocked"
	// ReasonHTTPError is recorded for other 4xx/5xx responses and transport failures.
	ReasonHTTPError Reason = "http-error"
	// ReasonNonHTML is recorded when the content type is not HTML or XHTML.
	ReasonNonHTML Reason = "non-html"
	// ReasonTimeout is recorded when every attempt timed out.
	ReasonTimeout Reason = "timeout"
	// ReasonRobotsDisallowed is recorded when robots.txt forbids the path.
	ReasonRobotsDisallowed Reason = "robots-disallowed"
	// ReasonBlockedHost is recorded when the SSRF guard rejects the host.
	ReasonBlockedHost Reason = "blocked-host"
)

// String implements fmt.Stringer.
func (r Reason) String() string {
	return string(r)
}

// ErrorRecord is one entry of the append-only error ledger.
type ErrorRecord struct {
	URL    string `json:"url"`
	Reason Reason `json:"reason"`
	// Status is the HTTP status code as text, empty when no response arrived.
	Status string `json:"status"`
}

// DiagnosticRecord describes the terminal outcome of one fetch, including
// the final attempt of a retried request.
type DiagnosticRecord struct {
	URL         string `json:"url"`
	FinalURL    string `json:"final_url"`
	Status      string `json:"status"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
	ElapsedMS   int64  `json:"elapsed_ms"`
	Reason      Reason `json:"reason"`
}

// NewSkipRecords builds the error and diagnostic entries for a URL that was
// refused before any request was sent.
func NewSkipRecords(url string, reason Reason) (ErrorRecord, DiagnosticRecord) {
	return ErrorRecord{URL: url, Reason: reason},
		DiagnosticRecord{URL: url, FinalURL: url, Reason: reason}
}
