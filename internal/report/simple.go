package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/webkb/internal/model"
)

// SimpleWriter outputs plain text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds the diagnostic ledger.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose adds one line per diagnostic record.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run report.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder
	stats := run.Stats()

	rule(&sb, "=")
	sb.WriteString("                           WEBKB CRAWL REPORT\n")
	rule(&sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Start URL:      %s\n", run.StartURL)
	fmt.Fprintf(&sb, "Started:        %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Pages:          %d (%d thin)\n", stats.PagesCount, stats.ThinPagesCount)
	fmt.Fprintf(&sb, "Total chars:    %d\n", stats.TotalChars)
	fmt.Fprintf(&sb, "Skipped links:  %d\n", stats.SkippedLinks)
	fmt.Fprintf(&sb, "Status:         %s\n", statusText(run))
	sb.WriteString("\n")

	if len(run.Errors) > 0 {
		section(&sb, fmt.Sprintf("ERRORS (%d)", len(run.Errors)))
		order, counts := reasonCounts(run.Errors)
		for _, reason := range order {
			fmt.Fprintf(&sb, "  %-18s %d\n", reason, counts[reason])
		}
		sb.WriteString("\n")
		for _, e := range run.Errors {
			if e.Status != "" {
				fmt.Fprintf(&sb, "  [-] %s (%s %s)\n", e.URL, e.Reason, e.Status)
			} else {
				fmt.Fprintf(&sb, "  [-] %s (%s)\n", e.URL, e.Reason)
			}
		}
		sb.WriteString("\n")
	}

	if w.verbose && len(run.Diagnostics) > 0 {
		section(&sb, "DIAGNOSTICS")
		for _, d := range run.Diagnostics {
			status := d.Status
			if status == "" {
				status = "---"
			}
			fmt.Fprintf(&sb, "  %s %-18s %6dms %8dB %s\n", status, d.Reason, d.ElapsedMS, d.Bytes, d.URL)
		}
		sb.WriteString("\n")
	}

	rule(&sb, "=")
	return w.output.Write([]byte(sb.String()))
}

func rule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}

func section(sb *strings.Builder, title string) {
	rule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	rule(sb, "-")
	sb.WriteString("\n")
}
