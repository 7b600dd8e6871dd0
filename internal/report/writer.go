package report

import (
	"io"

	"github.com/nao1215/webkb/internal/model"
)

// Writer renders the report of a crawl run.
type Writer interface {
	// Write outputs the report of run and returns the bytes written.
	Write(run *model.Run) (int, error)
}

// MultiWriter writes the same report to several Writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every Writer in order and stops at the first
// error. It returns the total bytes written.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter holds the output destination shared by all writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// reasonCounts tallies the error ledger by reason, in first-seen order.
func reasonCounts(errs []model.ErrorRecord) ([]model.Reason, map[model.Reason]int) {
	order := make([]model.Reason, 0)
	counts := make(map[model.Reason]int)
	for _, e := range errs {
		if counts[e.Reason] == 0 {
			order = append(order, e.Reason)
		}
		counts[e.Reason]++
	}
	return order, counts
}

// truncateString shortens s to maxLen runes, ending with "...".
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
