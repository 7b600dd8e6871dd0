package pipeline

import (
	"errors"
	"fmt"

	"github.com/nao1215/webkb/internal/model"
)

// MaxContentErrorSamples bounds the ledger entries carried by ContentError.
const MaxContentErrorSamples = 10

// ErrInsufficientContent is returned when a run collected no pages or less
// text than the configured minimum.
var ErrInsufficientContent = errors.New("crawl produced too little content")

// ContentError wraps ErrInsufficientContent with the first entries of the
// run's error and diagnostic ledgers.
type ContentError struct {
	PagesCount  int
	TotalChars  int
	Errors      []model.ErrorRecord
	Diagnostics []model.DiagnosticRecord
}

func newContentError(run *model.Run) *ContentError {
	return &ContentError{
		PagesCount:  len(run.Pages),
		TotalChars:  run.TotalChars(),
		Errors:      head(run.Errors, MaxContentErrorSamples),
		Diagnostics: head(run.Diagnostics, MaxContentErrorSamples),
	}
}

// Error implements error.
func (e *ContentError) Error() string {
	return fmt.Sprintf("%s: %d pages, %d chars", ErrInsufficientContent, e.PagesCount, e.TotalChars)
}

// Unwrap lets errors.Is match ErrInsufficientContent.
func (e *ContentError) Unwrap() error {
	return ErrInsufficientContent
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	return append(make([]T, 0, len(s)), s...)
}
