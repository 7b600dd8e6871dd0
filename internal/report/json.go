package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/webkb/internal/model"
)

// JSONWriter outputs run reports as JSON for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string

	// withMarkdown includes page bodies in the output.
	withMarkdown bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithPageMarkdown includes every page's markdown in the report.
func WithPageMarkdown(include bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.withMarkdown = include
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	Stats       model.RunStats           `json:"stats"`
	Pages       []JSONPage               `json:"pages"`
	Errors      []model.ErrorRecord      `json:"errors"`
	Diagnostics []model.DiagnosticRecord `json:"diagnostics"`
}

// JSONPage is one page of a JSONReport.
type JSONPage struct {
	URL             string `json:"url"`
	Host            string `json:"host"`
	Path            string `json:"path"`
	Title           string `json:"title"`
	CleanTextChars  int    `json:"clean_text_chars"`
	UsedReadability bool   `json:"used_readability"`
	ContentHash     string `json:"content_hash"`
	Markdown        string `json:"markdown,omitempty"`
}

// NewJSONReport builds the JSON document of run.
func NewJSONReport(run *model.Run, withMarkdown bool) *JSONReport {
	pages := make([]JSONPage, len(run.Pages))
	for i, p := range run.Pages {
		pages[i] = JSONPage{
			URL:             p.URL,
			Host:            p.Host,
			Path:            p.Path,
			Title:           p.Title,
			CleanTextChars:  p.CleanTextChars,
			UsedReadability: p.UsedReadability,
			ContentHash:     p.ContentHash(),
		}
		if withMarkdown {
			pages[i].Markdown = p.Markdown
		}
	}
	return &JSONReport{
		Stats:       run.Stats(),
		Pages:       pages,
		Errors:      run.Errors,
		Diagnostics: run.Diagnostics,
	}
}

// Write outputs the run report.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	return w.writeJSON(NewJSONReport(run, w.withMarkdown))
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
