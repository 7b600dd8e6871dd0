package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/webkb/internal/model"
)

// MarkdownWriter renders a run report as GitHub-flavored markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run report.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)
	stats := run.Stats()

	w.writeHeader(md, run, stats)
	w.writePages(md, run)
	w.writeErrors(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run, stats model.RunStats) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + run.StartURL + "`"},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", stats.Elapsed.Round(time.Millisecond).String()},
			{"Pages", strconv.Itoa(stats.PagesCount)},
			{"Thin pages", strconv.Itoa(stats.ThinPagesCount)},
			{"Total chars", strconv.Itoa(stats.TotalChars)},
			{"Errors", strconv.Itoa(stats.ErrorsCount)},
			{"Skipped links", strconv.Itoa(stats.SkippedLinks)},
			{"Status", statusText(run)},
		},
	})
	md.PlainText("")

	switch {
	case stats.PagesCount == 0:
		md.Cautionf("The crawl collected no pages. %d error(s) were recorded.", stats.ErrorsCount)
	case run.TimedOut:
		md.Warningf("The crawl budget of %s ran out; the knowledge base is partial.", run.CrawlTimeout)
	case stats.ErrorsCount > 0:
		md.Importantf("%d URL(s) could not be collected.", stats.ErrorsCount)
	default:
		md.Tip("Every visited URL was collected.")
	}
	md.PlainText("")
}

func statusText(run *model.Run) string {
	switch {
	case run.TimedOut:
		return "Timed out (partial results)"
	case len(run.Pages) == 0:
		return "No content"
	default:
		return "Complete"
	}
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, run *model.Run) {
	md.H2("Pages")
	md.PlainText("")

	if len(run.Pages) == 0 {
		md.PlainText("No pages collected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(run.Pages))
	for i, p := range run.Pages {
		readability := "-"
		if p.UsedReadability {
			readability = "yes"
		}
		rows[i] = []string{
			truncateString(p.Heading(), 50),
			p.Host,
			truncateString(p.Path, 50),
			strconv.Itoa(p.CleanTextChars),
			readability,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Title", "Host", "Path", "Chars", "Readability"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, run *model.Run) {
	md.H2("Errors")
	md.PlainText("")

	if len(run.Errors) == 0 {
		md.PlainText("No errors recorded.")
		md.PlainText("")
		return
	}

	order, counts := reasonCounts(run.Errors)
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Errors by reason"),
		piechart.WithShowData(true),
	)
	for _, reason := range order {
		chart.LabelAndIntValue(reason.String(), uint64(counts[reason])) //nolint:gosec // counts are positive
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	rows := make([][]string, 0, len(run.Errors))
	for _, e := range run.Errors {
		status := e.Status
		if status == "" {
			status = "-"
		}
		rows = append(rows, []string{truncateString(e.URL, 80), e.Reason.String(), status})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [webkb](https://github.com/nao1215/webkb)*")
}

// HistoryRow is one stored run summary with its database ID.
type HistoryRow struct {
	ID    int64
	Stats model.RunStats
}

// WriteHistory renders stored run summaries as a markdown table, newest
// first as given.
func WriteHistory(output io.Writer, runs []HistoryRow) error {
	md := markdown.NewMarkdown(output)
	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return md.Build()
	}

	rows := make([][]string, len(runs))
	for i, row := range runs {
		r := row.Stats
		timedOut := "-"
		if r.TimedOut {
			timedOut = "yes"
		}
		rows[i] = []string{
			strconv.FormatInt(row.ID, 10),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			truncateString(r.StartURL, 60),
			strconv.Itoa(r.PagesCount),
			strconv.Itoa(r.TotalChars),
			strconv.Itoa(r.ErrorsCount),
			timedOut,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Start URL", "Pages", "Chars", "Errors", "Timed out"},
		Rows:   rows,
	})
	return md.Build()
}
