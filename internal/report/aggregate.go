package report

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/webkb/internal/mdnorm"
	"github.com/nao1215/webkb/internal/model"
)

// MaxSummaryErrors bounds the sample errors listed in the summary block.
const MaxSummaryErrors = 20

// unknownHost labels pages without a host when no fallback is given.
const unknownHost = "unknown host"

// Combine assembles the knowledge base of a run: a crawl-summary HTML
// comment followed by one "# host" section per host, sorted, each holding
// a "## title" subsection per page. fallbackHost labels pages without a
// host. The result is a fixed point of mdnorm.Normalize.
func Combine(run *model.Run, fallbackHost string) string {
	var b strings.Builder
	writeSummary(&b, run)

	groups, hosts := groupByHost(run.Pages, fallbackHost)
	slices.Sort(hosts)
	if body := renderHosts(groups, hosts); body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}
	return mdnorm.Normalize(b.String())
}

func writeSummary(b *strings.Builder, run *model.Run) {
	b.WriteString("<!-- Crawl summary:\n")
	fmt.Fprintf(b, "Total pages: %d\n", len(run.Pages))
	fmt.Fprintf(b, "Errors: %d\n", len(run.Errors))
	for i, e := range run.Errors {
		if i == MaxSummaryErrors {
			break
		}
		if e.Status != "" {
			fmt.Fprintf(b, "  - %s (%s %s)\n", e.URL, e.Reason, e.Status)
		} else {
			fmt.Fprintf(b, "  - %s (%s)\n", e.URL, e.Reason)
		}
	}
	fmt.Fprintf(b, "Skipped links: %d\n", run.SkippedLinks)
	if run.TimedOut {
		fmt.Fprintf(b, "Crawl timed out after %s seconds.\n",
			strconv.FormatFloat(run.CrawlTimeout.Round(time.Second).Seconds(), 'f', 0, 64))
	}
	b.WriteString("-->")
}

// Grouped renders pages under "# host" headings with hosts in first-seen
// order and no summary block. Bulk exports use it.
func Grouped(pages []*model.PageRecord) string {
	groups, hosts := groupByHost(pages, "")
	return mdnorm.Normalize(renderHosts(groups, hosts))
}

// groupByHost buckets pages by host and returns the hosts in first-seen
// order.
func groupByHost(pages []*model.PageRecord, fallbackHost string) (map[string][]*model.PageRecord, []string) {
	if fallbackHost == "" {
		fallbackHost = unknownHost
	}
	groups := make(map[string][]*model.PageRecord)
	hosts := make([]string, 0)
	for _, p := range pages {
		host := p.Host
		if host == "" {
			host = fallbackHost
		}
		if _, ok := groups[host]; !ok {
			hosts = append(hosts, host)
		}
		groups[host] = append(groups[host], p)
	}
	return groups, hosts
}

func renderHosts(groups map[string][]*model.PageRecord, hosts []string) string {
	sections := make([]string, 0, len(hosts))
	for _, host := range hosts {
		entries := []string{"# " + host}
		for _, p := range groups[host] {
			entry := "## " + p.Heading()
			if body := strings.TrimSpace(p.Markdown); body != "" {
				entry += "\n\n" + body
			}
			entries = append(entries, entry)
		}
		sections = append(sections, strings.Join(entries, "\n\n"))
	}
	return strings.Join(sections, "\n\n---\n\n")
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases value and joins its alphanumeric runs with "-".
// It returns "page" when nothing is left.
func Slugify(value string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(value), "-"), "-")
	if slug == "" {
		return "page"
	}
	return slug
}

// PageFilename is the export file name of a page: host__slug.md, where
// the slug comes from the title, path or URL.
func PageFilename(p *model.PageRecord) string {
	return p.Host + "__" + Slugify(p.Heading()) + ".md"
}

// IndexEntry is one line of an export index.
type IndexEntry struct {
	Host     string
	Title    string
	Filename string
}

// Index renders the index.md of a zip export: "# Index" followed by one
// "## host" list of links per host, hosts sorted.
func Index(entries []IndexEntry) string {
	groups := make(map[string][]IndexEntry)
	hosts := make([]string, 0)
	for _, e := range entries {
		if _, ok := groups[e.Host]; !ok {
			hosts = append(hosts, e.Host)
		}
		groups[e.Host] = append(groups[e.Host], e)
	}
	slices.Sort(hosts)

	lines := []string{"# Index", ""}
	for _, host := range hosts {
		lines = append(lines, "## "+host)
		for _, e := range groups[host] {
			if e.Filename == "" {
				continue
			}
			title := e.Title
			if title == "" {
				title = e.Filename
			}
			lines = append(lines, fmt.Sprintf("- [%s](%s)", title, e.Filename))
		}
		lines = append(lines, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}
