package extract

import (
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/nao1215/webkb/internal/mdnorm"
)

// DefaultMainSelectors are tried in order to find the main content region.
var DefaultMainSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	"#content",
	".content",
	".main",
	".main-content",
	".article",
	".post",
	".entry-content",
}

var (
	noiseTags      = "script, style, nav, footer, header, aside"
	extraNoiseTags = "form, noscript, svg, iframe"
)

// Options controls extraction.
type Options struct {
	// StripLinks keeps link text and drops the target.
	StripLinks bool
	// StripImages drops images entirely.
	StripImages bool
	// RemoveAdditionalNoise also strips forms, noscript, svg and iframes.
	RemoveAdditionalNoise bool
	// ReadabilityFallback enables the readability pass.
	ReadabilityFallback bool
	// MinTextChars is the visible-text length under which the readability
	// pass runs.
	MinTextChars int
	// MainSelectors overrides DefaultMainSelectors.
	MainSelectors []string
}

// DefaultOptions returns the options used by the crawler when nothing is configured.
func DefaultOptions() Options {
	return Options{
		RemoveAdditionalNoise: true,
		ReadabilityFallback:   true,
		MinTextChars:          600,
	}
}

// Result is the cleaned form of a page.
type Result struct {
	Title           string
	Markdown        string
	UsedReadability bool
}

// Extractor turns HTML into a title and normalized markdown.
// It is safe for concurrent use; each call parses its own tree.
type Extractor struct {
	opts      Options
	selectors []string
	conv      *converter.Converter
	logger    *slog.Logger
}

// New creates an Extractor.
func New(opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinTextChars < 0 {
		opts.MinTextChars = 0
	}
	selectors := opts.MainSelectors
	if len(selectors) == 0 {
		selectors = DefaultMainSelectors
	}
	return &Extractor{
		opts:      opts,
		selectors: selectors,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
	}
}

// Clean extracts the title and markdown of rawHTML. pageURL resolves
// relative links and is the title of last resort.
func (e *Extractor) Clean(rawHTML, pageURL string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Result{Title: pageURL, Markdown: mdnorm.Normalize("")}
	}
	e.removeNoise(doc.Selection)

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = pageURL
	}

	region := e.selectMainArea(doc)
	usedReadability := false

	if e.opts.ReadabilityFallback && VisibleTextLength(region) < e.opts.MinTextChars {
		if fallback, short, ok := e.readability(rawHTML, pageURL); ok {
			region = fallback
			if short != "" {
				title = short
			}
			usedReadability = true
		}
	}

	return Result{
		Title:           title,
		Markdown:        e.toMarkdown(region, pageURL),
		UsedReadability: usedReadability,
	}
}

// readability runs the readability pass over the original HTML and returns
// the re-cleaned main region with the article's short title.
func (e *Extractor) readability(rawHTML, pageURL string) (*goquery.Selection, string, bool) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", false
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil {
		e.logger.Debug("readability failed", "url", pageURL, "error", err)
		return nil, "", false
	}
	content := strings.TrimSpace(article.Content)
	if content == "" {
		return nil, "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, "", false
	}
	e.removeNoise(doc.Selection)
	return e.selectMainArea(doc), strings.TrimSpace(article.Title), true
}

func (e *Extractor) removeNoise(s *goquery.Selection) {
	s.Find(noiseTags).Remove()
	if e.opts.RemoveAdditionalNoise {
		s.Find(extraNoiseTags).Remove()
	}
}

// selectMainArea returns the first selector match, then <body>, then the
// whole document.
func (e *Extractor) selectMainArea(doc *goquery.Document) *goquery.Selection {
	for _, sel := range e.selectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

func (e *Extractor) toMarkdown(region *goquery.Selection, pageURL string) string {
	if e.opts.StripImages {
		region.Find("img, picture").Remove()
	}
	if e.opts.StripLinks {
		region.Find("a").Each(func(_ int, a *goquery.Selection) {
			a.ReplaceWithSelection(a.Contents())
		})
	}

	var fragment strings.Builder
	for _, n := range region.Nodes {
		if err := html.Render(&fragment, n); err != nil {
			return mdnorm.Normalize(region.Text())
		}
	}

	markdown, err := e.conv.ConvertString(fragment.String(), converter.WithDomain(pageURL))
	if err != nil {
		e.logger.Debug("markdown conversion failed", "url", pageURL, "error", err)
		markdown = region.Text()
	}
	return mdnorm.Normalize(markdown)
}

// VisibleTextLength counts the characters of the region's text nodes, each
// trimmed and joined by a single space.
func VisibleTextLength(s *goquery.Selection) int {
	var parts []string
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return utf8.RuneCountInString(strings.Join(parts, " "))
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
