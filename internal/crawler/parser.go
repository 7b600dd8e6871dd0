package crawler

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/webkb/internal/urlnorm"
)

// Parser extracts the title, canonical URL and outgoing links of a page.
type Parser struct {
	// baseURL resolves relative hrefs.
	baseURL string
}

// ParseResult is what the scheduler needs from one page.
type ParseResult struct {
	// Title is the text of the first <title> element.
	Title string

	// Canonical is the normalized <link rel="canonical"> target, empty when
	// the page declares none or it does not resolve.
	Canonical string

	// Links are the normalized a[href] targets in document order, without
	// duplicates. Unparsable hrefs and non-http(s) schemes are dropped.
	Links []string
}

// NewParser creates a parser resolving links against baseURL.
func NewParser(baseURL string) *Parser {
	return &Parser{baseURL: baseURL}
}

// Parse reads an HTML document.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Links: make([]string, 0)}
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if result.Title == "" {
					result.Title = strings.TrimSpace(textOf(n))
				}
			case "link":
				if result.Canonical == "" && hasRelToken(getAttr(n, "rel"), "canonical") {
					result.Canonical = urlnorm.Normalize(getAttr(n, "href"), p.baseURL)
				}
			case "a":
				href := strings.TrimSpace(getAttr(n, "href"))
				if href == "" {
					break
				}
				if link := urlnorm.Normalize(href, p.baseURL); isWebURL(link) && !seen[link] {
					seen[link] = true
					result.Links = append(result.Links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

func isWebURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func hasRelToken(rel, token string) bool {
	for _, f := range strings.Fields(rel) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// getAttr returns the value of the named attribute, or "".
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
