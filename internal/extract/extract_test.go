package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const articleText = "The crawler walks a site breadth first, keeping a queue of pending pages. " +
	"Each page is fetched once, cleaned of navigation and scripts, and converted into markdown. " +
	"Repeated lines such as footers and menus are removed after the crawl, so the final document " +
	"contains only the text that makes each page different from its neighbours. Operators can " +
	"limit the crawl by depth, page count and total time, and every failure is recorded."

func TestClean(t *testing.T) {
	t.Parallel()

	t.Run("main region wins over navigation", func(t *testing.T) {
		t.Parallel()

		page := `<html><head><title> Docs Home </title><script>var x = 1;</script></head>
<body>
<nav>Home | About | Contact</nav>
<header>Site header</header>
<main><h1>Welcome</h1><p>Main content here.</p></main>
<footer>Copyright</footer>
</body></html>`

		ext := New(Options{MinTextChars: 10, ReadabilityFallback: true}, nil)
		got := ext.Clean(page, "https://example.com/")

		if got.Title != "Docs Home" {
			t.Errorf("expected title 'Docs Home', got %q", got.Title)
		}
		if got.UsedReadability {
			t.Error("expected selector-based extraction")
		}
		if !strings.Contains(got.Markdown, "# Welcome") || !strings.Contains(got.Markdown, "Main content here.") {
			t.Errorf("missing main content in %q", got.Markdown)
		}
		for _, noise := range []string{"Home | About", "Site header", "Copyright", "var x"} {
			if strings.Contains(got.Markdown, noise) {
				t.Errorf("expected %q to be stripped from %q", noise, got.Markdown)
			}
		}
		if !strings.HasSuffix(got.Markdown, "\n") || strings.HasSuffix(got.Markdown, "\n\n") {
			t.Errorf("expected exactly one trailing newline, got %q", got.Markdown)
		}
	})

	t.Run("selector order decides", func(t *testing.T) {
		t.Parallel()

		page := `<html><body><div class="content">Second choice</div><article>First choice</article></body></html>`
		got := New(Options{}, nil).Clean(page, "https://example.com/")
		if strings.TrimSpace(got.Markdown) != "First choice" {
			t.Errorf("expected article region, got %q", got.Markdown)
		}
	})

	t.Run("custom selectors", func(t *testing.T) {
		t.Parallel()

		page := `<html><body><main>Default</main><div id="docs">Custom</div></body></html>`
		got := New(Options{MainSelectors: []string{"#docs"}}, nil).Clean(page, "https://example.com/")
		if strings.TrimSpace(got.Markdown) != "Custom" {
			t.Errorf("expected custom region, got %q", got.Markdown)
		}
	})

	t.Run("falls back to body and readability", func(t *testing.T) {
		t.Parallel()

		page := `<html><head><title>Guide - Example Site</title></head><body>
<nav>Home About Blog</nav>
<div id="wrapper"><div class="story"><p>` + articleText + `</p><p>` + articleText + `</p></div></div>
<footer>Footer links</footer>
</body></html>`

		ext := New(Options{ReadabilityFallback: true, MinTextChars: 5000}, nil)
		got := ext.Clean(page, "https://example.com/guide")

		if !got.UsedReadability {
			t.Fatal("expected readability fallback")
		}
		if !strings.Contains(got.Markdown, "breadth first") {
			t.Errorf("expected article text in %q", got.Markdown)
		}
		if got.Title == "" {
			t.Error("expected a title")
		}
	})

	t.Run("readability disabled", func(t *testing.T) {
		t.Parallel()

		page := `<html><body><nav>Menu</nav><p>Short.</p></body></html>`
		got := New(Options{ReadabilityFallback: false, MinTextChars: 600}, nil).Clean(page, "https://example.com/a")
		if got.UsedReadability {
			t.Error("expected no readability pass")
		}
		if strings.TrimSpace(got.Markdown) != "Short." {
			t.Errorf("expected body text, got %q", got.Markdown)
		}
		if got.Title != "https://example.com/a" {
			t.Errorf("expected url as title, got %q", got.Title)
		}
	})

	t.Run("link and image stripping", func(t *testing.T) {
		t.Parallel()

		page := `<html><body><main><p>See <a href="/docs">the docs</a> <img src="/logo.png" alt="logo"></p></main></body></html>`

		kept := New(Options{}, nil).Clean(page, "https://example.com/")
		if !strings.Contains(kept.Markdown, "(https://example.com/docs)") {
			t.Errorf("expected absolute link, got %q", kept.Markdown)
		}
		if !strings.Contains(kept.Markdown, "logo.png") {
			t.Errorf("expected image, got %q", kept.Markdown)
		}

		stripped := New(Options{StripLinks: true, StripImages: true}, nil).Clean(page, "https://example.com/")
		if !strings.Contains(stripped.Markdown, "See the docs") {
			t.Errorf("expected link text to survive, got %q", stripped.Markdown)
		}
		if strings.Contains(stripped.Markdown, "](") || strings.Contains(stripped.Markdown, "logo") {
			t.Errorf("expected links and images stripped, got %q", stripped.Markdown)
		}
	})

	t.Run("additional noise", func(t *testing.T) {
		t.Parallel()

		page := `<html><body><main><p>Body text</p><form><label>Search the site</label></form><noscript>Enable JS</noscript></main></body></html>`

		extra := New(Options{RemoveAdditionalNoise: true}, nil).Clean(page, "https://example.com/")
		if strings.Contains(extra.Markdown, "Search the site") || strings.Contains(extra.Markdown, "Enable JS") {
			t.Errorf("expected form and noscript removed, got %q", extra.Markdown)
		}
		if !strings.Contains(extra.Markdown, "Body text") {
			t.Errorf("expected body text to survive, got %q", extra.Markdown)
		}
	})
}

func TestVisibleTextLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want int
	}{
		{"single text", `<p>hello</p>`, 5},
		{"texts joined by one space", `<p>  hello </p><p>world  </p>`, 11},
		{"whitespace only", `<p>   </p>`, 0},
		{"multibyte counts runes", `<p>héllo</p>`, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("failed to parse: %v", err)
			}
			if got := VisibleTextLength(doc.Find("body")); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
