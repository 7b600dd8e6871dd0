package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// PageRecord is one successfully fetched and extracted page.
// It is created once per page and only the boilerplate filter rewrites
// Markdown afterwards.
type PageRecord struct {
	// URL is the canonical URL of the page. When the page declares a
	// <link rel="canonical">, that URL wins over the fetched one.
	URL string `json:"url"`

	// Host is the hostname of URL.
	Host string `json:"host"`

	// Path is the URL path including the query string, "/" when empty.
	Path string `json:"path"`

	// Title is the document title, the readability title, or the URL.
	Title string `json:"title"`

	// Markdown is the cleaned page body.
	Markdown string `json:"markdown"`

	// CleanTextChars is the length of the trimmed markdown at extraction time.
	CleanTextChars int `json:"clean_text_chars"`

	// UsedReadability reports whether the readability fallback produced the body.
	UsedReadability bool `json:"used_readability"`
}

// ThinPageChars is the trimmed markdown length below which a page counts as thin.
const ThinPageChars = 200

// ContentHash returns the SHA3-256 hex digest of the page markdown.
// It identifies identical bodies across runs and imports.
func (p *PageRecord) ContentHash() string {
	return HashText(p.Markdown)
}

// IsThin reports whether the page carries less than ThinPageChars of text.
func (p *PageRecord) IsThin() bool {
	return len(strings.TrimSpace(p.Markdown)) < ThinPageChars
}

// Heading returns the label used for the page in combined output:
// the title, then the path, then the URL.
func (p *PageRecord) Heading() string {
	switch {
	case p.Title != "":
		return p.Title
	case p.Path != "":
		return p.Path
	default:
		return p.URL
	}
}

// HashText returns the SHA3-256 hex digest of s.
func HashText(s string) string {
	sum := sha3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
