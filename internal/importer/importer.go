package importer

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/nao1215/webkb/internal/extract"
	"github.com/nao1215/webkb/internal/mdnorm"
	"github.com/nao1215/webkb/internal/model"
)

// ErrNoDocuments is returned when no uploaded file produced a document.
var ErrNoDocuments = errors.New("uploaded files could not be parsed into documents")

// Document types.
const (
	TypeText  = "text"
	TypeHTML  = "html"
	TypeEmail = "email"
)

// Document is one imported document.
type Document struct {
	// Source is the file name, or name#index for mailbox messages.
	Source string
	// URL is the document's origin when known.
	URL      string
	Title    string
	Markdown string
	Type     string
}

// Heading returns the title, falling back to the source.
func (d Document) Heading() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Source
}

// File is one uploaded file.
type File struct {
	Name string
	Data []byte
}

// Importer parses uploaded files. It is safe for concurrent use.
type Importer struct {
	html   *extract.Extractor
	email  *extract.Extractor
	logger *slog.Logger
}

// New creates an Importer. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		html: extract.New(extract.Options{
			StripLinks:            true,
			StripImages:           true,
			RemoveAdditionalNoise: true,
		}, logger),
		// Email HTML keeps its links and is converted whole.
		email: extract.New(extract.Options{
			StripImages:   true,
			MainSelectors: []string{"body"},
		}, logger),
		logger: logger,
	}
}

// Parse parses every file and drops documents whose markdown is identical
// to an earlier one. It returns ErrNoDocuments when nothing is left.
func (im *Importer) Parse(files []File) ([]Document, error) {
	docs := make([]Document, 0, len(files))
	seen := make(map[string]bool)
	for _, f := range files {
		for _, doc := range im.ParseFile(f) {
			hash := model.HashText(doc.Markdown)
			if seen[hash] {
				im.logger.Debug("duplicate document dropped", "source", doc.Source)
				continue
			}
			seen[hash] = true
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return docs, nil
}

// ParseFile parses one file according to its extension.
func (im *Importer) ParseFile(f File) []Document {
	content := strings.ToValidUTF8(string(f.Data), "�")

	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".txt", ".md", ".markdown":
		return []Document{im.parseText(content, f.Name, "text", "Text document")}
	case ".html", ".htm":
		return []Document{im.parseHTML(content, orDefault(f.Name, "HTML page"))}
	case ".eml":
		source := orDefault(f.Name, "email")
		return []Document{im.parseEmail(content, source, source)}
	case ".mbox":
		return im.parseMbox(content, orDefault(f.Name, "mbox"))
	default:
		im.logger.Debug("unknown extension treated as text", "file", f.Name)
		return []Document{im.parseText(content, f.Name, "file", "Uploaded file")}
	}
}

func (im *Importer) parseText(content, name, defaultSource, defaultTitle string) Document {
	return Document{
		Source:   orDefault(name, defaultSource),
		Title:    orDefault(name, defaultTitle),
		Markdown: mdnorm.Normalize(content),
		Type:     TypeText,
	}
}

func (im *Importer) parseHTML(content, source string) Document {
	cleaned := im.html.Clean(content, "")
	return Document{
		Source:   source,
		Title:    orDefault(cleaned.Title, source),
		Markdown: cleaned.Markdown,
		Type:     TypeHTML,
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
