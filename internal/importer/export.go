package importer

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/webkb/internal/mdnorm"
	"github.com/nao1215/webkb/internal/report"
)

// ExportCombined renders docs as one markdown document: a "# title"
// heading per document, a source line and the body.
func ExportCombined(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(docs)*4)
	for _, doc := range docs {
		parts = append(parts, "# "+doc.Heading())
		parts = append(parts, "_Source_: "+orDefault(doc.URL, doc.Source))
		parts = append(parts, "", strings.TrimSpace(doc.Markdown), "")
	}
	return mdnorm.Normalize(strings.Join(parts, "\n"))
}

// ExportZip writes one markdown file per document and an index.md to w.
// File names are slugs of the titles, numbered when they collide.
func ExportZip(w io.Writer, docs []Document) error {
	zw := zip.NewWriter(w)
	index := []string{"# Imported documents", ""}
	used := map[string]int{"index": 1}

	for i, doc := range docs {
		base := report.Slugify(orDefault(doc.Heading(), fmt.Sprintf("doc-%d", i+1)))
		used[base]++
		name := base + ".md"
		if n := used[base]; n > 1 {
			name = fmt.Sprintf("%s-%d.md", base, n)
		}

		if err := writeZipFile(zw, name, mdnorm.Normalize(doc.Markdown)); err != nil {
			return err
		}
		index = append(index, fmt.Sprintf("- [%s](%s)", orDefault(doc.Title, name), name))
	}

	if err := writeZipFile(zw, "index.md", mdnorm.Normalize(strings.Join(index, "\n"))); err != nil {
		return err
	}
	return zw.Close()
}

func writeZipFile(zw *zip.Writer, name, content string) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.WriteString(f, content); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
