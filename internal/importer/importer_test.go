package importer

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestImporter() *Importer {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const plainEmail = "From: Alice <alice@example.com>\r\n" +
	"To: Bob <bob@example.com>\r\n" +
	"Subject: Release notes\r\n" +
	"Date: Mon, 2 Jun 2025 10:00:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"The release ships on Friday.\r\n\r\n\r\n\r\nThanks.\r\n"

const multipartEmail = "From: alice@example.com\r\n" +
	"Subject: =?utf-8?q?Caf=C3=A9_menu?=\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=outer\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: text/plain; name=notes.txt\r\n" +
	"Content-Disposition: attachment; filename=notes.txt\r\n" +
	"\r\n" +
	"attachment body\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=inner\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"PHA+U2VlIDxhIGhyZWY9Imh0dHBzOi8vZXhhbXBsZS5jb20vbWVudSI+dGhlIG1lbnU8L2E+PGlt\r\n" +
	"ZyBzcmM9ImxvZ28ucG5nIj48L3A+\r\n" +
	"--inner--\r\n" +
	"--outer--\r\n"

func TestParseFile(t *testing.T) {
	t.Parallel()

	im := newTestImporter()

	t.Run("text and markdown", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{"notes.txt", "README.md", "guide.markdown"} {
			docs := im.ParseFile(File{Name: name, Data: []byte("Line one.   \n\n\n\nLine two.")})
			if len(docs) != 1 {
				t.Fatalf("%s: expected 1 document, got %d", name, len(docs))
			}
			if docs[0].Title != name || docs[0].Type != TypeText {
				t.Errorf("%s: unexpected document %+v", name, docs[0])
			}
			if docs[0].Markdown != "Line one.\n\nLine two.\n" {
				t.Errorf("%s: unexpected markdown %q", name, docs[0].Markdown)
			}
		}
	})

	t.Run("html", func(t *testing.T) {
		t.Parallel()

		page := `<html><head><title>Handbook</title></head><body>
<nav>Menu</nav><form>Search</form>
<main><h2>Onboarding</h2><p>Read <a href="/x">this</a> first.</p></main>
</body></html>`
		docs := im.ParseFile(File{Name: "handbook.HTML", Data: []byte(page)})
		if len(docs) != 1 {
			t.Fatalf("expected 1 document, got %d", len(docs))
		}
		doc := docs[0]
		if doc.Title != "Handbook" || doc.Type != TypeHTML {
			t.Errorf("unexpected document %+v", doc)
		}
		if !strings.Contains(doc.Markdown, "## Onboarding") || !strings.Contains(doc.Markdown, "Read this first.") {
			t.Errorf("unexpected markdown %q", doc.Markdown)
		}
		if strings.Contains(doc.Markdown, "Menu") || strings.Contains(doc.Markdown, "Search") {
			t.Errorf("expected noise removed, got %q", doc.Markdown)
		}
	})

	t.Run("html without title", func(t *testing.T) {
		t.Parallel()

		docs := im.ParseFile(File{Name: "page.htm", Data: []byte("<p>Body</p>")})
		if docs[0].Title != "page.htm" {
			t.Errorf("expected file name as title, got %q", docs[0].Title)
		}
	})

	t.Run("plain email", func(t *testing.T) {
		t.Parallel()

		docs := im.ParseFile(File{Name: "release.eml", Data: []byte(plainEmail)})
		if len(docs) != 1 {
			t.Fatalf("expected 1 document, got %d", len(docs))
		}
		doc := docs[0]
		if doc.Title != "Release notes" || doc.Type != TypeEmail {
			t.Errorf("unexpected document %+v", doc)
		}
		want := "**From:** Alice <alice@example.com>\n" +
			"**To:** Bob <bob@example.com>\n" +
			"**Date:** Mon, 2 Jun 2025 10:00:00 +0000\n" +
			"\n" +
			"The release ships on Friday.\n\nThanks.\n"
		if doc.Markdown != want {
			t.Errorf("expected:\n%q\ngot:\n%q", want, doc.Markdown)
		}
	})

	t.Run("multipart email prefers the first body part", func(t *testing.T) {
		t.Parallel()

		docs := im.ParseFile(File{Name: "menu.eml", Data: []byte(multipartEmail)})
		doc := docs[0]
		if doc.Title != "Café menu" {
			t.Errorf("expected decoded subject, got %q", doc.Title)
		}
		if !strings.Contains(doc.Markdown, "**To:** Unknown") {
			t.Errorf("expected unknown recipient, got %q", doc.Markdown)
		}
		if strings.Contains(doc.Markdown, "attachment body") {
			t.Errorf("expected attachment skipped, got %q", doc.Markdown)
		}
		if !strings.Contains(doc.Markdown, "[the menu](https://example.com/menu)") {
			t.Errorf("expected link kept, got %q", doc.Markdown)
		}
		if strings.Contains(doc.Markdown, "logo.png") {
			t.Errorf("expected image stripped, got %q", doc.Markdown)
		}
	})

	t.Run("mbox", func(t *testing.T) {
		t.Parallel()

		mbox := "From alice@example.com Mon Jun  2 10:00:00 2025\n" +
			"From: alice@example.com\n" +
			"Subject: First\n" +
			"\n" +
			"Hello.\n" +
			">From the archive.\n" +
			"\n" +
			"From bob@example.com Mon Jun  2 11:00:00 2025\n" +
			"From: bob@example.com\n" +
			"\n" +
			"No subject here.\n"

		docs := im.ParseFile(File{Name: "inbox.mbox", Data: []byte(mbox)})
		if len(docs) != 2 {
			t.Fatalf("expected 2 documents, got %d", len(docs))
		}
		if docs[0].Title != "First" || docs[0].Source != "inbox.mbox#1" {
			t.Errorf("unexpected first document %+v", docs[0])
		}
		if !strings.Contains(docs[0].Markdown, "From the archive.") || strings.Contains(docs[0].Markdown, ">From") {
			t.Errorf("expected unescaped From line, got %q", docs[0].Markdown)
		}
		if docs[1].Title != "Message 2" || docs[1].Source != "inbox.mbox#2" {
			t.Errorf("unexpected second document %+v", docs[1])
		}
	})

	t.Run("unknown extension is text", func(t *testing.T) {
		t.Parallel()

		docs := im.ParseFile(File{Name: "data.csv", Data: []byte("a,b\n1,2\n")})
		if docs[0].Type != TypeText || docs[0].Markdown != "a,b\n1,2\n" {
			t.Errorf("unexpected document %+v", docs[0])
		}
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	im := newTestImporter()

	t.Run("drops duplicate bodies", func(t *testing.T) {
		t.Parallel()

		docs, err := im.Parse([]File{
			{Name: "a.txt", Data: []byte("Same body.")},
			{Name: "b.md", Data: []byte("Same body.\n\n")},
			{Name: "c.txt", Data: []byte("Other body.")},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 2 || docs[0].Source != "a.txt" || docs[1].Source != "c.txt" {
			t.Errorf("unexpected documents %+v", docs)
		}
	})

	t.Run("no documents", func(t *testing.T) {
		t.Parallel()

		if _, err := im.Parse([]File{{Name: "empty.mbox", Data: []byte("no separator")}}); !errors.Is(err, ErrNoDocuments) {
			t.Errorf("expected ErrNoDocuments, got %v", err)
		}
		if _, err := im.Parse(nil); !errors.Is(err, ErrNoDocuments) {
			t.Errorf("expected ErrNoDocuments, got %v", err)
		}
	})
}

func TestExportCombined(t *testing.T) {
	t.Parallel()

	got := ExportCombined([]Document{
		{Source: "a.txt", Title: "A", Markdown: "Alpha.\n"},
		{Source: "b.html", URL: "https://example.com/b", Markdown: "\n\nBeta.\n\n"},
	})
	want := "# A\n_Source_: a.txt\n\nAlpha.\n\n# b.html\n_Source_: https://example.com/b\n\nBeta.\n"
	if got != want {
		t.Errorf("expected:\n%q\ngot:\n%q", want, got)
	}

	if ExportCombined(nil) != "" {
		t.Error("expected empty output for no documents")
	}
}

func TestExportZip(t *testing.T) {
	t.Parallel()

	docs := []Document{
		{Source: "a.txt", Title: "Getting Started", Markdown: "One.\n"},
		{Source: "b.txt", Title: "Getting started!", Markdown: "Two.\n"},
		{Source: "index.txt", Title: "Index", Markdown: "Three.\n"},
	}

	var buf bytes.Buffer
	if err := ExportZip(&buf, docs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("invalid zip: %v", err)
	}
	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		_ = rc.Close()
		files[f.Name] = string(data)
	}

	for name, want := range map[string]string{
		"getting-started.md":   "One.\n",
		"getting-started-2.md": "Two.\n",
		"index-2.md":           "Three.\n",
	} {
		if files[name] != want {
			t.Errorf("%s: expected %q, got %q", name, want, files[name])
		}
	}

	wantIndex := "# Imported documents\n\n" +
		"- [Getting Started](getting-started.md)\n" +
		"- [Getting started!](getting-started-2.md)\n" +
		"- [Index](index-2.md)\n"
	if files["index.md"] != wantIndex {
		t.Errorf("expected index:\n%q\ngot:\n%q", wantIndex, files["index.md"])
	}
}
