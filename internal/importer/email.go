package importer

import (
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/webkb/internal/mdnorm"
)

// maxPartSize bounds the decoded size of one message part.
const maxPartSize = 10 * 1024 * 1024

// maxPartDepth bounds multipart nesting.
const maxPartDepth = 8

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.NewReaderLabel}

type header interface {
	Get(key string) string
}

// parseEmail renders one RFC 5322 message. A message that does not parse
// is kept as plain text.
func (im *Importer) parseEmail(raw, source, defaultTitle string) Document {
	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		im.logger.Debug("email parse failed, keeping raw text", "source", source, "error", err)
		return Document{Source: source, Title: defaultTitle, Markdown: mdnorm.Normalize(raw), Type: TypeEmail}
	}

	lines := []string{
		"**From:** " + orDefault(decodeHeader(msg.Header.Get("From")), "Unknown"),
		"**To:** " + orDefault(decodeHeader(msg.Header.Get("To")), "Unknown"),
	}
	if date := msg.Header.Get("Date"); date != "" {
		lines = append(lines, "**Date:** "+date)
	}
	lines = append(lines, "", im.emailBody(msg.Header, msg.Body, 0))

	return Document{
		Source:   source,
		Title:    orDefault(decodeHeader(msg.Header.Get("Subject")), defaultTitle),
		Markdown: mdnorm.Normalize(strings.Join(lines, "\n")),
		Type:     TypeEmail,
	}
}

// parseMbox splits a mailbox on its "From " separator lines.
func (im *Importer) parseMbox(content, source string) []Document {
	msgs := splitMbox(content)
	docs := make([]Document, 0, len(msgs))
	for i, raw := range msgs {
		idx := strconv.Itoa(i + 1)
		docs = append(docs, im.parseEmail(raw, source+"#"+idx, "Message "+idx))
	}
	return docs
}

func splitMbox(content string) []string {
	msgs := make([]string, 0)
	var cur []string
	inMessage := false
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if strings.HasPrefix(line, "From ") {
			if inMessage {
				msgs = append(msgs, strings.Join(cur, "\n"))
			}
			cur = nil
			inMessage = true
			continue
		}
		if !inMessage {
			continue
		}
		if strings.HasPrefix(line, ">From ") {
			line = line[1:]
		}
		cur = append(cur, line)
	}
	if inMessage {
		msgs = append(msgs, strings.Join(cur, "\n"))
	}
	return msgs
}

// emailBody returns the first text/plain part, or else the first text/html
// part converted to markdown. Attachments are skipped.
func (im *Importer) emailBody(h header, body io.Reader, depth int) string {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if depth >= maxPartDepth || params["boundary"] == "" {
			return ""
		}
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err != nil {
				return ""
			}
			if disposition, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition")); disposition == "attachment" {
				continue
			}
			if text := im.emailBody(part.Header, part, depth+1); text != "" {
				return text
			}
		}
	}

	switch mediaType {
	case "text/plain":
		return mdnorm.Compact(decodePart(body, h.Get("Content-Transfer-Encoding"), params["charset"]))
	case "text/html":
		html := decodePart(body, h.Get("Content-Transfer-Encoding"), params["charset"])
		return mdnorm.Compact(im.email.Clean(html, "").Markdown)
	default:
		return ""
	}
}

// decodePart undoes the transfer encoding and converts the charset to
// UTF-8. multipart.Reader already removes quoted-printable encoding from
// parts.
func decodePart(r io.Reader, transferEncoding, label string) string {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	if label != "" && !strings.EqualFold(label, "utf-8") && !strings.EqualFold(label, "us-ascii") {
		if cr, err := charset.NewReaderLabel(label, r); err == nil {
			r = cr
		}
	}
	data, _ := io.ReadAll(io.LimitReader(r, maxPartSize)) //nolint:errcheck // keep what was decoded
	return strings.ToValidUTF8(string(data), "�")
}

func decodeHeader(v string) string {
	decoded, err := wordDecoder.DecodeHeader(v)
	if err != nil {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(decoded)
}
