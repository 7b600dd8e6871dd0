// Package mdnorm normalizes markdown text produced by the extractor, the
// boilerplate filter and the import connector so they share one whitespace
// convention.
package mdnorm

import (
	"regexp"
	"strings"
)

// multiBlank matches three or more consecutive newlines.
var multiBlank = regexp.MustCompile(`\n{3,}`)

// Normalize applies the markdown post-processing rules:
//   - trailing whitespace is trimmed from every line
//   - leading and trailing blank lines are dropped
//   - runs of blank lines collapse to a single blank line
//   - the result ends with exactly one newline
//
// Normalize is idempotent. An input with no visible text yields "\n".
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r\f\v")
	}

	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	out := make([]string, 0, len(lines))
	previousBlank := false
	for _, line := range lines {
		blank := line == ""
		if blank && previousBlank {
			continue
		}
		out = append(out, line)
		previousBlank = blank
	}

	normalized := multiBlank.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
	if !strings.HasSuffix(normalized, "\n") {
		normalized += "\n"
	}
	return normalized
}

// Compact collapses blank runs and trims line ends and the whole text, with
// no trailing newline. The import connector and exporters use it before
// joining sections.
func Compact(text string) string {
	if text == "" {
		return ""
	}
	text = multiBlank.ReplaceAllString(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r\f\v")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
