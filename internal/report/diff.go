package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nao1215/webkb/internal/model"
)

// Change directions of the content size between two runs.
const (
	directionGrew      = "grew"
	directionShrank    = "shrank"
	directionUnchanged = "unchanged"
)

// RunDiff lists what changed between an older and a newer run of a site.
// Pages are matched by URL and compared by content hash.
type RunDiff struct {
	OldStartURL string   `json:"old_start_url"`
	NewStartURL string   `json:"new_start_url"`
	Added       []string `json:"added"`
	Removed     []string `json:"removed"`
	Changed     []string `json:"changed"`
	Unchanged   int      `json:"unchanged"`
	CharsDelta  int      `json:"chars_delta"`
	ErrorsDelta int      `json:"errors_delta"`
}

// Diff compares two runs. URL lists are sorted.
func Diff(older, newer *model.Run) RunDiff {
	d := RunDiff{
		OldStartURL: older.StartURL,
		NewStartURL: newer.StartURL,
		Added:       make([]string, 0),
		Removed:     make([]string, 0),
		Changed:     make([]string, 0),
		CharsDelta:  newer.TotalChars() - older.TotalChars(),
		ErrorsDelta: len(newer.Errors) - len(older.Errors),
	}

	before := make(map[string]string, len(older.Pages))
	for _, p := range older.Pages {
		before[p.URL] = p.ContentHash()
	}
	for _, p := range newer.Pages {
		hash, ok := before[p.URL]
		switch {
		case !ok:
			d.Added = append(d.Added, p.URL)
		case hash != p.ContentHash():
			d.Changed = append(d.Changed, p.URL)
		default:
			d.Unchanged++
		}
		delete(before, p.URL)
	}
	for u := range before {
		d.Removed = append(d.Removed, u)
	}

	slices.Sort(d.Added)
	slices.Sort(d.Removed)
	slices.Sort(d.Changed)
	return d
}

// Empty reports whether the page sets are identical.
func (d RunDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

func (d RunDiff) direction() string {
	switch {
	case d.CharsDelta > 0:
		return directionGrew
	case d.CharsDelta < 0:
		return directionShrank
	default:
		return directionUnchanged
	}
}

// WriteDiff prints d as plain text, or as indented JSON when asJSON is set.
func WriteDiff(w io.Writer, d RunDiff, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Comparing %s -> %s\n\n", d.OldStartURL, d.NewStartURL)
	if d.Empty() {
		fmt.Fprintf(&sb, "No page changes (%d unchanged).\n", d.Unchanged)
	} else {
		diffSection(&sb, "Added", "+", d.Added)
		diffSection(&sb, "Removed", "-", d.Removed)
		diffSection(&sb, "Changed", "~", d.Changed)
		fmt.Fprintf(&sb, "Unchanged: %d\n", d.Unchanged)
	}
	fmt.Fprintf(&sb, "Content %s by %d chars, errors %+d\n", d.direction(), abs(d.CharsDelta), d.ErrorsDelta)

	_, err := io.WriteString(w, sb.String())
	return err
}

func diffSection(sb *strings.Builder, title, mark string, urls []string) {
	if len(urls) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s (%d):\n", title, len(urls))
	for _, u := range urls {
		fmt.Fprintf(sb, "  %s %s\n", mark, u)
	}
	sb.WriteString("\n")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
