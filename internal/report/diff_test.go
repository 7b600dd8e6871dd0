package report

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webkb/internal/model"
)

func runWithPages(pages map[string]string) *model.Run {
	run := model.NewRun("https://docs.example.com/", time.Minute)
	for u, md := range pages {
		run.Pages = append(run.Pages, &model.PageRecord{URL: u, Markdown: md})
	}
	return run
}

func TestDiff(t *testing.T) {
	t.Parallel()

	older := runWithPages(map[string]string{
		"https://docs.example.com/":      "Home.\n",
		"https://docs.example.com/old":   "Old page.\n",
		"https://docs.example.com/guide": "Guide v1.\n",
	})
	newer := runWithPages(map[string]string{
		"https://docs.example.com/":      "Home.\n",
		"https://docs.example.com/new":   "New page.\n",
		"https://docs.example.com/guide": "Guide v2 with more.\n",
	})
	newer.Errors = append(newer.Errors, model.ErrorRecord{URL: "https://docs.example.com/x", Reason: model.ReasonHTTPError, Status: "404"})

	d := Diff(older, newer)

	if !slices.Equal(d.Added, []string{"https://docs.example.com/new"}) {
		t.Errorf("unexpected added %v", d.Added)
	}
	if !slices.Equal(d.Removed, []string{"https://docs.example.com/old"}) {
		t.Errorf("unexpected removed %v", d.Removed)
	}
	if !slices.Equal(d.Changed, []string{"https://docs.example.com/guide"}) {
		t.Errorf("unexpected changed %v", d.Changed)
	}
	if d.Unchanged != 1 {
		t.Errorf("expected 1 unchanged page, got %d", d.Unchanged)
	}
	if d.ErrorsDelta != 1 {
		t.Errorf("expected errors delta 1, got %d", d.ErrorsDelta)
	}
	if want := newer.TotalChars() - older.TotalChars(); d.CharsDelta != want {
		t.Errorf("expected chars delta %d, got %d", want, d.CharsDelta)
	}

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteDiff(&buf, d, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"Added (1):\n  + https://docs.example.com/new\n",
			"Removed (1):\n  - https://docs.example.com/old\n",
			"Changed (1):\n  ~ https://docs.example.com/guide\n",
			"Unchanged: 1\n",
			"Content grew by",
			"errors +1",
		} {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("expected %q in:\n%s", want, buf.String())
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteDiff(&buf, d, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got RunDiff
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Unchanged != 1 || len(got.Added) != 1 {
			t.Errorf("unexpected decoded diff %+v", got)
		}
	})

	t.Run("identical runs", func(t *testing.T) {
		t.Parallel()

		same := Diff(older, older)
		if !same.Empty() || same.Unchanged != 3 {
			t.Errorf("expected no changes, got %+v", same)
		}
		var buf bytes.Buffer
		if err := WriteDiff(&buf, same, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No page changes (3 unchanged).") ||
			!strings.Contains(buf.String(), "Content unchanged by 0 chars") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})
}
