package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webkb/internal/database"
	"github.com/nao1215/webkb/internal/model"
)

func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"history"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	for _, u := range []string{"https://docs.example.com/", "https://blog.example.com/"} {
		run := model.NewRun(u, time.Minute)
		run.Pages = append(run.Pages, &model.PageRecord{URL: u, Host: "example.com", Path: "/", Title: "Home", Markdown: "Welcome.\n"})
		run.FinishedAt = run.StartedAt.Add(time.Second)
		if _, err := db.Save(context.Background(), run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
	_ = db.Close()

	t.Run("lists runs newest first", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		blog := strings.Index(out, "blog.example.com")
		docs := strings.Index(out, "docs.example.com")
		if blog < 0 || docs < 0 || blog > docs {
			t.Errorf("expected both runs, newest first, got %q", out)
		}
		if !strings.Contains(out, "Start URL") {
			t.Errorf("expected a table header, got %q", out)
		}
	})

	t.Run("limit", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dbDir, "-n", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(out, "docs.example.com") {
			t.Errorf("expected only the latest run, got %q", out)
		}
	})

	t.Run("last", func(t *testing.T) {
		out, err := runHistory(t, "last", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "WEBKB CRAWL REPORT") || !strings.Contains(out, "blog.example.com") {
			t.Errorf("unexpected report %q", out)
		}
	})

	t.Run("last on empty history", func(t *testing.T) {
		_, err := runHistory(t, "last", "--db-dir", t.TempDir())
		if !errors.Is(err, errNoRuns) {
			t.Errorf("expected errNoRuns, got %v", err)
		}
	})

	t.Run("diff of the two latest runs", func(t *testing.T) {
		out, err := runHistory(t, "diff", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"+ https://blog.example.com/", "- https://docs.example.com/"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("diff by id", func(t *testing.T) {
		out, err := runHistory(t, "diff", "1", "1", "--db-dir", dbDir, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, `"unchanged": 1`) {
			t.Errorf("expected one unchanged page, got %s", out)
		}
	})

	t.Run("diff errors", func(t *testing.T) {
		if _, err := runHistory(t, "diff", "--db-dir", t.TempDir()); !errors.Is(err, errNotEnoughRuns) {
			t.Errorf("expected errNotEnoughRuns, got %v", err)
		}
		if _, err := runHistory(t, "diff", "1", "99", "--db-dir", dbDir); err == nil {
			t.Error("expected an error for a missing run")
		}
		if _, err := runHistory(t, "diff", "1", "--db-dir", dbDir); err == nil {
			t.Error("expected an error for a single ID")
		}
	})
}
