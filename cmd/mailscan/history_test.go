package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/mailscan/internal/database"
	"github.com/nao1215/mailscan/internal/model"
)

// seedHistory stores two crawls and returns the database directory.
func seedHistory(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	started := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	first := model.NewCrawlReport([]string{"http://a.example/"}, 2, true)
	first.StartedAt = started
	first.FinishedAt = started.Add(time.Minute)
	first.Emails = []model.EmailResult{
		{Email: "info@a.example", DNSValidated: true},
		{Email: "old@gone.invalid", DNSValidated: false},
	}

	second := model.NewCrawlReport([]string{"http://b.example/", "http://c.example/"}, 1, false)
	second.StartedAt = started.Add(time.Hour)
	second.FinishedAt = started.Add(time.Hour + time.Second)
	second.Interrupted = true

	for _, r := range []*model.CrawlReport{first, second} {
		if _, err := db.SaveCrawlReport(context.Background(), r); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
	}
	return dir
}

func TestHistoryCommand(t *testing.T) {
	t.Parallel()

	t.Run("lists runs newest first", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", seedHistory(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %q", stdout)
		}
		if !strings.HasPrefix(lines[1], "2 ") || !strings.Contains(lines[1], "interrupted") {
			t.Errorf("unexpected first row: %q", lines[1])
		}
		if !strings.Contains(lines[1], "http://b.example/ (+1 more)") {
			t.Errorf("expected seed summary, got %q", lines[1])
		}
		if !strings.HasPrefix(lines[2], "1 ") || !strings.Contains(lines[2], "complete") {
			t.Errorf("unexpected second row: %q", lines[2])
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", seedHistory(t), "-l", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lines := strings.Split(strings.TrimSpace(stdout), "\n"); len(lines) != 2 {
			t.Errorf("expected header and 1 row, got %q", stdout)
		}
	})

	t.Run("shows emails of a run", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", seedHistory(t), "--run", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Crawl #1 (complete)", "info@a.example", "resolved", "old@gone.invalid", "unresolved"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output, got %q", want, stdout)
			}
		}
	})

	t.Run("run without emails", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", seedHistory(t), "-r", "2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No emails found.") {
			t.Errorf("unexpected output: %q", stdout)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "history", "--db-dir", seedHistory(t), "--run", "42")
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("no database yet", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No crawl history found.") {
			t.Errorf("unexpected output: %q", stdout)
		}
	})
}

func TestSeedSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seeds []string
		want  string
	}{
		{nil, "-"},
		{[]string{"http://a.example/"}, "http://a.example/"},
		{[]string{"http://a.example/", "http://b.example/", "http://c.example/"}, "http://a.example/ (+2 more)"},
	}
	for _, tt := range tests {
		if got := seedSummary(tt.seeds); got != tt.want {
			t.Errorf("seedSummary(%v) = %q, want %q", tt.seeds, got, tt.want)
		}
	}
}
