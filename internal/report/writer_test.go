package report

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/mailscan/internal/model"
	"golang.org/x/text/language"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.CrawlReport {
	report := model.NewCrawlReport([]string{"https://example.com/"}, 2, true)
	report.StartedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	report.FinishedAt = report.StartedAt.Add(1500 * time.Millisecond)
	report.Stats = model.CrawlStats{
		PagesFetched:  1234,
		PagesFailed:   2,
		PagesFiltered: 1,
		LinksEnqueued: 40,
	}
	report.Emails = []model.EmailResult{
		{Email: "info@example.com", DNSValidated: true},
		{Email: "sales@example.com", DNSValidated: true},
		{Email: "typo@exmaple.invalid", DNSValidated: false},
	}
	return report
}

// TestJSONWriter tests the result list writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes an array of email and dnsLookup", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got []map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(got))
		}
		if got[0]["email"] != "info@example.com" || got[0]["dnsLookup"] != true {
			t.Errorf("unexpected first entry: %v", got[0])
		}
		if got[2]["dnsLookup"] != false {
			t.Errorf("expected dnsLookup false for unresolved domain, got %v", got[2]["dnsLookup"])
		}
		if len(got[0]) != 2 {
			t.Errorf("expected exactly two keys per entry, got %v", got[0])
		}
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Emails = nil

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("expected [], got %q", buf.String())
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  {\n    \"email\": \"info@example.com\",\n    \"dnsLookup\": true\n  }") {
			t.Errorf("expected two-space indentation, got:\n%s", buf.String())
		}
	})

	t.Run("compact output ends with newline", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewJSONWriter(&buf).Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}
		if strings.Count(buf.String(), "\n") != 1 || !strings.HasSuffix(buf.String(), "\n") {
			t.Errorf("expected a single trailing newline, got %q", buf.String())
		}
	})
}

// TestFullJSONWriter tests the full report writer.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "v1.2.3", WithPrettyPrint()).Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got JSONReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if got.Version != "v1.2.3" {
		t.Errorf("expected version v1.2.3, got %q", got.Version)
	}
	if got.ValidatedCount != 2 {
		t.Errorf("expected 2 validated, got %d", got.ValidatedCount)
	}
	if got.DurationSeconds != 1.5 {
		t.Errorf("expected 1.5s, got %v", got.DurationSeconds)
	}
	if got.Report == nil || got.Report.Stats.PagesFetched != 1234 {
		t.Errorf("expected stats in report, got %+v", got.Report)
	}
	if len(got.Report.Emails) != 3 {
		t.Errorf("expected 3 emails, got %d", len(got.Report.Emails))
	}
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes all sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# MailScan Report",
			"## Summary",
			"## Domains",
			"## Emails",
			"`https://example.com/`",
			"info@example.com",
			"`example.com`",
			"```mermaid",
			"pie",
			"[!IMPORTANT]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("interrupted crawl shows warning", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Interrupted = true

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Error("expected a warning alert for an interrupted crawl")
		}
		if !strings.Contains(buf.String(), "Interrupted") {
			t.Error("expected interrupted status")
		}
	})

	t.Run("no emails", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Emails = []model.EmailResult{}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "No email addresses found.") {
			t.Error("expected empty email section")
		}
		if strings.Contains(output, "## Domains") {
			t.Error("expected no domain section without emails")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart without emails")
		}
	})
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header, summary and emails", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"MAILSCAN REPORT",
			"https://example.com/",
			"Pages fetched:   1,234",
			"Emails found:    3",
			"Domain resolves: 2",
			"[+] info@example.com",
			"[?] typo@exmaple.invalid",
			"Status:         Complete",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("numbers follow the configured language", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithLanguage(language.German)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Pages fetched:   1.234") {
			t.Errorf("expected German thousands separator\n%s", buf.String())
		}
	})

	t.Run("summary only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithEmails(false)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "info@example.com") {
			t.Error("expected no email list")
		}
	})

	t.Run("interrupted status", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Interrupted = true

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "INTERRUPTED") {
			t.Error("expected interrupted status")
		}
	})
}

// TestWriteFile tests writing a report to disk.
func TestWriteFile(t *testing.T) {
	t.Parallel()

	t.Run("creates parent directories with private permissions", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "dir", "results.json")
		factory := func(w io.Writer) Writer { return NewJSONWriter(w, WithPrettyPrint()) }

		n, err := WriteFile(path, createTestReport(), factory)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected file to exist: %v", err)
		}
		if info.Size() != int64(n) {
			t.Errorf("expected %d bytes on disk, got %d", n, info.Size())
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("expected permissions 0600, got %o", perm)
		}
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "results.json")
		if err := os.WriteFile(path, []byte(strings.Repeat("x", 4096)), 0o600); err != nil {
			t.Fatalf("failed to seed file: %v", err)
		}

		report := createTestReport()
		report.Emails = nil
		factory := func(w io.Writer) Writer { return NewJSONWriter(w) }
		if _, err := WriteFile(path, report, factory); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if string(data) != "[]\n" {
			t.Errorf("expected file to be truncated and rewritten, got %q", data)
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		if err := os.WriteFile(blocker, nil, 0o600); err != nil {
			t.Fatalf("failed to create blocker: %v", err)
		}

		factory := func(w io.Writer) Writer { return NewJSONWriter(w) }
		if _, err := WriteFile(filepath.Join(blocker, "results.json"), createTestReport(), factory); err == nil {
			t.Error("expected error when parent is a file")
		}
	})
}

// TestCountByDomain tests grouping results by domain.
func TestCountByDomain(t *testing.T) {
	t.Parallel()

	counts := countByDomain([]model.EmailResult{
		{Email: "a@b.test", DNSValidated: true},
		{Email: "x@a.test", DNSValidated: true},
		{Email: "y@a.test", DNSValidated: false},
		{Email: "z@c.test", DNSValidated: false},
	})

	if len(counts) != 3 {
		t.Fatalf("expected 3 domains, got %d", len(counts))
	}
	if counts[0].domain != "a.test" || counts[0].emails != 2 || counts[0].validated != 1 {
		t.Errorf("unexpected first entry: %+v", counts[0])
	}
	if counts[1].domain != "b.test" || counts[2].domain != "c.test" {
		t.Errorf("expected ties broken by name, got %q then %q", counts[1].domain, counts[2].domain)
	}
}
