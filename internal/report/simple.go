package report

import (
	"io"
	"strings"
	"time"

	"github.com/nao1215/mailscan/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Counts are formatted for the configured language (thousands separators
// and so on) with golang.org/x/text/message.
type SimpleWriter struct {
	baseWriter

	// lang selects number formatting.
	lang language.Tag

	// showEmails lists every address rather than only the summary.
	showEmails bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithLanguage sets the language used to format numbers.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.lang = tag
	}
}

// WithEmails controls whether every address is listed.
func WithEmails(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmails = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
// By default it formats numbers in English and lists every address.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		lang:       language.English,
		showEmails: true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	p := message.NewPrinter(w.lang)
	var sb strings.Builder

	w.writeHeader(&sb, p, report)
	w.writeSummary(&sb, p, report)
	if w.showEmails {
		w.writeEmails(&sb, report)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, p *message.Printer, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          MAILSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	for i, seed := range report.Seeds {
		label := "Seeds:"
		if i > 0 {
			label = ""
		}
		sb.WriteString(p.Sprintf("%-16s%s\n", label, seed))
	}
	sb.WriteString(p.Sprintf("%-16s%s\n", "Started:", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(p.Sprintf("%-16s%s\n", "Duration:", report.Duration().Round(10*time.Millisecond)))
	sb.WriteString(p.Sprintf("%-16s%d\n", "Max depth:", report.MaxDepth))
	sb.WriteString(p.Sprintf("%-16s%s\n", "DNS validation:", enabledText(report.DNSValidation)))

	if report.Interrupted {
		sb.WriteString(p.Sprintf("%-16s%s\n", "Status:", "INTERRUPTED (partial results)"))
	} else {
		sb.WriteString(p.Sprintf("%-16s%s\n", "Status:", "Complete"))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, p *message.Printer, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(p.Sprintf("  Pages fetched:   %d\n", report.Stats.PagesFetched))
	sb.WriteString(p.Sprintf("  Pages failed:    %d\n", report.Stats.PagesFailed))
	sb.WriteString(p.Sprintf("  Pages filtered:  %d\n", report.Stats.PagesFiltered))
	sb.WriteString(p.Sprintf("  Links followed:  %d\n", report.Stats.LinksEnqueued))
	sb.WriteString("\n")
	sb.WriteString(p.Sprintf("  Emails found:    %d\n", len(report.Emails)))
	if report.DNSValidation {
		sb.WriteString(p.Sprintf("  Domain resolves: %d\n", report.ValidatedCount()))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeEmails(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("EMAILS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Emails) == 0 {
		sb.WriteString("  No email addresses found\n\n")
		return
	}

	for _, e := range report.Emails {
		marker := "+"
		if !e.DNSValidated {
			marker = "?"
		}
		sb.WriteString("  [" + marker + "] " + e.Email + "\n")
	}
	sb.WriteString("\n")
	if report.DNSValidation {
		sb.WriteString("  [+] domain resolves   [?] domain did not resolve\n\n")
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by MailScan\n")
	sb.WriteString("https://github.com/nao1215/mailscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
