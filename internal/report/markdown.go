package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/mailscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxDomainRows caps the per-domain table so that crawls of large sites
// still produce a readable summary. The email table is never truncated.
const maxDomainRows = 20

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeDomains(md, report)
	w.writeEmails(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("MailScan Report")
	md.PlainText("")

	seeds := make([]string, len(report.Seeds))
	for i, s := range report.Seeds {
		seeds[i] = "`" + s + "`"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seeds", strings.Join(seeds, "<br>")},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(10 * time.Millisecond).String()},
			{"Max Depth", strconv.Itoa(report.MaxDepth)},
			{"DNS Validation", enabledText(report.DNSValidation)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

// writeSummary writes page counters and the validation breakdown.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Summary")
	md.PlainText("")

	validated := report.ValidatedCount()
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages fetched", strconv.Itoa(report.Stats.PagesFetched)},
			{"Pages failed", strconv.Itoa(report.Stats.PagesFailed)},
			{"Pages outside allowed domains", strconv.Itoa(report.Stats.PagesFiltered)},
			{"Links followed", strconv.Itoa(report.Stats.LinksEnqueued)},
			{"**Emails found**", "**" + strconv.Itoa(len(report.Emails)) + "**"},
			{"Emails with resolving domain", strconv.Itoa(validated)},
		},
	})
	md.PlainText("")

	if report.DNSValidation && len(report.Emails) > 0 {
		w.writePieChart(md, validated, len(report.Emails)-validated)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of resolved vs unresolved domains.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, validated, unresolved int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("DNS Validation"),
		piechart.WithShowData(true),
	)

	if validated > 0 {
		chart.LabelAndIntValue("Resolved", uint64(validated))
	}
	if unresolved > 0 {
		chart.LabelAndIntValue("Unresolved", uint64(unresolved))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing the overall outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case report.Interrupted:
		md.Warningf("The crawl was interrupted. The %d email(s) below are a partial result.", len(report.Emails))
	case len(report.Emails) == 0:
		md.Note("No email addresses were found.")
	case report.Stats.PagesFailed > 0:
		md.Importantf("%d page(s) could not be fetched and were skipped.", report.Stats.PagesFailed)
	default:
		md.Tip("All reachable pages were crawled.")
	}
	md.PlainText("")
}

// writeDomains writes the number of addresses per domain.
func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, report *model.CrawlReport) {
	counts := countByDomain(report.Emails)
	if len(counts) == 0 {
		return
	}

	md.H2("Domains")
	md.PlainText("")

	shown := counts
	if len(shown) > maxDomainRows {
		shown = shown[:maxDomainRows]
	}

	rows := make([][]string, len(shown))
	for i, c := range shown {
		rows[i] = []string{"`" + c.domain + "`", strconv.Itoa(c.emails), strconv.Itoa(c.validated)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Emails", "Resolved"},
		Rows:   rows,
	})
	md.PlainText("")

	if hidden := len(counts) - len(shown); hidden > 0 {
		md.PlainTextf("%d more domain(s) not shown.", hidden)
		md.PlainText("")
	}
}

// writeEmails writes every discovered address.
func (w *MarkdownWriter) writeEmails(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Emails")
	md.PlainText("")

	if len(report.Emails) == 0 {
		md.PlainText("No email addresses found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Emails))
	for i, e := range report.Emails {
		rows[i] = []string{e.Email, lookupText(e.DNSValidated)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Email", "DNS Lookup"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [MailScan](https://github.com/nao1215/mailscan)*")
}

func statusText(report *model.CrawlReport) string {
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

func enabledText(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func lookupText(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
