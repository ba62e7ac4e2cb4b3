// Package observability provides logging, metrics and formatted CLI output.
package observability

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/jonathan/sitetranslate/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for CLI commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for _, line := range lines {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCrawlReport outputs a summary of a crawl.
func (p *Printer) PrintCrawlReport(report *types.CrawlReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Domain:   %s\n", report.Domain))
	sb.WriteString(fmt.Sprintf("Visited:  %d (%d failed)\n", report.Visited, report.Failed))
	sb.WriteString(fmt.Sprintf("Pages:    %d\n", len(report.Pages)))
	sb.WriteString("\n")

	count := min(len(report.Pages), maxItemsToShow)
	for i := 0; i < count; i++ {
		page := report.Pages[i]
		sb.WriteString(fmt.Sprintf("  • %s  %q (%d chars)\n", page.Path, page.Title, page.TextCount))
	}
	if len(report.Pages) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Pages)-maxItemsToShow))
	}

	p.printBox("SITE MAP", sb.String())
}

// PrintIngestSummary outputs the result of storing a site's fragments.
func (p *Printer) PrintIngestSummary(resp *types.FetchWebsiteResponse) {
	if resp == nil {
		return
	}
	content := fmt.Sprintf("Website:  %s\nDomain:   %s\nStored:   %d fragments\n",
		resp.WebsiteID, resp.Domain, resp.TranslationsCount)
	p.printBox("INGESTED", content)
}

// PrintTranslateProgress outputs a single progress line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintTranslateProgress(progress types.TranslateProgress) {
	fmt.Fprintf(p.out, "\r  translated %d/%d (%d failed)", progress.Done, progress.Total, progress.Failed)
	if progress.Done == progress.Total {
		fmt.Fprintln(p.out)
	}
}

// PrintTranslateSummary outputs the final state of a translate run.
func (p *Printer) PrintTranslateSummary(domain, target string, progress types.TranslateProgress) {
	content := fmt.Sprintf("Domain:   %s\nLanguage: %s\nDone:     %d/%d\nFailed:   %d\n",
		domain, target, progress.Done, progress.Total, progress.Failed)
	p.printBox("TRANSLATED", content)
}

// WriteCrawlMarkdown writes the crawl report as a Markdown document.
func WriteCrawlMarkdown(w io.Writer, report *types.CrawlReport) error {
	md := markdown.NewMarkdown(w)

	md.H1("Site map: " + report.Domain)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Domain", "`" + report.Domain + "`"},
			{"Visited", strconv.Itoa(report.Visited)},
			{"Failed", strconv.Itoa(report.Failed)},
			{"Pages", strconv.Itoa(len(report.Pages))},
		},
	})
	md.PlainText("")

	md.H2("Pages")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Pages))
	for _, page := range report.Pages {
		lang := page.Language
		if lang == "" {
			lang = "-"
		}
		rows = append(rows, []string{
			"`" + page.Path + "`",
			escapeCell(page.Title),
			strconv.Itoa(page.TextCount),
			lang,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Path", "Title", "Text", "Language"},
		Rows:   rows,
	})

	return md.Build()
}

// escapeCell keeps pipe characters from breaking table rows.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
