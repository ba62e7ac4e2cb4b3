package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/sitetranslate/internal/observability"
)

// Output formats for the map command.
const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

func newMapCmd(a *app) *cobra.Command {
	var (
		maxPages int
		format   string
	)

	cmd := &cobra.Command{
		Use:   "map <url>",
		Short: "Crawl a site and list its pages",
		Long:  "Crawl breadth-first from the given URL within its hostname and print each page with its title and text count. Nothing is stored.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatText, formatMarkdown, formatJSON:
			default:
				return fmt.Errorf("unknown format %q (want text, markdown or json)", format)
			}

			svc := newService(a.cfg, nil, nil, a.logger)
			report, err := svc.Map(cmd.Context(), args[0], maxPages)
			if err != nil {
				return fmt.Errorf("failed to map website: %w", err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatMarkdown:
				return observability.WriteCrawlMarkdown(out, report)
			case formatJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			default:
				observability.NewPrinter(out).PrintCrawlReport(report)
				return nil
			}
		},
	}
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Maximum pages to visit (default from config)")
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text, markdown or json")
	return cmd
}
