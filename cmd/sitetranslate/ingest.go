package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/sitetranslate/internal/observability"
)

func newIngestCmd(a *app) *cobra.Command {
	var pages []string

	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Store the text of selected pages",
		Long:  "Fetch each selected page of the site and store its text fragments untranslated.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := openRepository(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			svc := newService(a.cfg, repo, nil, a.logger)
			result, err := svc.Ingest(ctx, args[0], pages)
			if err != nil {
				return fmt.Errorf("failed to ingest website: %w", err)
			}

			observability.NewPrinter(cmd.OutOrStdout()).PrintIngestSummary(result.Response())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&pages, "pages", []string{"/"}, "Comma-separated site paths to store")
	return cmd
}
