package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/sitetranslate/internal/observability"
	"github.com/jonathan/sitetranslate/internal/pipeline"
	"github.com/jonathan/sitetranslate/internal/types"
)

func newTranslateCmd(a *app) *cobra.Command {
	var (
		site string
		lang string
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate every untranslated fragment of a site",
		Long:  "Send each untranslated fragment of the site to the translation backend and store the result.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := openRepository(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			tr, closeTranslator, err := newTranslator(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeTranslator()

			svc := newService(a.cfg, repo, tr, a.logger)
			target, err := resolveSite(ctx, svc, site)
			if err != nil {
				return err
			}

			printer := observability.NewPrinter(cmd.OutOrStdout())
			var last types.TranslateProgress
			_, res, err := svc.Translate(ctx, target.ID, lang, func(p types.TranslateProgress) {
				last = p
				printer.PrintTranslateProgress(p)
			})
			if err != nil {
				return fmt.Errorf("failed to translate website: %w", err)
			}

			last.Total = res.Total
			last.Failed = res.Failed
			printer.PrintTranslateSummary(target.Domain, lang, last)
			return nil
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "Website id or domain (required)")
	cmd.Flags().StringVar(&lang, "lang", "", "Target language code (required)")
	_ = cmd.MarkFlagRequired("site")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

// resolveSite accepts either a website id or a domain.
func resolveSite(ctx context.Context, svc *pipeline.Service, ref string) (*types.Site, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return svc.Site(ctx, id)
	}
	return svc.SiteByDomain(ctx, ref)
}
