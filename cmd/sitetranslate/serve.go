package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/sitetranslate/internal/server"
	"github.com/jonathan/sitetranslate/internal/server/ratelimit"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and translating proxy",
		Long:  "Start an HTTP server exposing the crawl, ingest and translate API and serving translated pages under /view.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				a.cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
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
	srv := server.New(svc, server.Config{
		Port:          a.cfg.Server.Port,
		PublicBaseURL: a.cfg.Server.PublicBaseURL,
		ReadTimeout:   a.cfg.Server.ReadTimeout,
		WriteTimeout:  a.cfg.Server.WriteTimeout,
		RateLimit:     ratelimit.LoadConfig(),
		Logger:        a.logger,
	})

	a.logger.Info("Configured",
		"database", a.cfg.Database.Driver,
		"translation", tr.Backend(),
		"cache", a.cfg.Translation.Cache.Backend,
	)
	return srv.Start(ctx)
}
