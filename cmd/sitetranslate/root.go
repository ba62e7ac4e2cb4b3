package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jonathan/sitetranslate/internal/config"
	"github.com/jonathan/sitetranslate/internal/observability"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	configPath string
	logLevel   string

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sitetranslate",
		Short: "Crawl websites, store their text and serve translated copies",
		Long: "sitetranslate maps a website within one hostname, stores the text of selected pages, " +
			"fills in translations through a translation backend and serves the pages rewritten " +
			"in the target language.",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(_ *cobra.Command, _ []string) { a.teardown() },
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newServeCmd(a),
		newMapCmd(a),
		newIngestCmd(a),
		newTranslateCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// setup loads configuration and installs the process logger. Logs go to
// stderr so command output on stdout stays machine-readable.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	a.logger, a.logCloser = observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}, cmd.ErrOrStderr())
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) teardown() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}
