package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/sitetranslate/internal/config"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Long:  "Apply the embedded schema to the configured database. Existing tables are left in place.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Opening a repository applies the schema for both drivers.
			repo, err := openRepository(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			repo.Close()

			where := a.cfg.Database.SQLitePath
			if a.cfg.Database.Driver == config.DriverPostgres {
				where = "postgres"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Schema applied (%s)\n", where)
			return err
		},
	}
}
