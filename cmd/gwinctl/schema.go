package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gwin/internal/app"
	"gwin/internal/config"
)

func newSchemaCmd(_ *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the DDL generated for the registered entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := app.Catalog(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			stmts, err := app.Schema(f)
			if err != nil {
				return err
			}
			for _, stmt := range stmts {
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(stmt, ";\n")+";")
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the generated DDL to the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := requireDSN(cfg); err != nil {
				return err
			}
			cfg.Database.AutoMigrate = true

			a, err := app.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema applied for %d entities\n", len(a.Factory.Names()))
			return nil
		},
	}
}

func requireDSN(cfg config.Config) error {
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database dsn is not configured: set database.dsn or GWIN_DATABASE_DSN")
	}
	return nil
}
