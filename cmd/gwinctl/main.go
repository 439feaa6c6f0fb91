// Package main implements gwinctl, the command line tool that inspects the
// entity configuration and prepares the database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gwin/internal/config"
	"gwin/pkg/logger"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "gwinctl",
		Short:         "Inspect gwin entities and manage their database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			log, err := logger.New(logger.Config{Level: level, Development: true, OutputPaths: []string{"stderr"}})
			if err != nil {
				return err
			}
			cmd.SetContext(logger.WithLogger(contextOf(cmd), log))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("GWIN_CONFIG"), "path to the YAML configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newDescribeCmd(opts),
		newCheckCmd(opts),
		newSchemaCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
	)
	return root
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (o *options) load() (config.Config, error) {
	return config.Load(o.configPath)
}
