package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gwin/internal/app"
	"gwin/internal/core/apperror"
)

func newDescribeCmd(_ *options) *cobra.Command {
	var (
		format string
		menu   bool
	)
	cmd := &cobra.Command{
		Use:   "describe [entity...]",
		Short: "Print the resolved configuration of entities",
		Long: `Prints the configuration built from the struct tags of the registered
entities: properties, natures, relationships and surfaces. Without arguments
every entity is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := app.Catalog(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			reg := f.Registry()

			if menu {
				return write(cmd.OutOrStdout(), format, reg.Menu())
			}
			defs := reg.List()
			if len(args) > 0 {
				defs = defs[:0:0]
				for _, name := range args {
					def, ok := reg.Lookup(name)
					if !ok {
						return apperror.NewUnknownEntity(name)
					}
					defs = append(defs, def)
				}
			}
			return write(cmd.OutOrStdout(), format, defs)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "yaml", "output format: yaml or json")
	cmd.Flags().BoolVar(&menu, "menu", false, "print the menu groups instead")
	return cmd
}

func newCheckCmd(_ *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration of every registered entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := app.Catalog(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok: %d entities\n", len(f.Names()))
			return nil
		},
	}
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown format %q", format)
}
