// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"

	errs "sqlai/cli/internal/errors"
	"sqlai/cli/internal/prompt"
	"sqlai/cli/internal/schema"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var schemaShowPrompt bool

var schemaCmd = &cobra.Command{
	Use:   "schema [table]",
	Short: "Print the schema description the model will see",
	Long: `The schema command prints the tables and columns of the configured schema in
the form the model receives. Name a table to print only that table.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		stopSpinner := startSpinner("reading schema")
		db, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			stopSpinner()
			return err
		}
		defer db.Close()

		desc, err := schema.NewIntrospector(db.db, cfg.Database.Schema).Describe(cmd.Context())
		stopSpinner()
		if err != nil {
			return err
		}

		var table string
		if len(args) == 1 {
			table = args[0]
		}
		return writeSchema(cmd.OutOrStdout(), desc, table, schemaShowPrompt)
	},
}

// writeSchema prints desc, or only the named table, as text or as the system prompt.
func writeSchema(out io.Writer, desc schema.Description, table string, showPrompt bool) error {
	rendered := desc.Render()
	if table != "" {
		t, ok := desc.Table(table)
		if !ok {
			return errs.New(errs.ConfigInvalid, fmt.Sprintf("table %q not found in schema %q", table, desc.Namespace))
		}
		rendered = t.Render()
	}

	if showPrompt {
		_, err := fmt.Fprintln(out, prompt.BuildWithRenderedSchema(rendered, "").System)
		return err
	}
	if desc.Empty() {
		pterm.Warning.WithWriter(out).Printfln("Schema %q has no tables.", desc.Namespace)
		return nil
	}
	_, err := fmt.Fprint(out, rendered)
	return err
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolVar(&schemaShowPrompt, "prompt", false, "Print the full system prompt instead of the schema alone")
}
