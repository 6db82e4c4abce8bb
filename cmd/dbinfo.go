// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// dbinfoCmd shows the DSN that would be used, with the password masked, and where it came from.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show the current database connection string",
	Long: `The dbinfo command displays the database connection string (DSN) sqlai would
use, with the password masked, and the place it was read from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if strings.TrimSpace(cfg.Database.DSN) == "" {
			pterm.Warning.Println("No database connection configured")
			pterm.Println("   Please run: sqlai connect")
			return nil
		}

		masked := redactDSN(cfg.Database.DSN)

		pterm.Printfln("Using DSN from %s", cfg.Database.DSNSource)
		pterm.Println()
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Database Connection")).
			WithPadding(1).
			Println(masked)
		pterm.Println()
		pterm.Printfln("Schema: %s", cfg.Database.Schema)
		pterm.Println("To update this connection, run: sqlai connect")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}
