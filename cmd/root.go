// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for sqlai.
// It turns natural-language questions into SQL against a PostgreSQL database
// using a hosted language model, and manages the stored connection and keys.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	errs "sqlai/cli/internal/errors"
	"sqlai/cli/internal/httperrors"
	"sqlai/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	showVersion    bool
	flagDSN        string
	flagSchema     string
	flagVerbose    bool
	flagLogJSON    bool
	flagConfigPath string
	flagNoKeychain bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sqlai",
	Short: "Ask questions about a PostgreSQL database in plain language",
	Long: `sqlai reads the schema of a PostgreSQL database, asks a language model to
translate your question into a single SQL statement and runs it.

API keys are tried in order until one of them produces a query.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "sqlai %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI and exits non-zero when a command returns an error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		stop()
		os.Exit(1)
	}
}

func reportError(err error) {
	if errs.Is(err, errs.ConnectFailed) && httperrors.IsNetworkError(err) {
		_ = httperrors.FormatNetworkError(err, "connecting to the database", "The database server")
	}
	pterm.Error.WithWriter(os.Stderr).Println(logging.PresentError("", err))
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show the CLI version")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDSN, "dsn", "", "PostgreSQL connection string (overrides SQLAI_DSN and the keychain)")
	pf.StringVar(&flagSchema, "schema", "", "Database schema (namespace) to describe")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&flagLogJSON, "log-json", false, "Write logs as JSON")
	pf.StringVar(&flagConfigPath, "config", "", "Path to the YAML config file")
	pf.BoolVar(&flagNoKeychain, "no-keychain", false, "Do not read secrets from the OS keychain")
}
