// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"io"
	"log/slog"
	"strings"

	"sqlai/cli/internal/completion"
	"sqlai/cli/internal/config"
	errs "sqlai/cli/internal/errors"
	"sqlai/cli/internal/httperrors"
	"sqlai/cli/internal/observability"
	"sqlai/cli/internal/pipeline"
	"sqlai/cli/internal/rotator"
	"sqlai/cli/internal/schema"
	"sqlai/cli/internal/sqlexec"
	"sqlai/cli/internal/terminal"

	"github.com/spf13/cobra"
)

var askFlags struct {
	output      string
	emptyQuery  string
	model       string
	metricsFile string
	failOnError bool
	noCommit    bool
	showPrompt  bool
}

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Translate a question into SQL and run it",
	Long: `Describe the configured schema, ask the language model for a single SQL
statement answering the question and execute it.

Pass "-" to read the question from standard input.`,
	Example: `  sqlai ask how many employees are older than 30
  echo "top 5 customers by revenue" | sqlai ask -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		question, err := questionFrom(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := newLogger(cfg)
		log.Debug("configuration loaded",
			slog.String("dsn_source", cfg.Database.DSNSource),
			slog.String("schema", cfg.Database.Schema),
			slog.String("model", cfg.Completion.Model),
			slog.Int("credentials", len(cfg.Completion.APIKeys)),
		)
		if len(cfg.Completion.APIKeys) == 0 {
			log.Warn("no API keys configured; set SQLAI_API_KEYS or run 'sqlai keys add'")
		}

		stopSpinner := startSpinner("connecting to the database")
		db, err := openDatabase(ctx, cfg)
		stopSpinner()
		if err != nil {
			return err
		}
		defer db.Close()

		metricsPath, err := cfg.Metrics.ResolvedTextfilePath()
		if err != nil {
			log.Warn("metrics textfile disabled", slog.String("error", err.Error()))
		}
		metrics := observability.New()
		defer func() {
			if werr := metrics.WriteTextfile(metricsPath); werr != nil {
				log.Warn("metrics not written", slog.String("error", werr.Error()))
			}
		}()

		report, err := pipeline.Run(ctx, newPipelineDeps(cmd.OutOrStdout(), cfg, db, log, metrics), question)
		if netErr := completionNetworkError(report.Attempts); netErr != nil {
			_ = httperrors.FormatNetworkError(netErr, "contacting the completion service",
				httperrors.ExtractHostFromURL(cfg.Completion.BaseURL))
		}
		return err
	},
}

// completionNetworkError returns the last attempt error when every attempt
// failed before reaching the completion service, and nil otherwise.
func completionNetworkError(attempts []rotator.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	for _, a := range attempts {
		if a.Result != rotator.ResultTransient || !httperrors.IsNetworkError(a.Err) {
			return nil
		}
	}
	return attempts[len(attempts)-1].Err
}

func newPipelineDeps(out io.Writer, cfg config.Config, db *database, log *slog.Logger, metrics *observability.Metrics) pipeline.Deps {
	factory := completion.NewOpenAIFactory(completion.OpenAIConfig{
		BaseURL: cfg.Completion.BaseURL,
		Timeout: cfg.Completion.AttemptTimeout,
	})
	return pipeline.Deps{
		Schema: schema.NewIntrospector(db.db, cfg.Database.Schema),
		Generator: rotator.New(cfg.Completion.APIKeys, factory, rotator.Options{
			Model:          cfg.Completion.Model,
			Temperature:    cfg.Completion.Temperature,
			MaxTokens:      cfg.Completion.MaxTokens,
			AttemptTimeout: cfg.Completion.AttemptTimeout,
			Logger:         log,
			Metrics:        metrics,
		}),
		Executor: sqlexec.New(db.db, sqlexec.Options{
			EmptyQuery:       cfg.Execution.EmptyQuery,
			Commit:           cfg.Execution.Commit,
			StatementTimeout: cfg.Database.StatementTimeout,
			Logger:           log,
		}),
		Logger:      log,
		Metrics:     metrics,
		Out:         out,
		Output:      cfg.Execution.Output,
		FailOnError: cfg.Execution.FailOnError,
		ShowPrompt:  askFlags.showPrompt,
	}
}

// questionFrom joins the positional arguments, or reads stdin for a lone "-".
func questionFrom(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		q, err := terminal.ReadAll(stdin)
		if err != nil {
			return "", errs.Wrap(errs.ConfigInvalid, "read question", err)
		}
		args = []string{q}
	}
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return "", errs.New(errs.ConfigInvalid, "a question is required")
	}
	return q, nil
}

func init() {
	rootCmd.AddCommand(askCmd)

	f := askCmd.Flags()
	f.StringVarP(&askFlags.output, "output", "o", config.OutputTable, "Result format: table or json")
	f.StringVar(&askFlags.emptyQuery, "empty-query", config.EmptyQuerySkip, "What to do when no query is produced: skip or submit")
	f.StringVar(&askFlags.model, "model", "", "Model identifier sent to the completion service")
	f.StringVar(&askFlags.metricsFile, "metrics-file", "", `Write Prometheus metrics to this textfile when the run ends ("auto" for the XDG state dir)`)
	f.BoolVar(&askFlags.failOnError, "fail-on-error", false, "Exit non-zero when the database rejects the generated query")
	f.BoolVar(&askFlags.noCommit, "no-commit", false, "Roll back instead of committing the statement")
	f.BoolVar(&askFlags.showPrompt, "show-prompt", false, "Print the system prompt sent to the model")
}
