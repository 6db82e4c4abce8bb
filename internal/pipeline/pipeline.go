// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pipeline wires one question through the stages:
// describe schema, build prompt, generate SQL, execute and render.
//
// Only configuration, connection and introspection failures abort a run.
// A question that yields no query, or a query the database rejects, is
// reported and the run still ends normally unless FailOnError is set.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"

	errs "sqlai/cli/internal/errors"
	"sqlai/cli/internal/logging"
	"sqlai/cli/internal/observability"
	"sqlai/cli/internal/prompt"
	"sqlai/cli/internal/rotator"
	"sqlai/cli/internal/schema"
	"sqlai/cli/internal/sqlexec"

	"github.com/pterm/pterm"
)

// Describer returns the schema description of the configured namespace.
type Describer interface {
	Describe(ctx context.Context) (schema.Description, error)
}

// Generator produces a SQL candidate for a prompt.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt) rotator.Outcome
}

// Executor runs a SQL candidate.
type Executor interface {
	Execute(ctx context.Context, query string) (sqlexec.Result, error)
}

// Status is the final state of a run, also used as the metrics label.
type Status string

const (
	StatusExecuted   Status = "executed"
	StatusNoQuery    Status = "no_query"
	StatusExecFailed Status = "exec_failed"
	StatusAborted    Status = "aborted"
)

// Deps are the collaborators of a run.
type Deps struct {
	Schema    Describer
	Generator Generator
	Executor  Executor

	Logger  *slog.Logger
	Metrics *observability.Metrics
	// Out receives user-facing output; nil discards it.
	Out io.Writer
	// Output is config.OutputTable or config.OutputJSON.
	Output string
	// FailOnError turns an execution failure into a returned error.
	FailOnError bool
	// ShowPrompt prints the system prompt before generation.
	ShowPrompt bool
}

// Report summarises what happened during a run.
type Report struct {
	Status          Status
	Question        string
	Query           string
	CredentialIndex int
	Attempts        []rotator.Attempt
	Result          *sqlexec.Result
	ExecErr         error
}

// Run answers question. The returned error is non-nil only for failures that
// should end the process with a non-zero exit code.
func Run(ctx context.Context, d Deps, question string) (Report, error) {
	log := d.Logger
	if log == nil {
		log = logging.Discard()
	}
	out := d.Out
	if out == nil {
		out = io.Discard
	}

	report := Report{Question: strings.TrimSpace(question), CredentialIndex: -1}
	if report.Question == "" {
		report.Status = StatusAborted
		d.Metrics.ObserveQuery(string(report.Status))
		return report, errs.New(errs.ConfigInvalid, "question is empty")
	}

	desc, err := d.Schema.Describe(ctx)
	if err != nil {
		report.Status = StatusAborted
		d.Metrics.ObserveQuery(string(report.Status))
		return report, err
	}
	if desc.Empty() {
		log.Warn("namespace has no tables", slog.String("namespace", desc.Namespace))
	}
	log.Debug("schema described", slog.String("namespace", desc.Namespace), slog.Int("tables", len(desc.Tables)))

	p := prompt.Build(desc, report.Question)
	if d.ShowPrompt {
		pterm.Fprintln(out, p.System)
	}

	outcome := d.Generator.Generate(ctx, p)
	report.Query = outcome.Query
	report.CredentialIndex = outcome.CredentialIndex
	report.Attempts = outcome.Attempts

	if outcome.Produced() {
		pterm.Info.WithWriter(out).Printfln("Query: %s", outcome.Query)
	}

	res, err := d.Executor.Execute(ctx, outcome.Query)
	switch {
	case err == nil:
		report.Status = StatusExecuted
		report.Result = &res
		if rerr := sqlexec.Render(out, res, d.Output); rerr != nil {
			log.Warn("render result", slog.String("error", rerr.Error()))
		}
	case errs.Is(err, errs.EmptyQuery):
		report.Status = StatusNoQuery
		pterm.Warning.WithWriter(out).Println("No query could be generated for this question.")
	default:
		report.Status = StatusExecFailed
		report.ExecErr = err
		pterm.Error.WithWriter(out).Println(logging.PresentError("Error executing the query", err))
		log.Warn("query execution failed", slog.String("query", outcome.Query), slog.String("error", logging.Mask(err.Error())))
	}
	d.Metrics.ObserveQuery(string(report.Status))

	if report.Status == StatusExecFailed && d.FailOnError {
		return report, err
	}
	return report, nil
}
