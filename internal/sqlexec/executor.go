// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlexec runs a generated SQL statement against the database and
// collects every row it returns.
//
// The statement runs inside a transaction which is committed or rolled back
// according to Options.Commit. Rows are fetched eagerly with no limit.
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sqlai/cli/internal/config"
	errs "sqlai/cli/internal/errors"
	"sqlai/cli/internal/logging"
)

// ErrEmptyQuery is returned under the skip policy when there is nothing to run.
var ErrEmptyQuery = errs.New(errs.EmptyQuery, "no query to execute")

// Options control how statements are submitted.
type Options struct {
	// EmptyQuery is config.EmptyQuerySkip or config.EmptyQuerySubmit.
	EmptyQuery string
	// Commit makes data changes permanent; otherwise the transaction is rolled back.
	Commit bool
	// StatementTimeout bounds a single Execute call. Zero means no limit.
	StatementTimeout time.Duration
	Logger           *slog.Logger
}

// Executor runs statements on a database/sql handle.
type Executor struct {
	db   *sql.DB
	opts Options
}

// New creates an Executor. An unknown EmptyQuery policy falls back to skip.
func New(db *sql.DB, opts Options) *Executor {
	if opts.EmptyQuery != config.EmptyQuerySubmit {
		opts.EmptyQuery = config.EmptyQuerySkip
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Executor{db: db, opts: opts}
}

// Execute runs query and returns its full result set.
// Database failures are returned as errs.ExecFailed.
func (e *Executor) Execute(ctx context.Context, query string) (Result, error) {
	res := Result{Columns: []string{}, Rows: [][]any{}}

	if strings.TrimSpace(query) == "" && e.opts.EmptyQuery == config.EmptyQuerySkip {
		return res, ErrEmptyQuery
	}

	if e.opts.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.StatementTimeout)
		defer cancel()
	}

	start := time.Now()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return res, errs.Wrap(errs.ExecFailed, "begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return res, errs.Wrap(errs.ExecFailed, "execute query", err)
	}

	res.Columns, res.Rows, err = collect(rows)
	if err != nil {
		return res, errs.Wrap(errs.ExecFailed, "read rows", err)
	}

	if e.opts.Commit {
		if err := tx.Commit(); err != nil {
			return res, errs.Wrap(errs.ExecFailed, "commit", err)
		}
	} else if err := tx.Rollback(); err != nil {
		return res, errs.Wrap(errs.ExecFailed, "rollback", err)
	}

	e.opts.Logger.Debug("query executed",
		slog.Int("columns", len(res.Columns)),
		slog.Int("rows", len(res.Rows)),
		slog.Bool("committed", e.opts.Commit),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func collect(rows *sql.Rows) ([]string, [][]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	if cols == nil {
		cols = []string{}
	}

	out := [][]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return cols, out, fmt.Errorf("scan row %d: %w", len(out)+1, err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return cols, out, err
	}
	return cols, out, nil
}
