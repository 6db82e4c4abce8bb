// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strings"

	"sqlai/cli/internal/config"
	"sqlai/cli/internal/dsn"
	errs "sqlai/cli/internal/errors"
	"sqlai/cli/internal/keychain"
	"sqlai/cli/internal/logging"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// openKeychain returns the credential store. Tests replace it with an in-memory ring.
var openKeychain = keychain.GetManager

const dsnSourceFlag = "--dsn flag"
const dsnSourceKeychain = "OS keychain"

// loadConfig assembles the effective configuration for cmd: defaults, YAML file,
// .env, environment, keychain and finally any flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, errs.Wrap(errs.ConfigInvalid, "load .env", err)
	}

	var (
		cfg config.Config
		err error
	)
	if flagConfigPath != "" {
		cfg, err = config.LoadExplicit(flagConfigPath, os.LookupEnv, os.Environ)
	} else {
		path, perr := config.Path()
		if perr != nil {
			return config.Config{}, errs.Wrap(errs.ConfigInvalid, "locate config file", perr)
		}
		cfg, err = config.Load(path, os.LookupEnv, os.Environ)
	}
	if err != nil {
		return config.Config{}, errs.Wrap(errs.ConfigInvalid, "load configuration", err)
	}

	if !flagNoKeychain {
		mergeKeychain(&cfg)
	}

	flags := cmd.Flags()
	if flags.Changed("dsn") {
		cfg.Database.DSN = strings.TrimSpace(flagDSN)
		cfg.Database.DSNSource = dsnSourceFlag
	}
	if flags.Changed("schema") {
		cfg.Database.Schema = flagSchema
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = flagLogJSON
	}
	if flags.Changed("model") {
		cfg.Completion.Model = askFlags.model
	}
	if flags.Changed("output") {
		cfg.Execution.Output = askFlags.output
	}
	if flags.Changed("empty-query") {
		cfg.Execution.EmptyQuery = askFlags.emptyQuery
	}
	if flags.Changed("fail-on-error") {
		cfg.Execution.FailOnError = askFlags.failOnError
	}
	if flags.Changed("no-commit") {
		cfg.Execution.Commit = !askFlags.noCommit
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.TextfilePath = askFlags.metricsFile
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, errs.Wrap(errs.ConfigInvalid, "invalid configuration", err)
	}
	return cfg, nil
}

// mergeKeychain fills in secrets stored with `sqlai connect` and `sqlai keys add`.
// An unavailable keychain is not an error; the environment may carry everything.
func mergeKeychain(cfg *config.Config) {
	km, err := openKeychain()
	if err != nil {
		return
	}
	if stored, err := km.LoadAPIKeys(); err == nil && len(stored) > 0 {
		cfg.Completion.APIKeys = config.Credentials(os.LookupEnv, os.Environ, stored)
	}
	if cfg.Database.DSN == "" {
		if stored, err := km.LoadDBDSN(); err == nil {
			cfg.Database.DSN = stored
			cfg.Database.DSNSource = dsnSourceKeychain
		}
	}
}

// newLogger builds the run logger. Every line carries the run id.
func newLogger(cfg config.Config) *slog.Logger {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	return logging.NewLogger(logging.Options{
		Level:  level,
		JSON:   cfg.LogJSON,
		Writer: os.Stderr,
	}).With(slog.String("run_id", uuid.NewString()))
}

// database bundles the pgx pool with the database/sql view over it.
type database struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

func (d *database) Close() {
	if d == nil {
		return
	}
	_ = d.db.Close()
	d.pool.Close()
}

// poolConfig turns a configured DSN into a single-connection pool config.
// URLs with credentials are normalized first; every other form libpq accepts
// goes to pgx as written.
func poolConfig(raw string) (*pgxpool.Config, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errs.New(errs.ConfigInvalid, "no database configured; set SQLAI_DSN or run 'sqlai connect'")
	}
	conn, err := dsn.Prepare(raw)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigInvalid, "invalid database DSN", err)
	}
	poolCfg, err := pgxpool.ParseConfig(conn)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigInvalid, "invalid database DSN", err)
	}
	poolCfg.MaxConns = 1
	return poolCfg, nil
}

// redactDSN hides the password in any DSN form for display.
func redactDSN(raw string) string {
	if dsn.HasUserInfo(raw) {
		if info, err := dsn.ParseInfo(raw); err == nil {
			return info.Redacted()
		}
	}
	return logging.Mask(strings.TrimSpace(raw))
}

// openDatabase connects with a single-connection pool and pings it.
func openDatabase(ctx context.Context, cfg config.Config) (*database, error) {
	poolCfg, err := poolConfig(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := ctx, context.CancelFunc(func() {})
	if cfg.Database.ConnectTimeout > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	}
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ConnectFailed, "connect to database", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, errs.Wrap(errs.ConnectFailed, "connect to database", err)
	}

	return &database{pool: pool, db: stdlib.OpenDBFromPool(pool)}, nil
}
