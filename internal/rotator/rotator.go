// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package rotator turns a prompt into a SQL candidate by trying each configured
// API credential in order until one of them produces a non-empty answer.
package rotator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"sqlai/cli/internal/completion"
	"sqlai/cli/internal/logging"
	"sqlai/cli/internal/observability"
	"sqlai/cli/internal/prompt"
)

// Result is how a single credential attempt ended.
type Result string

const (
	ResultSuccess     Result = "success"
	ResultDeclined    Result = "declined"
	ResultRateLimited Result = "rate_limited"
	ResultTransient   Result = "transient"
	ResultFatal       Result = "fatal"
)

// Attempt records one call to the completion service.
type Attempt struct {
	Index    int
	Result   Result
	Err      error
	Duration time.Duration
}

// Outcome is the result of a full rotation. Query is empty when no credential
// produced an answer, in which case CredentialIndex is -1.
type Outcome struct {
	Query           string
	CredentialIndex int
	Attempts        []Attempt
}

// Produced reports whether a credential returned a usable query.
func (o Outcome) Produced() bool { return o.Query != "" }

// Options are the model parameters and ambient collaborators of a Generator.
type Options struct {
	Model          string
	Temperature    float32
	MaxTokens      int
	AttemptTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *observability.Metrics
}

// Generator walks the credential list strictly in order, one request per
// credential, and stops at the first non-empty answer.
type Generator struct {
	credentials []string
	factory     completion.Factory
	opts        Options
}

// New creates a Generator. The credential order is preserved as given.
func New(credentials []string, factory completion.Factory, opts Options) *Generator {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	creds := make([]string, len(credentials))
	copy(creds, credentials)
	return &Generator{credentials: creds, factory: factory, opts: opts}
}

// Generate never fails: every per-credential error is logged and rotation moves on.
// Exhausting the list yields an Outcome with an empty Query.
func (g *Generator) Generate(ctx context.Context, p prompt.Prompt) Outcome {
	out := Outcome{CredentialIndex: -1}
	log := g.opts.Logger

	if len(g.credentials) == 0 {
		log.Warn("no API credentials configured")
		return out
	}

	for i, key := range g.credentials {
		if ctx.Err() != nil {
			log.Warn("rotation interrupted", slog.Int("credential_index", i), slog.String("reason", ctx.Err().Error()))
			break
		}

		attempt := g.try(ctx, i, key, p)
		out.Attempts = append(out.Attempts, attempt.Attempt)
		g.opts.Metrics.ObserveAttempt(string(attempt.Result), attempt.Duration)

		attrs := []any{
			slog.Int("credential_index", i),
			slog.String("credential", logging.Fingerprint(key)),
			slog.Duration("duration", attempt.Duration),
		}
		switch attempt.Result {
		case ResultSuccess:
			out.Query = attempt.query
			out.CredentialIndex = i
			log.Info("query generated", append(attrs,
				slog.String("question", p.User),
				slog.String("query", attempt.query),
			)...)
			return out
		case ResultDeclined:
			log.Info("model returned an empty answer", attrs...)
		case ResultRateLimited:
			log.Warn("credential rate limited", append(attrs, slog.String("error", logging.Mask(attempt.Err.Error())))...)
		default:
			log.Warn("completion attempt failed", append(attrs,
				slog.String("result", string(attempt.Result)),
				slog.String("error", logging.Mask(attempt.Err.Error())),
			)...)
		}
	}

	log.Warn("no credential produced a query", slog.Int("attempts", len(out.Attempts)))
	return out
}

type attemptResult struct {
	Attempt
	query string
}

func (g *Generator) try(ctx context.Context, index int, key string, p prompt.Prompt) attemptResult {
	start := time.Now()
	res := attemptResult{Attempt: Attempt{Index: index}}

	client, err := g.factory(key)
	if err != nil {
		res.Result = resultFor(err)
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	attemptCtx := ctx
	if g.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, g.opts.AttemptTimeout)
		defer cancel()
	}

	text, err := client.Complete(attemptCtx, completion.Request{
		System:      p.System,
		User:        p.User,
		Model:       g.opts.Model,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	res.Duration = time.Since(start)
	if err != nil {
		res.Result = resultFor(err)
		res.Err = err
		return res
	}

	res.query = Normalize(text)
	if res.query == "" {
		res.Result = ResultDeclined
		return res
	}
	res.Result = ResultSuccess
	return res
}

func resultFor(err error) Result {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ResultTransient
	case completion.IsRateLimited(err):
		return ResultRateLimited
	case completion.KindOf(err) == completion.KindFatal:
		return ResultFatal
	default:
		return ResultTransient
	}
}

// Unescape replaces the markdown-style escaped underscore "\_" with "_".
// Applying it twice gives the same result as applying it once.
func Unescape(s string) string {
	for strings.Contains(s, `\_`) {
		s = strings.ReplaceAll(s, `\_`, "_")
	}
	return s
}

// Normalize unescapes a model reply and maps the explicit "nothing to return"
// forms (blank text, '' or "") to the empty string.
func Normalize(s string) string {
	s = strings.TrimSpace(Unescape(s))
	switch s {
	case "''", `""`:
		return ""
	}
	return s
}
