// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package completion is the boundary to the hosted chat-completion service.
// Callers see a Client that turns a system/user message pair into text, and an
// Error whose Kind says whether the failure was a rate limit, something worth
// trying again elsewhere, or a hard rejection. Wire-level error shapes stay
// inside this package.
package completion

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed completion request.
type Kind string

const (
	// KindRateLimited is an HTTP 429 from the service.
	KindRateLimited Kind = "rate_limited"
	// KindTransient covers timeouts, network failures and 5xx responses.
	KindTransient Kind = "transient"
	// KindFatal covers rejected credentials, bad requests and malformed replies.
	KindFatal Kind = "fatal"
)

// Request is one chat-completion call.
type Request struct {
	System      string
	User        string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client sends a single synchronous completion request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Factory builds a Client bound to one API credential.
type Factory func(apiKey string) (Client, error)

// Error is returned by Client implementations in this package.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("completion %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err. Errors from outside this package are
// treated as transient unless they are nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransient
}

// IsRateLimited reports whether err is an HTTP 429.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}
