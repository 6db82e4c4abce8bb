// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors recognises common network failures and explains them to the user.
package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// Category is a coarse description of a network failure.
type Category string

const (
	CategoryNone              Category = ""
	CategoryTimeout           Category = "timeout"
	CategoryDNS               Category = "dns"
	CategoryConnectionRefused Category = "connection_refused"
	CategoryTLS               Category = "tls"
	CategoryServer            Category = "server"
	CategoryOther             Category = "other"
)

// Classify returns the Category that best describes err.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case IsTimeout(err):
		return CategoryTimeout
	case IsDNSError(err):
		return CategoryDNS
	case IsConnectionRefused(err):
		return CategoryConnectionRefused
	case IsTLSError(err):
		return CategoryTLS
	case isServerError(err.Error()):
		return CategoryServer
	default:
		return CategoryOther
	}
}

// IsNetworkError reports whether err looks like a transport-level failure
// rather than a response the server chose to send.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if IsTimeout(err) || IsDNSError(err) || IsConnectionRefused(err) || IsTLSError(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// IsTimeout reports whether err is a deadline or socket timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded")
}

// IsDNSError reports whether err is a name resolution failure.
func IsDNSError(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsConnectionRefused reports whether the peer refused the connection.
func IsConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// IsTLSError reports whether the TLS handshake or certificate check failed.
func IsTLSError(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "tls") ||
		strings.Contains(lower, "x509") ||
		strings.Contains(lower, "certificate") ||
		strings.Contains(lower, "handshake")
}

func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	for _, marker := range []string{
		"status 500", "status 502", "status 503", "status 504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// FormatNetworkError prints troubleshooting hints for err and returns it wrapped.
// host names the remote side in the hints, e.g. the completion API host.
func FormatNetworkError(err error, action, host string) error {
	if err == nil {
		return nil
	}
	if host == "" {
		host = "the server"
	}

	switch Classify(err) {
	case CategoryTimeout:
		pterm.Printf("⏱️  Timed out while %s\n\n", action)
		pterm.Printf("%s took too long to respond. This could mean:\n", host)
		pterm.Println("  • Slow or congested network")
		pterm.Println("  • The service is under heavy load")
		pterm.Println("  • A firewall is silently dropping the connection")
	case CategoryDNS:
		pterm.Printf("🌐 Cannot resolve %s while %s\n\n", host, action)
		pterm.Println("Please check your DNS settings and that the host name is spelled correctly.")
	case CategoryConnectionRefused:
		pterm.Printf("🚫 Connection refused while %s\n\n", action)
		pterm.Printf("%s is not accepting connections. Check the address, port and firewall rules.\n", host)
	case CategoryTLS:
		pterm.Printf("🔒 Secure connection failed while %s\n\n", action)
		pterm.Println("Check the system clock, proxy settings and the server certificate.")
	case CategoryServer:
		pterm.Printf("⚠️  %s returned a server error while %s\n\n", host, action)
		pterm.Println("This is usually temporary. Please try again in a few minutes.")
	default:
		pterm.Printf("❌ Network error while %s\n\n", action)
		details := err.Error()
		if len(details) > 100 {
			details = details[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", details)
	}
	pterm.Println()

	return fmt.Errorf("network error: %w", err)
}

// ExtractHostFromURL returns the host part of urlStr, or "server" when there is none.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
