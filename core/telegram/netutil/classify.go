package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Error kinds reported by Classify.
const (
	KindTimeout = "timeout"
	KindDNS     = "dns"
	KindDial    = "dial"
	KindTLS     = "tls"
	KindFlood   = "flood"
	Kind4xx     = "http_4xx"
	Kind5xx     = "http_5xx"
	KindUnknown = "unknown"
)

// Classify names the failure class of a Telegram API error for logs and
// metrics. It returns "" for a nil error.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return KindFlood
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindDial
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
		if kind := Classify(urlErr.Err); kind != KindUnknown {
			return kind
		}
	}
	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return KindTLS
	}

	switch status := StatusCode(err); {
	case status >= 500:
		return Kind5xx
	case status >= 400:
		return Kind4xx
	}
	return KindUnknown
}

// StatusCode extracts the HTTP status of a Telegram API error, or 0.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	// telebot formats unknown API errors as "telegram: <text> (<code>)".
	msg := err.Error()
	open, closing := strings.LastIndex(msg, "("), strings.LastIndex(msg, ")")
	if open >= 0 && closing > open+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : closing])); convErr == nil {
			return code
		}
	}
	return 0
}

// RetryAfter returns the wait Telegram asked for in a flood error, or 0.
func RetryAfter(err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return 0
}
