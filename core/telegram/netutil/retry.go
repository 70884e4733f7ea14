package netutil

import (
	"errors"
	"net"
	"net/url"

	tele "gopkg.in/telebot.v4"
)

// ShouldRetry reports whether an error returned while contacting the
// Telegram API is transient: dial failures, timeouts, flood control and
// 5xx answers. Client errors (4xx) are final.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || apiErr.Code == 429
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return ShouldRetry(urlErr.Err)
		}
	}

	return false
}
