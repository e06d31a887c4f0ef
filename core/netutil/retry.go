package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
)

// StatusCoder is implemented by errors that carry the HTTP status of a failed API call.
type StatusCoder interface {
	StatusCode() int
}

var statusRe = regexp.MustCompile(`(?:status code:?|\()\s*([1-5][0-9]{2})\b`)

// ShouldRetry reports whether err is a transient failure worth another attempt:
// dial and timeout errors, 429 and 5xx responses. Cancellation is never retried.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Timeout() || opErr.Op == "dial") {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) && ShouldRetry(urlErr.Err) {
			return true
		}
	}

	code := HTTPStatus(err)
	return code == http.StatusTooManyRequests || code >= 500
}

// Classify maps err to a short label for logs: timeout, dns, dial, tls,
// http_4xx, http_5xx, cancelled or unknown.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	switch code := HTTPStatus(err); {
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// HTTPStatus extracts an HTTP status from err, either through StatusCoder or
// from a trailing "status code: NNN" / "(NNN)" in the message. Zero means unknown.
func HTTPStatus(err error) int {
	if err == nil {
		return 0
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	m := statusRe.FindAllStringSubmatch(err.Error(), -1)
	if len(m) == 0 {
		return 0
	}
	code, _ := strconv.Atoi(m[len(m)-1][1])
	return code
}
