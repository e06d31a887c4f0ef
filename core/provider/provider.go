// Package provider wraps hosted AI chat backends behind one Ask capability.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/m3rciful/askbot/core/netutil"
)

// ID names a backend. The set is closed; adding a backend means adding an ID and a Provider.
type ID string

const (
	Gemini  ID = "gemini"
	ChatGPT ID = "chatgpt"
)

func (id ID) String() string { return string(id) }

// Provider answers a single free-text question.
type Provider interface {
	ID() ID
	Ask(ctx context.Context, question string) (string, error)
}

// Kind classifies a provider failure.
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindNetwork   Kind = "network"
	KindQuota     Kind = "quota"
	KindMalformed Kind = "malformed"
	KindUnknown   Kind = "unknown"
)

var (
	// ErrEmptyAnswer is returned when a backend responds without usable text.
	ErrEmptyAnswer = errors.New("empty answer")
	// ErrNotConfigured is returned when asking a backend the gateway does not know.
	ErrNotConfigured = errors.New("provider not configured")
)

// Error is the only error type Gateway.Ask returns.
type Error struct {
	Provider ID
	Kind     Kind
	// Status is the HTTP status of the failed call, 0 when unknown.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (%d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
// Quota failures are not retried; they do not clear within a reply window.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindUnknown:
		return e.Status >= 500
	}
	return false
}

// statusFunc extracts an HTTP status from a backend specific error type.
type statusFunc func(error) (status int, quota bool)

// classify wraps err into *Error. Backend specific status extraction runs first.
func classify(id ID, err error, status statusFunc) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	e := &Error{Provider: id, Kind: KindUnknown, Err: err}

	quota := false
	if status != nil {
		e.Status, quota = status(err)
	}
	if e.Status == 0 {
		e.Status = netutil.HTTPStatus(err)
	}

	switch {
	case errors.Is(err, ErrEmptyAnswer):
		e.Kind = KindMalformed
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindTimeout
	case quota || e.Status == http.StatusTooManyRequests || e.Status == http.StatusPaymentRequired:
		e.Kind = KindQuota
	default:
		switch netutil.Classify(err) {
		case "timeout":
			e.Kind = KindTimeout
		case "dns", "dial", "tls":
			e.Kind = KindNetwork
		}
		if e.Kind == KindUnknown && netutil.ShouldRetry(err) {
			e.Kind = KindNetwork
		}
	}
	return e
}
