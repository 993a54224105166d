package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindAuth        Kind = "authentication"
	KindRateLimit   Kind = "rate limit"
	KindConnection  Kind = "connection"
	KindTimeout     Kind = "timeout"
	KindServer      Kind = "server"
	KindBadRequest  Kind = "bad request"
	KindBadResponse Kind = "bad response"
)

// Error is a failed provider call. The message always contains the kind so that
// text-based classification of the error agrees with Kind.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(" ")
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether retrying the same request may succeed.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindRateLimit, KindConnection, KindTimeout, KindServer:
		return true
	}
	return false
}

func asError(err error) (*Error, bool) {
	var pe *Error
	ok := errors.As(err, &pe)
	return pe, ok
}

// KindOf returns the kind of the provider error wrapped in err, if any.
func KindOf(err error) (Kind, bool) {
	if pe, ok := asError(err); ok {
		return pe.Kind, true
	}
	return "", false
}

// IsTransient reports whether err is a transient provider error.
func IsTransient(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Transient()
}

func statusKind(code int, body string) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 500:
		return KindServer
	case code == http.StatusBadRequest && strings.Contains(strings.ToLower(body), "api key"):
		// Gemini answers 400 API_KEY_INVALID for a bad key.
		return KindAuth
	default:
		return KindBadRequest
	}
}

func transportError(provider string, err error) *Error {
	kind := KindConnection
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Provider: provider, Kind: kind, Err: err}
}

func retryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
