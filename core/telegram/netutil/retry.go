// Package netutil decides which failed Telegram API calls are retried and
// drives the retries with an exponential backoff.
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
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	tele "gopkg.in/telebot.v4"
)

// Policy bounds the attempts of one outbound call. Delays grow
// exponentially from Backoff and are capped by MaxDelay.
type Policy struct {
	Retries int
	Backoff time.Duration
	// MaxDelay caps a single wait, including a flood-control retry_after.
	MaxDelay time.Duration
}

// Attempts is the total number of tries, at least one.
func (p Policy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}
	return p.Retries + 1
}

// Notify observes a failed attempt that is about to be retried after delay.
type Notify func(err error, attempt int, delay time.Duration)

// Retry runs op until it succeeds, returns an error retryable rejects, runs
// out of attempts or ctx is done. It reports how many attempts ran.
func (p Policy) Retry(ctx context.Context, op func() error, retryable func(error) bool, notify Notify) (int, error) {
	flood := &floodBackOff{base: p.exponential(), max: p.MaxDelay}
	b := backoff.WithContext(backoff.WithMaxRetries(flood, uint64(p.Attempts()-1)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op()
		flood.last = err
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, delay time.Duration) {
		if notify != nil {
			notify(err, attempt, delay)
		}
	})
	return attempt, err
}

func (p Policy) exponential() *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Backoff
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	if p.MaxDelay > 0 {
		exp.MaxInterval = p.MaxDelay
	}
	exp.MaxElapsedTime = 0
	exp.Reset()
	return exp
}

// floodBackOff lets Telegram's retry_after replace the computed delay.
type floodBackOff struct {
	base backoff.BackOff
	max  time.Duration
	last error
}

func (f *floodBackOff) NextBackOff() time.Duration {
	d := f.base.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	var flood tele.FloodError
	if errors.As(f.last, &flood) && flood.RetryAfter > 0 {
		d = time.Duration(flood.RetryAfter) * time.Second
	}
	if f.max > 0 && d > f.max {
		d = f.max
	}
	return d
}

func (f *floodBackOff) Reset() {
	f.last = nil
	f.base.Reset()
}

// ShouldRetry reports whether a transport error is transient: timeouts,
// refused or reset connections and failed dials.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
		return ShouldRetry(urlErr.Err)
	}
	return false
}

// Retryable extends ShouldRetry with API answers worth another try: flood
// control and server-side failures.
func Retryable(err error) bool {
	if ShouldRetry(err) {
		return true
	}
	status := Status(err)
	return status == http.StatusTooManyRequests || status >= 500
}

// Status extracts the HTTP-like code carried by a Telegram API error, or 0.
func Status(err error) int {
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

	// telebot renders unknown API errors as "telegram: <description> (<code>)".
	msg := err.Error()
	open, closing := strings.LastIndex(msg, "("), strings.LastIndex(msg, ")")
	if open >= 0 && closing > open+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : closing])); convErr == nil {
			return code
		}
	}
	return 0
}

// Classify buckets err for the error_kind log field and metrics label.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
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

	switch status := Status(err); {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}
