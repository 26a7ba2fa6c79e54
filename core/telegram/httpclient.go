package telegram

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/telegram/netutil"
)

const (
	dialTimeout      = 5 * time.Second
	keepAlive        = 30 * time.Second
	tlsHandshake     = 5 * time.Second
	idleConnTimeout  = 30 * time.Second
	responseTimeout  = 5 * time.Second
	clientTimeout    = 30 * time.Second
	transportRetries = 3
	transportBackoff = 2 * time.Second
)

var errNotReplayable = errors.New("telegram: request body cannot be replayed")

// BuildHTTPClient returns the client telebot uses for Bot API calls. Dial
// and timeout failures are retried at the transport level. poll is the
// getUpdates wait, which Telegram holds open before answering.
func BuildHTTPClient(poll time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshake,
		ResponseHeaderTimeout: responseTimeout + poll,
	}
	return &http.Client{
		Timeout: clientTimeout + poll,
		Transport: &retryTransport{
			base:   transport,
			policy: netutil.Policy{Retries: transportRetries, Backoff: transportBackoff},
		},
	}
}

type retryTransport struct {
	base   http.RoundTripper
	policy netutil.Policy
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	attempt := 0
	_, err := t.policy.Retry(req.Context(), func() error {
		attempt++
		try, err := rewind(req, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err = t.base.RoundTrip(try)
		return err
	}, netutil.ShouldRetry, func(err error, attempt int, delay time.Duration) {
		logger.TG.DebugContext(req.Context(), "api call retry",
			slog.String("event", "http.retry"),
			slog.String("path", apiMethod(req)),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error_kind", netutil.Classify(err)),
		)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// rewind returns a request whose body can be sent again. A body without
// GetBody cannot be replayed, so only the first attempt is allowed.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	if req.Body == nil || req.Body == http.NoBody {
		return req.Clone(req.Context()), nil
	}
	if req.GetBody == nil {
		return nil, errNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

// apiMethod returns the Bot API method from a request path without the token.
func apiMethod(req *http.Request) string {
	return path.Base(req.URL.Path)
}
