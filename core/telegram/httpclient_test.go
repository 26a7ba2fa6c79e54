package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tripbot/core/telegram/netutil"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRetryTransportReplaysBody(t *testing.T) {
	var bodies []string
	rt := &retryTransport{
		policy: netutil.Policy{Retries: 2, Backoff: time.Millisecond},
		base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			b, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(b))
			if len(bodies) < 2 {
				return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
			}
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
		}),
	}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendMessage", strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"text":"hi"}`, `{"text":"hi"}`}, bodies)
	assert.Equal(t, "sendMessage", apiMethod(req))
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	var calls int
	rt := &retryTransport{
		policy: netutil.Policy{Retries: 3, Backoff: time.Millisecond},
		base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("tls: bad certificate")
		}),
	}
	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/bot1:x/getMe", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBuildHTTPClientAddsPollWait(t *testing.T) {
	c := BuildHTTPClient(10 * time.Second)
	assert.Equal(t, 40*time.Second, c.Timeout)
}

func TestRetryTransportRefusesUnreplayableBody(t *testing.T) {
	var calls int
	rt := &retryTransport{
		policy: netutil.Policy{Retries: 3, Backoff: time.Millisecond},
		base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
		}),
	}
	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendDocument", io.NopCloser(strings.NewReader("doc")))
	require.NoError(t, err)
	req.GetBody = nil

	_, err = rt.RoundTrip(req)
	require.ErrorIs(t, err, errNotReplayable)
	assert.Equal(t, 1, calls)
}
