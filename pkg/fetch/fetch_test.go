package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func statusSequence(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		status := statuses[len(statuses)-1]
		if int(n) <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, http.StatusText(status))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRetriesServerErrorsThenSucceeds(t *testing.T) {
	srv, calls := statusSequence(t, 500, 500, 200)
	sleeps := &recordedSleeps{}
	f := New(srv.Client(), DefaultPolicy(), WithSleep(sleeps.sleep), WithLogger(zaptest.NewLogger(t)))

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := f.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, sleeps.delays)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	srv, calls := statusSequence(t, 404)
	sleeps := &recordedSleeps{}
	f := New(srv.Client(), DefaultPolicy(), WithSleep(sleeps.sleep))

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := f.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Empty(t, sleeps.delays)
}

func TestExhaustedServerErrorsReturnLastResponse(t *testing.T) {
	srv, calls := statusSequence(t, 503)
	sleeps := &recordedSleeps{}
	f := New(srv.Client(), DefaultPolicy(), WithSleep(sleeps.sleep))

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := f.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.Len(t, sleeps.delays, 2)
}

type failingDoer struct {
	calls int
	err   error
}

func (d *failingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return nil, d.err
}

func TestNetworkErrorPropagatesAfterLastAttempt(t *testing.T) {
	netErr := errors.New("connection refused")
	doer := &failingDoer{err: netErr}
	sleeps := &recordedSleeps{}
	f := New(doer, DefaultPolicy(), WithSleep(sleeps.sleep))

	req, err := http.NewRequest(http.MethodGet, "http://nutrition.invalid/search", nil)
	require.NoError(t, err)

	resp, err := f.Do(req)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, netErr)
	assert.Equal(t, 3, doer.calls)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, sleeps.delays)
}

func TestRequestBodyIsReplayed(t *testing.T) {
	var bodies []string
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(srv.Client(), Policy{MaxAttempts: 2, BaseDelay: time.Millisecond})
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"q":"mehl"}`))
	require.NoError(t, err)

	resp, err := f.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{`{"q":"mehl"}`, `{"q":"mehl"}`}, bodies)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 500*time.Millisecond, p.Backoff(1))
	assert.Equal(t, time.Second, p.Backoff(2))
	assert.Equal(t, 2*time.Second, p.Backoff(3))
}
