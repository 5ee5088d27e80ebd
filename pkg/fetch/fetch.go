// Package fetch provides a bounded-retry HTTP call wrapper with exponential backoff
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Policy configures retries
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy is three attempts with 500ms, 1s delays between them
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Backoff returns the wait after the given 1-based failed attempt
func (p Policy) Backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<(attempt-1))
}

// Doer is the subset of *http.Client used by the fetcher
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Fetcher
type Option func(*Fetcher)

// WithSleep replaces the wait between attempts
func WithSleep(sleep SleepFunc) Option {
	return func(f *Fetcher) { f.sleep = sleep }
}

// WithLimiter throttles every attempt through a token bucket
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = log.Named("fetch") }
}

// Fetcher issues requests with retry on 5xx and network errors
type Fetcher struct {
	client  Doer
	policy  Policy
	sleep   SleepFunc
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a fetcher
func New(client Doer, policy Policy, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	f := &Fetcher{
		client: client,
		policy: policy,
		sleep:  sleepContext,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Do issues req up to MaxAttempts times. A status >= 500 or a transport error is
// retried while attempts remain; any other status is returned at once. When the last
// attempt answers >= 500 that response is returned; when it fails at transport level
// the error is returned.
func (f *Fetcher) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 1; ; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := f.client.Do(attemptReq)
		last := attempt >= f.policy.MaxAttempts

		switch {
		case err != nil:
			if last {
				return nil, err
			}
			f.logger.Warn("Request failed, retrying",
				zap.String("url", req.URL.Redacted()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		case resp.StatusCode >= http.StatusInternalServerError:
			if last {
				return resp, nil
			}
			f.logger.Warn("Server error, retrying",
				zap.String("url", req.URL.Redacted()),
				zap.Int("attempt", attempt),
				zap.Int("status_code", resp.StatusCode),
			)
			drain(resp)
		default:
			return resp, nil
		}

		if err := f.sleep(ctx, f.policy.Backoff(attempt)); err != nil {
			return nil, err
		}
	}
}

// rewind returns a request with a fresh body for attempts after the first
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be replayed for attempt %d", attempt)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to reset request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
