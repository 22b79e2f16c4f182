package robusthttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Adapts slog to the retryablehttp logger interface. Intermediate failures are retried, so they log at WARN.
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...any) { l.inner.Warn(msg, keysAndValues...) }
func (l leveledSlog) Warn(msg string, keysAndValues ...any)  { l.inner.Warn(msg, keysAndValues...) }
func (l leveledSlog) Info(msg string, keysAndValues ...any)  { l.inner.Debug(msg, keysAndValues...) }
func (l leveledSlog) Debug(msg string, keysAndValues ...any) { l.inner.Debug(msg, keysAndValues...) }

type config struct {
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
	timeout    time.Duration
	logger     *slog.Logger
}

type Option func(*config)

func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

func WithRetryWait(waitMin, waitMax time.Duration) Option {
	return func(c *config) {
		c.waitMin = waitMin
		c.waitMax = waitMax
	}
}

// Overall timeout for one request, including retries.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Outbound HTTP client for webhooks and other best-effort calls. Retries connection errors and 5xx responses (except 501), traces requests, and has the stdlib *http.Client interface.
func NewClient(opts ...Option) *http.Client {
	cfg := config{
		maxRetries: 3,
		waitMin:    time.Second,
		waitMax:    10 * time.Second,
		timeout:    30 * time.Second,
		logger:     slog.Default().With("subsystem", "robusthttp"),
	}
	for _, o := range opts {
		o(&cfg)
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Transport = otelhttp.NewTransport(cleanhttp.DefaultPooledTransport())
	rc.RetryMax = cfg.maxRetries
	rc.RetryWaitMin = cfg.waitMin
	rc.RetryWaitMax = cfg.waitMax
	rc.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: cfg.logger})
	rc.CheckRetry = RetryPolicy

	client := rc.StandardClient()
	client.Timeout = cfg.timeout
	return client
}

// retryablehttp.DefaultRetryPolicy, except that 429 is not retried; callers decide how to back off from rate limits.
func RetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
