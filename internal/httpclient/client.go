// Package httpclient is the per-worker HTTP session: redirects disabled,
// TLS verification disabled (the target often has misconfigured
// certificates — that's precisely why its .git is exposed), a bounded
// transport-level retry count for connection errors, and a per-request
// timeout. Every request is a GET.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/DidierA/git-dumper/internal/metrics"
	"github.com/DidierA/git-dumper/internal/proxyspec"
)

const maxForbiddenAttempts = 5

// forbiddenBackoff is a var, not a const, so tests can shrink it instead
// of paying the real 10s cooldown on every 403-storm case.
var forbiddenBackoff = 10 * time.Second

// Client is a single worker's HTTP session. It rebuilds its transport
// (dropping cookies, connections, everything) whenever the remote
// responds 403, exactly like the reference engine's session reset.
type Client struct {
	baseURL   string
	proxySpec string
	retries   int
	timeout   time.Duration
	log       zerolog.Logger

	mu      sync.Mutex
	std     *http.Client
	metrics *metrics.Metrics
}

// SetMetrics attaches a metrics collector; nil (the default) disables
// instrumentation entirely.
func (c *Client) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// New builds a Client bound to baseURL with retries connection-level
// retries, a per-request timeout, and an optional proxy spec (see
// internal/proxyspec for the grammar).
func New(baseURL string, retries int, timeout time.Duration, proxySpec string, log zerolog.Logger) (*Client, error) {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		proxySpec: proxySpec,
		retries:   retries,
		timeout:   timeout,
		log:       log,
	}
	if err := c.Reset(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reset tears down and rebuilds the underlying session, dropping any
// cookies or pooled connections. Called automatically on every HTTP 403.
func (c *Client) Reset() error {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // intentional, see package doc
	}

	if c.proxySpec != "" {
		if err := proxyspec.Apply(c.proxySpec, transport); err != nil {
			return fmt.Errorf("httpclient: configure proxy: %w", err)
		}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = c.retries
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = c.timeout
	retryClient.HTTPClient.Transport = transport
	retryClient.CheckRetry = connectionErrorsOnly

	// Redirects are surfaced to the caller, never followed. The inner
	// client performs the actual request, so it needs the policy too.
	noRedirect := func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	retryClient.HTTPClient.CheckRedirect = noRedirect

	std := retryClient.StandardClient()
	std.Timeout = c.timeout
	std.CheckRedirect = noRedirect

	c.mu.Lock()
	c.std = std
	c.mu.Unlock()
	return nil
}

// connectionErrorsOnly retries only transport-level failures (DNS,
// connection refused/reset, TLS handshake) — never on a status code.
// Status-code-driven retry (specifically 403) is the worker-visible
// back-off loop in Get, not a transport concern.
func connectionErrorsOnly(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

func (c *Client) httpClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.std
}

// URL joins the client's base URL with a remote-relative path.
func (c *Client) URL(relPath string) string {
	return c.baseURL + "/" + strings.TrimLeft(relPath, "/")
}

// Get performs the 403-retry loop shared by every fetch in every worker
// (spec §4.5): up to 5 attempts; 403 rebuilds the session and sleeps 10s;
// any other status (including a terminal 403) is returned to the caller.
// The caller owns resp.Body and must close it.
func (c *Client) Get(ctx context.Context, relPath string) (*http.Response, error) {
	url := c.URL(relPath)

	var resp *http.Response
	for attempt := 1; attempt <= maxForbiddenAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpclient: build request for %s: %w", url, err)
		}

		start := time.Now()
		resp, err = c.httpClient().Do(req)
		if err != nil {
			return nil, fmt.Errorf("httpclient: GET %s: %w", url, err)
		}
		c.observe(resp.StatusCode, time.Since(start))

		c.log.Info().
			Int("attempt", attempt).
			Str("url", url).
			Int("status", resp.StatusCode).
			Msg("fetching")

		if resp.StatusCode != http.StatusForbidden || attempt == maxForbiddenAttempts {
			return resp, nil
		}

		resp.Body.Close()
		if err := c.Reset(); err != nil {
			return nil, err
		}
		time.Sleep(forbiddenBackoff)
	}

	return resp, nil
}

// ProbeGet is Get under another name for the orchestrator's Phase 0/1
// probes, which share the same session and 403-retry shape as every
// worker fetch but aren't dispatched through a worker pool.
func (c *Client) ProbeGet(ctx context.Context, relPath string) (*http.Response, error) {
	return c.Get(ctx, relPath)
}

func (c *Client) observe(status int, dur time.Duration) {
	if c.metrics == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	c.metrics.HTTPRequestsTotal.WithLabelValues(statusLabel).Inc()
	c.metrics.HTTPRequestSeconds.WithLabelValues(statusLabel).Observe(dur.Seconds())
}
