package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/trialviz/pkg/cache"
	errs "github.com/matzehuels/trialviz/pkg/errors"
	"github.com/matzehuels/trialviz/pkg/observability"
)

const (
	defaultAttempts = 3
	defaultDelay    = time.Second
	defaultTimeout  = 30 * time.Second
	maxBodySize     = 64 << 20

	cacheNamespace = "trials"
)

// Client performs cached, retried GET requests.
type Client struct {
	http     *http.Client
	attempts int
	delay    time.Duration
	cache    cache.Cache
	keyer    cache.Keyer
	ttl      time.Duration
	header   http.Header
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithRetry sets the attempt count and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) { c.attempts, c.delay = attempts, delay }
}

// WithCache caches successful response bodies for ttl.
func WithCache(cc cache.Cache, ttl time.Duration) Option {
	return func(c *Client) { c.cache, c.ttl = cc, ttl }
}

// WithKeyer sets the cache key layout.
func WithKeyer(k cache.Keyer) Option { return func(c *Client) { c.keyer = k } }

// WithHeader adds a request header sent with every request.
func WithHeader(key, value string) Option { return func(c *Client) { c.header.Add(key, value) } }

// NewClient returns a client with a 30 second timeout, 3 attempts and no
// caching.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: defaultTimeout},
		attempts: defaultAttempts,
		delay:    defaultDelay,
		cache:    cache.NewNullCache(),
		keyer:    cache.NewDefaultKeyer(),
		header:   http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the body of a 200 response for rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := errs.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	key := c.keyer.HTTPKey(cacheNamespace, rawURL)
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return data, nil
	}

	var body []byte
	err := Retry(ctx, c.attempts, c.delay, func() error {
		var err error
		body, err = c.do(ctx, rawURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, body, c.ttl)
	return body, nil
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "build request")
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")

	host, path := req.URL.Host, req.URL.Path
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "GET %s", redact(req.URL)))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.New(errs.ErrCodeNotFound, "GET %s: not found", redact(req.URL))
	case resp.StatusCode == http.StatusTooManyRequests:
		after, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return nil, Retryable(&errs.RateLimitedError{RetryAfter: after})
	case resp.StatusCode >= 500:
		return nil, Retryable(errs.New(errs.ErrCodeNetwork, "GET %s: %s", redact(req.URL), resp.Status))
	default:
		return nil, errs.New(errs.ErrCodeNetwork, "GET %s: %s", redact(req.URL), resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, Retryable(fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

func redact(u *url.URL) string {
	return u.Redacted()
}
