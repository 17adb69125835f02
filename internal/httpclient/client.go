package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nahid270/MovieHub-sub000/internal/config"
	"github.com/nahid270/MovieHub-sub000/internal/ratelimit"
	"github.com/nahid270/MovieHub-sub000/internal/requestid"
)

const maxErrorBody = 512

var (
	// ErrInvalidBaseURL is returned when the configured base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("upstream base URL must be an absolute http or https URL")
	// ErrNoBaseURL is returned when a relative path is requested without a configured base URL.
	ErrNoBaseURL = errors.New("no upstream base URL configured")
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Client performs outbound HTTP calls with a shared timeout, identity and rate limit.
type Client struct {
	http      *http.Client
	baseURL   *url.URL
	userAgent string
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// Option configures Client behaviour.
type Option func(*Client)

// WithTransport overrides the underlying round tripper, primarily for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// WithLimiter overrides the outbound limiter. A nil limiter disables limiting.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// New builds a Client from upstream configuration.
func New(cfg config.Upstream, logger *zap.Logger, opts ...Option) (*Client, error) {
	var base *url.URL
	if raw := strings.TrimSpace(cfg.BaseURL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
		}
		base = parsed
	}

	c := &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		baseURL:   base,
		userAgent: cfg.UserAgent,
		limiter:   ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base URL, or nil when none is set.
func (c *Client) BaseURL() *url.URL {
	if c.baseURL == nil {
		return nil
	}
	u := *c.baseURL
	return &u
}

// CloseIdleConnections drops pooled keep-alive connections to the upstream.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// Do executes req after waiting on the outbound limiter.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := ratelimit.Wait(ctx, c.limiter); err != nil {
		return nil, fmt.Errorf("wait for outbound rate limit: %w", err)
	}

	req = req.Clone(ctx)
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	id := requestid.FromContext(ctx)
	if id != "" && req.Header.Get(requestid.Header) == "" {
		req.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", id),
	}
	if err != nil {
		c.logger.Debug("upstream request failed", append(fields, zap.Error(err))...)
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	c.logger.Debug("upstream request completed", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}

// GetJSON fetches path and decodes a 2xx JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.get(ctx, path, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

// Ping issues a GET against path and succeeds on any 2xx status.
func (c *Client) Ping(ctx context.Context, path string) error {
	resp, err := c.get(ctx, path, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) get(ctx context.Context, path, accept string) (*http.Response, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return c.Do(ctx, req)
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path %q: %w", path, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if c.baseURL == nil {
		return "", ErrNoBaseURL
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(snippet)),
	}
}
