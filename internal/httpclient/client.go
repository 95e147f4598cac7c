// Package httpclient is the single point through which the portal talks to
// the CIS backend. It attaches the bearer token, encodes request bodies and
// turns non-2xx responses into *HTTPError. It never caches or retries.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const loginPath = "auth/login"

// TokenSource supplies the bearer token at call time. An empty token means
// the request goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Doer is what resource repositories depend on; *Client implements it.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Request describes one backend call. Path is relative to the base URL and
// already escaped; callers escape dynamic segments with url.PathEscape.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded unless Form is set.
	Body any
	Form *Form
	// Binary requests raw bytes (ID cards, CSV exports) instead of JSON.
	Binary bool
	// Anonymous suppresses the Authorization header.
	Anonymous bool
	Timeout   time.Duration
}

// Response is a successful (2xx) backend response with the body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// ContentType returns the media type of the response without parameters.
func (r *Response) ContentType() string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// Filename returns the filename from Content-Disposition, if any.
func (r *Response) Filename() string {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}

// Client talks to the backend REST API.
type Client struct {
	http      *http.Client
	baseURL   *url.URL
	tokens    TokenSource
	limiter   *rate.Limiter
	metrics   *Metrics
	logger    *zap.Logger
	userAgent string
	timeout   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the default per-request timeout. It never modifies an
// *http.Client passed with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithTokenSource sets the credential holder consulted on every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRateLimit throttles outgoing requests. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New builds a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		baseURL:   u,
		logger:    zap.NewNop(),
		userAgent: "cis-portal/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout > 0 && c.http.Timeout != c.timeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// BaseURL returns the resolved backend root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do sends req and returns the response for 2xx statuses. Any other outcome
// is reported as *HTTPError, except request-building failures.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	path := strings.TrimLeft(req.Path, "/")
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", req.Path, err)
	}
	target := c.baseURL.ResolveReference(&url.URL{Path: unescaped, RawPath: path})
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Binary {
		httpReq.Header.Set("Accept", "*/*")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	if c.attachToken(req, path) {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resource := resourceOf(path)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.observe(req.Method, resource, 0, 0)
			return nil, transportError(ctx, err)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(req.Method, resource, 0, elapsed)
		herr := transportError(ctx, err)
		c.logger.Debug("backend request failed",
			zap.String("method", req.Method),
			zap.String("path", path),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, herr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observe(req.Method, resource, 0, elapsed)
		return nil, transportError(ctx, err)
	}
	c.metrics.observe(req.Method, resource, resp.StatusCode, elapsed)
	c.logger.Debug("backend request",
		zap.String("method", req.Method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
		zap.Int("bytes", len(raw)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, raw),
			RawBody: raw,
		}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

func (c *Client) attachToken(req Request, path string) bool {
	if c.tokens == nil || req.Anonymous {
		return false
	}
	return !(req.Method == http.MethodPost && path == loginPath)
}

func encodeBody(req Request) (io.Reader, string, error) {
	if req.Form != nil {
		buf, ct, err := req.Form.encode()
		if err != nil {
			return nil, "", fmt.Errorf("encode multipart body: %w", err)
		}
		return buf, ct, nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	raw, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode json body: %w", err)
	}
	return bytes.NewReader(raw), "application/json", nil
}

func transportError(ctx context.Context, err error) *HTTPError {
	if isTimeout(ctx, err) {
		return &HTTPError{Message: MessageTimeout, Err: err}
	}
	return &HTTPError{Message: MessageNetwork, Err: err}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// rate.Limiter reports a would-be deadline overrun without wrapping.
	return strings.Contains(err.Error(), "would exceed context deadline")
}

func errorMessage(status int, raw []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "request failed with status " + strconv.Itoa(status)
}

func resourceOf(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}
