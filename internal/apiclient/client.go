// Package apiclient is the access envelope for the collaboration API. Every
// call carries the session's bearer token, transparently refreshes it once on
// an unauthorized response, and reports its outcome as a Result instead of
// an error so callers always branch on success explicitly.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/teamboard/internal/session"
)

// RefreshPath is the cookie-authenticated endpoint that mints a new bearer
// token. Requests to it never trigger a nested refresh.
const RefreshPath = "/refresh"

// maxResponseSize limits the response body read into memory.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Request describes one API call.
type Request struct {
	Method string
	// Path is relative to the client's base URL, e.g. "/teams/3".
	Path string
	Body Body
	// Header holds extra headers. Content-Type and Authorization are always
	// set by the client.
	Header http.Header
}

// Client issues authenticated requests against the collaboration API.
type Client struct {
	baseURL    string
	session    *session.Session
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	metrics    *Metrics
	userAgent  string
	// timeout overrides the HTTP client timeout when positive.
	timeout time.Duration

	refreshGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The client is copied, and a cookie
// jar is attached to the copy when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout bounds each HTTP exchange, whatever HTTP client is in use.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRateLimit paces outgoing requests to rps per second. Zero disables it.
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

// WithMetrics records request and refresh counters.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, sess *session.Session, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if sess == nil {
		sess, _ = session.New(nil)
	}

	c := &Client{
		baseURL: base.String(),
		session: sess,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    slog.Default(),
		userAgent: "teamboard",
	}

	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	if hc.Jar == nil {
		jar, err := newPersistentJar(base, sess.Storage(), c.logger)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	c.httpClient = &hc

	return c, nil
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// BaseURL returns the API root all paths are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string) Result {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, path string, body Body) Result {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, path string, body Body) Result {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) Result {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// Do sends req and reconciles the session with the response. An unauthorized
// response triggers at most one refresh followed by at most one retry.
func (c *Client) Do(ctx context.Context, req Request) Result {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	payload, contentType, err := encodeBody(req.Body)
	if err != nil {
		return Result{Error: err.Error()}
	}

	resp, err := c.send(ctx, req, payload, contentType, c.session.Token())
	if err != nil {
		c.logger.Warn("API transport failure", "method", req.Method, "path", req.Path, "error", err)
		return Result{Error: MsgNetworkError}
	}
	if resp.ok() {
		return resp.result()
	}

	c.logger.Warn("API error", "method", req.Method, "path", req.Path, "status", resp.status)

	if resp.status == http.StatusUnauthorized && req.Path != RefreshPath {
		token, ok := c.refreshToken(ctx)
		if !ok && ctx.Err() != nil {
			// The caller gave up; the refresh cookie may still be good.
			return Result{Error: MsgNetworkError}
		}
		if !ok {
			c.logger.Info("Token refresh failed, clearing session")
			c.clearSession()
			return Result{Error: MsgAuthExpired, Status: resp.status}
		}

		c.logger.Info("Token refreshed, retrying request", "method", req.Method, "path", req.Path)
		retry, err := c.send(ctx, req, payload, contentType, token)
		if err != nil {
			c.logger.Warn("API transport failure on retry", "method", req.Method, "path", req.Path, "error", err)
			return Result{Error: MsgNetworkError}
		}
		if retry.ok() {
			return retry.result()
		}

		c.logger.Warn("Retry after refresh failed", "method", req.Method, "path", req.Path, "status", retry.status)
		c.clearSession()
		return Result{Error: serverMessage(retry.body, MsgAuthFailed), Status: retry.status}
	}

	if resp.status == http.StatusUnauthorized {
		c.clearSession()
	}
	return Result{Error: serverMessage(resp.body, MsgGenericError), Status: resp.status}
}

// Download streams the body of a GET request into w. It refreshes the token
// once on an unauthorized response like Do.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	resp, err := c.open(ctx, path, c.session.Token())
	if err != nil {
		return 0, &Error{Message: MsgNetworkError}
	}

	refreshed := false
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		token, ok := c.refreshToken(ctx)
		if !ok && ctx.Err() != nil {
			return 0, &Error{Message: MsgNetworkError}
		}
		if !ok {
			c.clearSession()
			return 0, &Error{Status: http.StatusUnauthorized, Message: MsgAuthExpired}
		}
		resp, err = c.open(ctx, path, token)
		if err != nil {
			return 0, &Error{Message: MsgNetworkError}
		}
		refreshed = true
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		// A failed retry ends the session whatever the status, as in Do.
		if refreshed || resp.StatusCode == http.StatusUnauthorized {
			c.clearSession()
		}
		return 0, &Error{Status: resp.StatusCode, Message: serverMessage(body, "Download failed: "+http.StatusText(resp.StatusCode))}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("write download: %w", err)
	}
	return n, nil
}

func (c *Client) open(ctx context.Context, path, token string) (*http.Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.decorate(httpReq, nil, token)

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observeRequest(http.MethodGet, 0, time.Since(started))
		return nil, err
	}
	c.metrics.observeRequest(http.MethodGet, resp.StatusCode, time.Since(started))
	return resp, nil
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status <= 299
}

func (r *response) result() Result {
	body := bytes.TrimSpace(r.body)
	if len(body) == 0 {
		return Result{Data: json.RawMessage("null"), Status: r.status}
	}
	if !json.Valid(body) {
		return Result{Error: MsgInvalidResponse, Status: r.status}
	}
	return Result{
		Data:    json.RawMessage(body),
		Message: stringField(body, "message"),
		Status:  r.status,
	}
}

func (c *Client) send(ctx context.Context, req Request, payload []byte, contentType, token string) (*response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, reader)
	if err != nil {
		return nil, err
	}
	c.decorate(httpReq, req.Header, token)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("API request",
		"method", req.Method,
		"path", req.Path,
		"token_present", token != "",
		"request_id", httpReq.Header.Get("X-Request-ID"))

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observeRequest(req.Method, 0, time.Since(started))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.metrics.observeRequest(req.Method, resp.StatusCode, time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &response{status: resp.StatusCode, body: body}, nil
}

func (c *Client) decorate(httpReq *http.Request, extra http.Header, token string) {
	for key, values := range extra {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	} else {
		httpReq.Header.Del("Authorization")
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) clearSession() {
	if err := c.session.Clear(); err != nil {
		c.logger.Warn("Failed to clear session", "error", err)
	}
}

func encodeBody(body Body) ([]byte, string, error) {
	if body == nil {
		return nil, "", nil
	}
	payload, contentType, err := body.encode()
	if err != nil {
		return nil, "", err
	}
	return payload, contentType, nil
}

// IsNetworkError reports whether err came from a request that got no response.
func IsNetworkError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 0 && apiErr.Message == MsgNetworkError
}
