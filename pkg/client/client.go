package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dscc-qa/backup-harness/pkg/auth"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/metrics"
)

// API groups served by the control plane.
const (
	BackupRecoveryPath = "/backup-recovery/v1beta1"
	HybridCloudPath    = "/hybrid-cloud/v1beta1"
	TasksPath          = "/data-services/v1beta1/async-operations"
	VersionPath        = "/version"
)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	authorizer *auth.Authorizer
	limiter    *rate.Limiter
	retry      RetryPolicy
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithAuthorizer(a *auth.Authorizer) Option {
	return func(cl *Client) {
		cl.authorizer = a
	}
}

// WithRateLimit caps outgoing requests. A non-positive qps disables limiting.
func WithRateLimit(qps float64, burst int) Option {
	return func(cl *Client) {
		if qps <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(cl *Client) {
		cl.retry = p
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse backend url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, srvErrors.NewInvalidConfigurationError("backend url", fmt.Sprintf("%q is not absolute", baseURL))
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		retry:      DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	method string
	path   string
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("%s %s: empty response body", r.method, r.path)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", r.method, r.path, err)
	}
	return nil
}

// Expect maps a response whose status is not in codes to a typed error.
func (r *Response) Expect(codes ...int) error {
	for _, code := range codes {
		if r.StatusCode == code {
			return nil
		}
	}
	switch r.StatusCode {
	case http.StatusUnauthorized:
		return srvErrors.NewUnauthorizedError(strings.TrimSpace(string(r.Body)))
	case http.StatusNotFound:
		return srvErrors.NewResourceNotFoundError(r.path, "")
	default:
		return srvErrors.NewUnexpectedStatusError(r.method, r.path, r.StatusCode, string(r.Body))
	}
}

// Do sends the request, retrying transient failures according to the retry policy.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	if r.Method == "" {
		r.Method = http.MethodGet
	}

	var payload []byte
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = b
	}

	return c.withRetry(ctx, r, func() (*Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("rate limit: %w", err))
		}
		return c.send(ctx, r, payload)
	})
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// GetJSON issues a GET and decodes a 200 response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := resp.Expect(http.StatusOK); err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) send(ctx context.Context, r Request, payload []byte) (*Response, error) {
	u := c.baseURL.JoinPath(r.Path)
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if err := c.authorizer.Apply(req); err != nil {
		return nil, fmt.Errorf("failed to authorize request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveRequest(r.Method, pathTemplate(r.Path), 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	metrics.ObserveRequest(r.Method, pathTemplate(r.Path), resp.StatusCode, time.Since(start))

	zap.S().Named("client").Debugw("request completed",
		"method", r.Method,
		"path", r.Path,
		"status", resp.StatusCode,
		"trace_id", req.Header.Get(auth.HeaderTraceID),
		"latency", time.Since(start))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		method:     r.Method,
		path:       r.Path,
	}, nil
}

// pathTemplate collapses identifiers so metric labels stay bounded.
func pathTemplate(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		if _, err := uuid.Parse(s); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
