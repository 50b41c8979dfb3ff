// Package gateway is the single outbound path to the store API.
//
// Every authenticated call reads the current bearer from the credential store
// at send time. A 401 triggers at most one token refresh per logical request;
// an unresolvable 401 clears the credentials and notifies expiry listeners.
package gateway

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/felixgeelhaar/twcadmin/internal/credstore"
	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/log"
	"github.com/felixgeelhaar/twcadmin/internal/metrics"
)

// RefreshPath mints a new bearer from the refresh token.
const RefreshPath = "/wp-json/jwt-auth/v1/token/refresh"

// DefaultTimeout bounds each HTTP attempt.
const DefaultTimeout = 30 * time.Second

var errNoRefreshToken = stderrors.New("no refresh token stored")

// ExpiryListener is notified after credentials were cleared by an
// unrecoverable 401.
type ExpiryListener func(ctx context.Context)

// Config configures a Gateway.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps outbound requests per second. Zero disables limiting.
	RateLimit float64
	// TokenTTL is applied to refreshed bearer tokens.
	TokenTTL  time.Duration
	UserAgent string
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default pooled, traced client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// Gateway sends requests to the API.
type Gateway struct {
	baseURL   *url.URL
	userAgent string
	tokenTTL  time.Duration
	client    *http.Client
	store     credstore.Store
	limiter   *rate.Limiter
	refreshes singleflight.Group
	logger    *log.Logger
	metrics   *metrics.Metrics

	mu        sync.Mutex
	listeners []ExpiryListener
}

// New creates a gateway for cfg.BaseURL backed by store.
func New(cfg Config, store credstore.Store, opts ...Option) (*Gateway, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.NewConfigMissingError("api.base_url")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid api.base_url %q", cfg.BaseURL), err).
			WithSuggestion("Use an absolute URL such as https://shop.example.com")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = credstore.TokenTTL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "twcadmin"
	}

	g := &Gateway{
		baseURL:   base,
		userAgent: ua,
		tokenTTL:  ttl,
		store:     store,
		logger:    log.DefaultLogger(),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(cleanhttp.DefaultPooledTransport()),
		},
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// BaseURL returns the configured API root.
func (g *Gateway) BaseURL() string {
	return g.baseURL.String()
}

// Store returns the credential store the gateway reads tokens from.
func (g *Gateway) Store() credstore.Store {
	return g.store
}

// OnAuthExpired registers fn to run after an unrecoverable 401.
func (g *Gateway) OnAuthExpired(fn ExpiryListener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// Do sends req and returns the response. Non-2xx responses are returned as
// *APIError, transport failures as NET-001, and unresolvable 401s as AUTH-001.
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	return g.send(ctx, req, 0, uuid.NewString())
}

// DoJSON sends req and decodes a successful body into out.
func (g *Gateway) DoJSON(ctx context.Context, req Request, out any) (*Response, error) {
	resp, err := g.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Decode(out); err != nil {
		return resp, err
	}
	return resp, nil
}

func (g *Gateway) send(ctx context.Context, req Request, attempt int, requestID string) (*Response, error) {
	httpReq, err := g.build(ctx, req, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Anonymous {
		if token := g.credential(ctx, credstore.TokenKey); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := g.roundTrip(httpReq, requestID)
	if err != nil {
		return nil, errors.NewNetworkError(req.Method+" "+req.Path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.Anonymous {
		if attempt > 0 {
			return nil, g.expire(ctx, newAPIError(resp))
		}
		if err := g.refresh(ctx); err != nil {
			g.logger.WarnContext(ctx, "token refresh failed", "request_id", requestID, "error", err)
			return nil, g.expire(ctx, err)
		}
		return g.send(ctx, req, attempt+1, requestID)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}
	return resp, nil
}

func (g *Gateway) build(ctx context.Context, req Request, requestID string) (*http.Request, error) {
	u := g.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	body, contentType, err := req.encodeBody()
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", g.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	return httpReq, nil
}

func (g *Gateway) roundTrip(httpReq *http.Request, requestID string) (*Response, error) {
	ctx := httpReq.Context()
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		g.metrics.ObserveRequest(httpReq.Method, 0, time.Since(start))
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	elapsed := time.Since(start)
	g.metrics.ObserveRequest(httpReq.Method, httpResp.StatusCode, elapsed)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	g.logger.DebugContext(ctx, "api request",
		"method", httpReq.Method,
		"path", httpReq.URL.Path,
		"status", httpResp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", requestID,
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		RequestID:  requestID,
	}, nil
}

// refresh mints a new bearer. Concurrent callers share one refresh call.
func (g *Gateway) refresh(ctx context.Context) error {
	_, err, _ := g.refreshes.Do("refresh", func() (any, error) {
		err := g.doRefresh(ctx)
		g.metrics.ObserveRefresh(err == nil)
		return nil, err
	})
	return err
}

func (g *Gateway) doRefresh(ctx context.Context) error {
	refreshToken := g.credential(ctx, credstore.RefreshTokenKey)
	if refreshToken == "" {
		return errNoRefreshToken
	}

	requestID := uuid.NewString()
	httpReq, err := g.build(ctx, Request{Method: http.MethodPost, Path: RefreshPath, Body: struct{}{}}, requestID)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+refreshToken)

	resp, err := g.roundTrip(httpReq, requestID)
	if err != nil {
		return errors.NewNetworkError("POST "+RefreshPath, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	token := gjson.GetBytes(resp.Body, "token").String()
	if token == "" {
		return errors.New(errors.ErrCodeDecode, "refresh response did not contain a token")
	}
	if err := g.store.Set(ctx, credstore.TokenKey, token, g.tokenTTL); err != nil {
		return err
	}
	if rotated := gjson.GetBytes(resp.Body, "refresh_token").String(); rotated != "" {
		if err := g.store.Set(ctx, credstore.RefreshTokenKey, rotated, 0); err != nil {
			return err
		}
	}
	return nil
}

// expire clears credentials, notifies listeners and returns AUTH-001.
func (g *Gateway) expire(ctx context.Context, cause error) error {
	if err := g.store.Clear(ctx); err != nil {
		g.logger.WarnContext(ctx, "failed to clear credentials", "error", err)
	}
	g.metrics.ObserveAuthExpired()

	g.mu.Lock()
	listeners := append([]ExpiryListener(nil), g.listeners...)
	g.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx)
	}
	return errors.NewAuthExpiredError(cause)
}

func (g *Gateway) credential(ctx context.Context, key string) string {
	v, err := g.store.Get(ctx, key)
	if err != nil {
		if !stderrors.Is(err, credstore.ErrNotFound) {
			g.logger.WarnContext(ctx, "failed to read credential", "key", key, "error", err)
		}
		return ""
	}
	return v
}
