// Package muffins is a client for the MuffinsCorp public chat API.
//
// Every HTTP failure is mapped by MapHTTPError into an *APIError, so callers
// can branch with errors.Is(err, ErrAuthentication) or errors.As into the
// concrete type for the status code and remaining credits. Streaming chat
// completions are decoded by package stream.
package muffins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://chat.muffinscorp.com/api/public"
	DefaultModel   = "chat-model-small"

	defaultTimeout   = 60 * time.Second
	defaultCacheTTL  = 5 * time.Minute
	defaultUserAgent = "muffinscorp-go"

	HeaderAPIKey    = "x-api-key"
	HeaderRequestID = "X-Request-ID"
)

// Cache stores list responses between calls.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

// Limiter gates outgoing requests per endpoint before any network I/O.
type Limiter interface {
	Allow(key string) bool
}

type Recorder interface {
	RecordRequest(endpoint, status string, duration time.Duration)
	RecordStreamOutcome(kind string)
	RecordCacheHit()
	RecordCacheMiss()
	RecordRateLimitHit(endpoint string)
}

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	UserAgent string
	Timeout   time.Duration
	// HTTPClient overrides the transport. Its Timeout is ignored for streams.
	HTTPClient *http.Client

	Cache    Cache
	CacheTTL time.Duration
	Limiter  Limiter
	Metrics  Recorder
}

type Client struct {
	apiKey    string
	baseURL   string
	model     string
	userAgent string

	client       *http.Client
	streamClient *http.Client

	cache    Cache
	cacheTTL time.Duration
	limiter  Limiter
	metrics  Recorder
	logger   *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	// streams are bounded by the request context, not a wall-clock timeout
	streamClient := *client
	streamClient.Timeout = 0

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		userAgent:    cfg.UserAgent,
		client:       client,
		streamClient: &streamClient,
		cache:        cfg.Cache,
		cacheTTL:     cfg.CacheTTL,
		limiter:      cfg.Limiter,
		metrics:      cfg.Metrics,
		logger:       logger,
	}, nil
}

func (c *Client) Chat() *Chat                   { return &Chat{client: c} }
func (c *Client) Models() *Models               { return &Models{client: c} }
func (c *Client) Subscriptions() *Subscriptions { return &Subscriptions{client: c} }
func (c *Client) Credits() *Credits             { return &Credits{client: c} }

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set(HeaderRequestID, uuid.New().String())
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func (c *Client) allow(endpoint string) error {
	if c.limiter == nil || c.limiter.Allow(endpoint) {
		return nil
	}
	c.metrics.RecordRateLimitHit(endpoint)
	return fmt.Errorf("%w: %s", ErrRateLimited, endpoint)
}

// send performs req and returns the response when the status is 2xx. Any
// other status is drained, logged and mapped.
func (c *Client) send(httpClient *http.Client, endpoint string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		c.metrics.RecordRequest(endpoint, "error", time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	c.metrics.RecordRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	c.logger.Error("muffins request failed",
		zap.String("endpoint", endpoint),
		zap.String("request_id", req.Header.Get(HeaderRequestID)),
		zap.Int("status", resp.StatusCode),
		zap.String("body", string(body)),
	)
	return nil, MapHTTPError(resp.StatusCode, body)
}

// getJSON issues a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	if err := c.allow(endpoint); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(endpoint, req, out)
}

func (c *Client) doJSON(endpoint string, req *http.Request, out any) error {
	resp, err := c.send(c.client, endpoint, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, string, time.Duration) {}
func (nopRecorder) RecordStreamOutcome(string)                  {}
func (nopRecorder) RecordCacheHit()                             {}
func (nopRecorder) RecordCacheMiss()                            {}
func (nopRecorder) RecordRateLimitHit(string)                   {}
