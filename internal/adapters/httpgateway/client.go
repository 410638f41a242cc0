// internal/adapters/httpgateway/client.go
package httpgateway

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
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
)

const (
	cartPath        = "/api/users/cart"
	maxErrorBody    = 64 << 10
	defaultTimeout  = 10 * time.Second
	requestIDHeader = "X-Request-ID"
)

// CredentialSource supplies the bearer token of the current user
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Config holds the gateway client settings
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	UserAgent string
}

// Client talks to the per-user cart API over HTTP
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	creds     CredentialSource
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

var _ ports.RemoteCartGateway = (*Client)(nil)

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a gateway client for cfg.BaseURL
func New(cfg Config, creds CredentialSource, logger *slog.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid gateway base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		creds:     creds,
		limiter:   rate.NewLimiter(limit, burst),
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		logger:    logger.With(slog.String("component", "cart_gateway")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List returns the authoritative server cart
func (c *Client) List(ctx context.Context) ([]domain.RemoteCartItem, error) {
	var resp listResponse
	if err := c.do(ctx, "list", http.MethodGet, cartPath, nil, &resp); err != nil {
		return nil, err
	}

	items := make([]domain.RemoteCartItem, 0, len(resp.Items))
	for _, dto := range resp.Items {
		if err := dto.Validate(); err != nil {
			return nil, domain.NewGatewayError("list", domain.ErrValidation, http.StatusOK, err.Error(), nil)
		}
		items = append(items, dto.toDomain())
	}
	return items, nil
}

// Add creates a server cart line and returns its id
func (c *Client) Add(ctx context.Context, productID int64, quantity int, notes string) (int64, error) {
	var resp cartItemDTO
	body := addRequest{ProductID: productID, Quantity: quantity, Notes: notes}
	if err := c.do(ctx, "add", http.MethodPost, cartPath, body, &resp); err != nil {
		return 0, err
	}
	if resp.ID <= 0 {
		return 0, domain.NewGatewayError("add", domain.ErrValidation, http.StatusOK, "response is missing the cart item id", nil)
	}
	return resp.ID, nil
}

// Update sets the quantity of a server cart line
func (c *Client) Update(ctx context.Context, serverItemID int64, quantity int) error {
	return c.do(ctx, "update", http.MethodPut, itemPath(serverItemID), updateRequest{Quantity: quantity}, nil)
}

// Remove deletes a server cart line
func (c *Client) Remove(ctx context.Context, serverItemID int64) error {
	return c.do(ctx, "remove", http.MethodDelete, itemPath(serverItemID), nil, nil)
}

func itemPath(id int64) string {
	return cartPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.NewGatewayError(op, domain.ErrTransientNetwork, 0, "rate limiter", err)
	}

	token, err := c.creds.Token(ctx)
	if err != nil {
		return domain.NewGatewayError(op, domain.ErrAuthExpired, 0, "no credentials", err)
	}
	if token == "" {
		return domain.NewGatewayError(op, domain.ErrAuthExpired, 0, "no credentials", nil)
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return domain.NewGatewayError(op, domain.ErrValidation, 0, "encode request", err)
		}
		payload = bytes.NewReader(data)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL.String()+path, payload)
	if err != nil {
		return domain.NewGatewayError(op, domain.ErrValidation, 0, "build request", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "cart api unreachable",
			slog.String("op", op),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return domain.NewGatewayError(op, domain.ErrTransientNetwork, 0, "", err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "cart api call",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return domain.NewGatewayError(op, domain.ErrTransientNetwork, resp.StatusCode, "read response", err)
			}
			return domain.NewGatewayError(op, domain.ErrValidation, resp.StatusCode, "malformed response", err)
		}
		return nil
	}

	return domain.NewGatewayError(op, classifyStatus(resp.StatusCode), resp.StatusCode, readErrorMessage(resp.Body), nil)
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity, status == http.StatusConflict:
		return domain.ErrValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrAuthExpired
	case status == http.StatusNotFound, status == http.StatusGone:
		return domain.ErrNotFound
	default:
		// 408, 429, 5xx and anything unexpected may succeed later
		return domain.ErrTransientNetwork
	}
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var resp errorResponse
	if json.Unmarshal(data, &resp) == nil && resp.Error != "" {
		return resp.Error
	}
	return strings.TrimSpace(string(data))
}
