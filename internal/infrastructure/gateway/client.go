package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tradematch/backend/internal/domain"
	"github.com/tradematch/backend/internal/logger"
	"github.com/tradematch/backend/internal/metrics"
)

const maxResponseBytes = 4 << 20

// Config holds the client settings
type Config struct {
	APIKey        string
	BaseURL       string
	Referer       string
	Title         string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Client talks to an OpenAI-compatible chat-completions aggregation endpoint.
// It never retries and never caches; each Complete call is one request.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	endpoint    string
	referer     string
	title       string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new gateway client
func NewClient(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      cfg.APIKey,
		endpoint:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		referer:     cfg.Referer,
		title:       cfg.Title,
		rateLimiter: rate.NewLimiter(limit, burst),
		logger:      logger.Component(log, "gateway"),
	}
}

// Complete sends the conversation and returns the assistant turn, including
// its reasoning details untouched.
func (c *Client) Complete(
	ctx context.Context,
	model string,
	messages []domain.ReasoningMessage,
	reasoningEnabled bool,
) (domain.ReasoningMessage, error) {
	if c.apiKey == "" {
		metrics.GatewayRequests.WithLabelValues("config_error").Inc()
		return domain.ReasoningMessage{}, &domain.ConfigurationError{Key: "gateway.api_key", Err: domain.ErrMissingCredential}
	}
	if strings.TrimSpace(model) == "" {
		return domain.ReasoningMessage{}, fmt.Errorf("%w: model is empty", domain.ErrInvalidRequest)
	}
	if len(messages) == 0 {
		return domain.ReasoningMessage{}, fmt.Errorf("%w: messages are empty", domain.ErrInvalidRequest)
	}
	for i, m := range messages {
		if !m.Role.Valid() {
			return domain.ReasoningMessage{}, fmt.Errorf("%w: messages[%d] has unknown role %q", domain.ErrInvalidRequest, i, m.Role)
		}
	}

	payload, err := json.Marshal(newChatRequest(model, messages, reasoningEnabled))
	if err != nil {
		return domain.ReasoningMessage{}, fmt.Errorf("encode request: %w", err)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return domain.ReasoningMessage{}, fmt.Errorf("rate limiter error: %w", err)
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, payload)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("transport_error").Inc()
		c.logger.Warn("gateway request failed", zap.String("model", model), zap.Error(err))
		return domain.ReasoningMessage{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("transport_error").Inc()
		return domain.ReasoningMessage{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := &domain.GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
		metrics.GatewayRequests.WithLabelValues("status_error").Inc()
		c.logger.Warn("gateway returned non-success status",
			zap.String("model", model),
			zap.Int("status", resp.StatusCode),
			zap.Bool("retryable", gwErr.Retryable()),
		)
		return domain.ReasoningMessage{}, gwErr
	}

	msg, err := decodeChatResponse(body)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("malformed").Inc()
		return domain.ReasoningMessage{}, err
	}

	metrics.GatewayRequests.WithLabelValues("ok").Inc()
	c.logger.Debug("gateway completion received",
		zap.String("model", model),
		zap.Int("messages", len(messages)),
		zap.Bool("reasoning", reasoningEnabled),
		zap.Bool("hasReasoningDetails", len(msg.ReasoningDetails) > 0),
		zap.Duration("latency", time.Since(start)),
	)
	return msg, nil
}

// doRequest executes the POST with authentication and identification headers
func (c *Client) doRequest(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway transport: %w", err)
	}
	return resp, nil
}
