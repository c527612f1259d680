// Package llm is the completion client for the generative extraction tier.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"intake_server/core/port/out"
	"intake_server/pkg/resilience"
)

const DefaultModel = "gpt-4o-mini"

// ErrRateLimited is returned when the local request budget is exhausted.
// The call is not queued; the caller degrades instead.
var ErrRateLimited = errors.New("llm request rate limit exceeded")

// ClientConfig configures the completion client.
type ClientConfig struct {
	APIKey            string
	Model             string
	BaseURL           string // optional, for compatible endpoints
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client sends single chat completion requests to OpenAI.
// Every request is bounded by a timeout, throttled, and guarded by a circuit breaker.
// Requests are never retried.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	usage   *UsageTracker
}

var (
	_ out.CompletionClient        = (*Client)(nil)
	_ out.CompletionStatsProvider = (*Client)(nil)
)

func NewClient(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:  openai.NewClientWithConfig(apiCfg),
		model:   model,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("openai")),
		usage:   NewUsageTracker(),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete implements out.CompletionClient.
func (c *Client) Complete(ctx context.Context, req out.CompletionRequest) (string, error) {
	if !c.limiter.Allow() {
		c.usage.TrackFailure()
		return "", ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var content string
	err := c.breaker.Execute(func() error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: req.System,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.Prompt,
				},
			},
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		if err != nil {
			return err
		}

		c.usage.Track(c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		if len(resp.Choices) == 0 {
			return nil
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		c.usage.TrackFailure()
		return "", fmt.Errorf("chat completion: %w", err)
	}

	return content, nil
}

// Stats implements out.CompletionStatsProvider.
func (c *Client) Stats() out.CompletionStats {
	usage := c.usage.GetStats()
	return out.CompletionStats{
		Requests:     usage.RequestCount,
		TokensUsed:   usage.TotalTokens,
		Failures:     usage.FailureCount,
		CircuitState: c.breaker.State(),
	}
}
