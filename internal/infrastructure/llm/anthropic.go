package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicClient implements ports.ChatClient on the Messages API.
type AnthropicClient struct {
	client     anthropic.Client
	configured bool
}

var _ ports.ChatClient = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client; an empty key yields a client that
// reports ErrMisconfigured on use.
func NewAnthropicClient(apiKey, baseURL string, httpClient *http.Client) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &AnthropicClient{
		client:     anthropic.NewClient(opts...),
		configured: apiKey != "",
	}
}

// Complete sends one user turn with a system prompt and joins the text blocks of the reply.
func (c *AnthropicClient) Complete(ctx context.Context, req ports.ChatRequest) (string, error) {
	if c == nil || !c.configured {
		return "", fmt.Errorf("anthropic: %w", domain.ErrMisconfigured)
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: safePrompt(req.System) + " Respond with a single JSON object only."}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic %s: %w", req.Model, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("anthropic %s: %w", req.Model, domain.ErrEmptyResponse)
	}
	return text, nil
}
