package ml

import (
	"context"
	"fmt"
	"unicode/utf8"

	"NewsCast/internal/infrastructure/llm"
	"NewsCast/internal/ports"
)

// Models names the model used by each single-model collaborator.
type Models struct {
	Extraction string
	Judge      string
	Selection  string
	Roundup    string
}

// Client implements the LLM-backed pipeline collaborators on top of a chat client.
type Client struct {
	chat          ports.ChatClient
	models        Models
	maxInputChars int
}

var (
	_ ports.Distiller     = (*Client)(nil)
	_ ports.Judge         = (*Client)(nil)
	_ ports.Generator     = (*Client)(nil)
	_ ports.Selector      = (*Client)(nil)
	_ ports.RoundupWriter = (*Client)(nil)
)

// NewClient creates the collaborator set. maxInputChars <= 0 disables input truncation.
func NewClient(chat ports.ChatClient, models Models, maxInputChars int) *Client {
	return &Client{chat: chat, models: models, maxInputChars: maxInputChars}
}

// ask sends one prompt and decodes the JSON object in the reply into v.
func (c *Client) ask(ctx context.Context, req ports.ChatRequest, v any) error {
	reply, err := c.chat.Complete(ctx, req)
	if err != nil {
		return err
	}
	if err := llm.DecodeObject(reply, v); err != nil {
		return fmt.Errorf("%s reply: %w", req.Model, err)
	}
	return nil
}

func (c *Client) truncate(text string) string {
	if c.maxInputChars <= 0 || utf8.RuneCountInString(text) <= c.maxInputChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:c.maxInputChars])
}
