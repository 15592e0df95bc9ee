package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

const generationPrompt = "You are a social media content generator. Generate all requested formats in one response. " +
	"Return JSON with keys for requested formats only. " +
	"headline: string; carousel: array of strings; video: {script, scenes: array of {text, visual}, duration_seconds}; " +
	"podcast: {title, dialogue: array of {speaker, text}, duration_seconds}."

// Generate asks model for every requested format in one call and returns the
// raw value of each requested format present in the reply.
func (c *Client) Generate(ctx context.Context, model, content string, formats []domain.ContentType, variant int) (map[domain.ContentType]json.RawMessage, error) {
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, string(f))
	}
	formatList := "none"
	if len(names) > 0 {
		formatList = strings.Join(names, ", ")
	}

	user := fmt.Sprintf("Article:\n%s\n\nFormats: %s\n", c.truncate(content), formatList)
	if variant > 1 {
		user += fmt.Sprintf("This is variant %d; take a different angle from earlier variants.\n", variant)
	}
	user += "Return JSON."

	var resp map[string]json.RawMessage
	if err := c.ask(ctx, ports.ChatRequest{
		Model:       model,
		System:      generationPrompt,
		User:        user,
		Temperature: 0.7,
		MaxTokens:   1200,
	}, &resp); err != nil {
		return nil, err
	}

	requested := domain.FormatList(formats)
	out := make(map[domain.ContentType]json.RawMessage, len(formats))
	for key, raw := range resp {
		ct, ok := domain.ParseContentType(key)
		if !ok || !requested.Contains(ct) {
			continue
		}
		out[ct] = raw
	}
	return out, nil
}
