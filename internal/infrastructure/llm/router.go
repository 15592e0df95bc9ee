package llm

import (
	"context"
	"fmt"
	"strings"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

// Router dispatches chat requests by model name prefix. Claude models go to
// Anthropic, everything else to the OpenAI-compatible endpoint.
type Router struct {
	openai    ports.ChatClient
	anthropic ports.ChatClient
}

var _ ports.ChatClient = (*Router)(nil)

// NewRouter wires the two providers; either may be nil.
func NewRouter(openai, anthropic ports.ChatClient) *Router {
	return &Router{openai: openai, anthropic: anthropic}
}

// Complete forwards req to the provider serving req.Model.
func (r *Router) Complete(ctx context.Context, req ports.ChatRequest) (string, error) {
	client := r.openai
	if strings.HasPrefix(strings.ToLower(req.Model), "claude") {
		client = r.anthropic
	}
	if client == nil {
		return "", fmt.Errorf("no provider for model %q: %w", req.Model, domain.ErrMisconfigured)
	}
	return client.Complete(ctx, req)
}
