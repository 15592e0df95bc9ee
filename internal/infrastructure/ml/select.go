package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

const selectionPrompt = "You are a judge selecting the best variant. Return JSON with keys: " +
	"winner_variant, winner_model, reasoning."

// PickWinner asks the selection model to name the best candidate. The reply is
// returned as-is; matching it to a candidate is the caller's job.
func (c *Client) PickWinner(ctx context.Context, contentType domain.ContentType, candidates []domain.Candidate) (domain.WinnerRef, error) {
	if len(candidates) == 0 {
		return domain.WinnerRef{}, nil
	}

	user, err := json.Marshal(struct {
		Format   domain.ContentType `json:"format"`
		Versions []domain.Candidate `json:"versions"`
	}{Format: contentType, Versions: candidates})
	if err != nil {
		return domain.WinnerRef{}, fmt.Errorf("marshal candidates: %w", err)
	}

	var resp struct {
		WinnerVariant json.RawMessage `json:"winner_variant"`
		WinnerModel   string          `json:"winner_model"`
		Model         string          `json:"model"`
		Winner        json.RawMessage `json:"winner"`
		Reasoning     string          `json:"reasoning"`
	}
	if err := c.ask(ctx, ports.ChatRequest{
		Model:       c.models.Selection,
		System:      selectionPrompt,
		User:        string(user) + "\nReturn JSON.",
		Temperature: 0.2,
		MaxTokens:   400,
	}, &resp); err != nil {
		return domain.WinnerRef{}, err
	}

	ref := domain.WinnerRef{Reasoning: strings.TrimSpace(resp.Reasoning)}
	if n, ok := parseNumber(resp.WinnerVariant); ok {
		ref.VariantID = int(n)
	}
	// "winner" may hold either a variant number or a model name.
	var winnerModel string
	if n, ok := parseNumber(resp.Winner); ok {
		if ref.VariantID == 0 {
			ref.VariantID = int(n)
		}
	} else if len(resp.Winner) > 0 {
		_ = json.Unmarshal(resp.Winner, &winnerModel)
	}
	for _, m := range []string{resp.WinnerModel, resp.Model, winnerModel} {
		if m = strings.TrimSpace(m); m != "" {
			ref.Model = m
			break
		}
	}
	return ref, nil
}
