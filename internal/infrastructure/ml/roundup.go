package ml

import (
	"context"
	"encoding/json"
	"fmt"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

// Model returns the model that writes roundups.
func (c *Client) Model() string {
	return c.models.Roundup
}

// WriteRoundup scripts a two-host audio roundup of stories in the given language.
func (c *Client) WriteRoundup(ctx context.Context, stories []domain.Story, languageLabel string) (domain.Dialogue, error) {
	user, err := json.Marshal(struct {
		Stories       []domain.Story `json:"stories"`
		LengthMinutes string         `json:"length_minutes"`
		Hosts         []string       `json:"hosts"`
	}{Stories: stories, LengthMinutes: "3-5", Hosts: []string{"host_a", "host_b"}})
	if err != nil {
		return domain.Dialogue{}, fmt.Errorf("marshal stories: %w", err)
	}

	var raw json.RawMessage
	if err := c.ask(ctx, ports.ChatRequest{
		Model:       c.models.Roundup,
		System:      roundupPrompt(languageLabel),
		User:        string(user) + "\nReturn JSON.",
		Temperature: 0.6,
		MaxTokens:   1400,
	}, &raw); err != nil {
		return domain.Dialogue{}, err
	}

	payload, err := domain.DecodePayload(domain.ContentAudioRoundup, raw)
	if err != nil {
		return domain.Dialogue{}, fmt.Errorf("roundup reply: %v: %w", err, domain.ErrMalformedResponse)
	}
	if payload.Empty() {
		return domain.Dialogue{}, fmt.Errorf("roundup reply has no dialogue: %w", domain.ErrMalformedResponse)
	}
	return *payload.Dialogue, nil
}

func roundupPrompt(languageLabel string) string {
	return fmt.Sprintf("You are a podcast writer. Write the script in %s. "+
		"Create a 3-5 minute audio roundup script for two hosts "+
		"(host_a male, host_b female). Return JSON with keys: title, description, dialogue "+
		"(array of {speaker, text}) and duration_seconds. Keep it concise, "+
		"current, and engaging.", languageLabel)
}
