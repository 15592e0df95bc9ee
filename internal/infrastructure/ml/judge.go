package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

const judgePrompt = "You are a content judge. Score the content 1-10 and assign formats. " +
	"Return JSON with keys: score (int), formats (array of strings). " +
	"Formats allowed: headline, carousel, video, podcast."

// Judge scores a summary. A reply without a numeric score is ErrMalformedResponse.
func (c *Client) Judge(ctx context.Context, summary string) (domain.Verdict, error) {
	var resp struct {
		Score   json.RawMessage `json:"score"`
		Formats []string        `json:"formats"`
	}
	if err := c.ask(ctx, ports.ChatRequest{
		Model:       c.models.Judge,
		System:      judgePrompt,
		User:        "Summary:\n" + c.truncate(summary) + "\n\nReturn JSON.",
		Temperature: 0.2,
		MaxTokens:   300,
	}, &resp); err != nil {
		return domain.Verdict{}, err
	}

	score, ok := parseNumber(resp.Score)
	if !ok {
		return domain.Verdict{}, fmt.Errorf("judge score %s: %w", string(resp.Score), domain.ErrMalformedResponse)
	}

	return domain.Verdict{
		Score:   clampScore(score),
		Formats: knownFormats(resp.Formats),
	}, nil
}

// parseNumber accepts a JSON number or a finite numeric string.
func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func clampScore(score float64) int {
	n := int(math.Round(score))
	switch {
	case n < 0:
		return 0
	case n > 10:
		return 10
	}
	return n
}

func knownFormats(values []string) []domain.ContentType {
	var out []domain.ContentType
	seen := make(map[domain.ContentType]struct{}, len(values))
	for _, v := range values {
		ct, ok := domain.ParseContentType(v)
		if !ok || ct == domain.ContentAudioRoundup {
			continue
		}
		if _, dup := seen[ct]; dup {
			continue
		}
		seen[ct] = struct{}{}
		out = append(out, ct)
	}
	return out
}
