package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

// OpenAIClient talks to OpenAI-compatible chat, speech and image endpoints.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	ttsModel   string
	imageModel string
	imageSize  string
	httpClient *http.Client
}

var (
	_ ports.ChatClient        = (*OpenAIClient)(nil)
	_ ports.SpeechSynthesizer = (*OpenAIClient)(nil)
	_ ports.ImageGenerator    = (*OpenAIClient)(nil)
)

// OpenAIOptions configures NewOpenAIClient.
type OpenAIOptions struct {
	BaseURL    string
	APIKey     string
	TTSModel   string
	ImageModel string
	ImageSize  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewOpenAIClient builds a client from options.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		ttsModel:   opts.TTSModel,
		imageModel: opts.ImageModel,
		imageSize:  opts.ImageSize,
		httpClient: client,
	}
}

// Complete sends a system+user prompt in JSON mode and returns the reply text.
func (c *OpenAIClient) Complete(ctx context.Context, req ports.ChatRequest) (string, error) {
	if c == nil || c.apiKey == "" || c.baseURL == "" {
		return "", fmt.Errorf("openai: %w", domain.ErrMisconfigured)
	}
	if req.Model == "" {
		return "", fmt.Errorf("openai: empty model: %w", domain.ErrMisconfigured)
	}

	payload := map[string]any{
		"model": req.Model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(req.System)},
			{"role": "user", "content": req.User},
		},
		"response_format": map[string]string{"type": "json_object"},
	}
	if req.MaxTokens > 0 {
		payload["max_completion_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 && !strings.HasPrefix(req.Model, "gpt-5") {
		payload["temperature"] = req.Temperature
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, "/chat/completions", payload, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&resp)
	}); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai %s: %w", req.Model, domain.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// Synthesize renders text with the configured TTS model and returns mp3 bytes.
func (c *OpenAIClient) Synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	if c == nil || c.apiKey == "" || c.ttsModel == "" {
		return nil, fmt.Errorf("openai tts: %w", domain.ErrMisconfigured)
	}

	payload := map[string]any{
		"model":           c.ttsModel,
		"voice":           voice,
		"input":           text,
		"response_format": "mp3",
	}
	var audio []byte
	err := c.postJSON(ctx, "/audio/speech", payload, func(body io.Reader) error {
		var err error
		audio, err = io.ReadAll(body)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai tts: %w", domain.ErrEmptyResponse)
	}
	return audio, nil
}

// GenerateImage renders prompt and returns the decoded image bytes.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if c == nil || c.apiKey == "" || c.imageModel == "" {
		return nil, fmt.Errorf("openai image: %w", domain.ErrMisconfigured)
	}

	payload := map[string]any{
		"model":  c.imageModel,
		"prompt": prompt,
		"size":   c.imageSize,
	}
	var resp struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/images/generations", payload, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&resp)
	}); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai image: %w", domain.ErrEmptyResponse)
	}

	item := resp.Data[0]
	if item.B64JSON != "" {
		img, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return img, nil
	}
	if item.URL != "" {
		return c.download(ctx, item.URL)
	}
	return nil, fmt.Errorf("openai image: %w", domain.ErrEmptyResponse)
}

func (c *OpenAIClient) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (c *OpenAIClient) postJSON(ctx context.Context, path string, payload any, read func(io.Reader) error) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("openai %s error %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}

	if err := read(resp.Body); err != nil {
		return fmt.Errorf("decode openai %s: %w", path, err)
	}
	return nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a helpful assistant. Reply with a JSON object."
	}
	return prompt
}
