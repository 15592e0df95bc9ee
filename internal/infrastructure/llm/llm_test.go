package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

func TestOpenAICompleteSendsJSONMode(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"score\": 7}"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL + "/", APIKey: "secret"})
	reply, err := client.Complete(context.Background(), ports.ChatRequest{
		Model: "gpt-4.1-mini", System: "judge", User: "Summary: x", Temperature: 0.2, MaxTokens: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 7}`, reply)

	assert.Equal(t, "gpt-4.1-mini", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	assert.EqualValues(t, 300, got["max_completion_tokens"])
	assert.EqualValues(t, 0.2, got["temperature"])
}

func TestOpenAICompleteErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Case") == "empty" {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  "}}]}`))
			return
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, APIKey: "k"})
	_, err := client.Complete(context.Background(), ports.ChatRequest{Model: "m", User: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	emptyClient := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, APIKey: "k", HTTPClient: &http.Client{
		Transport: headerTransport{key: "X-Case", value: "empty"},
	}})
	_, err = emptyClient.Complete(context.Background(), ports.ChatRequest{Model: "m", User: "u"})
	assert.ErrorIs(t, err, domain.ErrEmptyResponse)

	unconfigured := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL})
	_, err = unconfigured.Complete(context.Background(), ports.ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, domain.ErrMisconfigured)
}

type headerTransport struct {
	key, value string
}

func (h headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set(h.key, h.value)
	return http.DefaultTransport.RoundTrip(r)
}

func TestOpenAISynthesizeAndImage(t *testing.T) {
	t.Parallel()

	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio/speech":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "nova", body["voice"])
			assert.Equal(t, "tts-model", body["model"])
			_, _ = w.Write([]byte("ID3audio"))
		case "/images/generations":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, APIKey: "k", TTSModel: "tts-model", ImageModel: "img", ImageSize: "1024x1024"})

	audio, err := client.Synthesize(context.Background(), "nova", "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio"), audio)

	img, err := client.GenerateImage(context.Background(), "a microphone")
	require.NoError(t, err)
	assert.Equal(t, png, img)
}

func TestAnthropicComplete(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-5", body["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"Here you go: {\"winner_variant\": 2}"}],
			"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":5}}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient("key", srv.URL, srv.Client())
	reply, err := client.Complete(context.Background(), ports.ChatRequest{Model: "claude-sonnet-4-5", System: "pick", User: "x"})
	require.NoError(t, err)

	var out struct {
		WinnerVariant int `json:"winner_variant"`
	}
	require.NoError(t, DecodeObject(reply, &out))
	assert.Equal(t, 2, out.WinnerVariant)

	_, err = NewAnthropicClient("", srv.URL, nil).Complete(context.Background(), ports.ChatRequest{Model: "claude-x"})
	assert.ErrorIs(t, err, domain.ErrMisconfigured)
}

type stubChat struct{ name string }

func (s stubChat) Complete(context.Context, ports.ChatRequest) (string, error) { return s.name, nil }

func TestRouterDispatchesByModel(t *testing.T) {
	t.Parallel()

	router := NewRouter(stubChat{"openai"}, stubChat{"anthropic"})
	got, err := router.Complete(context.Background(), ports.ChatRequest{Model: "Claude-haiku"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", got)

	got, err = router.Complete(context.Background(), ports.ChatRequest{Model: "gpt-4.1-mini"})
	require.NoError(t, err)
	assert.Equal(t, "openai", got)

	_, err = NewRouter(nil, nil).Complete(context.Background(), ports.ChatRequest{Model: "gpt"})
	assert.ErrorIs(t, err, domain.ErrMisconfigured)
}

func TestDecodeObject(t *testing.T) {
	t.Parallel()

	type verdict struct {
		Score int `json:"score"`
	}

	var v verdict
	require.NoError(t, DecodeObject(`{"score": 8}`, &v))
	assert.Equal(t, 8, v.Score)

	v = verdict{}
	require.NoError(t, DecodeObject("```json\n{\"score\": 5, \"nested\": {\"a\": 1}}\n```", &v))
	assert.Equal(t, 5, v.Score)

	assert.ErrorIs(t, DecodeObject("   ", &v), domain.ErrEmptyResponse)
	assert.ErrorIs(t, DecodeObject("no json here", &v), domain.ErrMalformedResponse)
	assert.ErrorIs(t, DecodeObject("{broken", &v), domain.ErrMalformedResponse)
}
