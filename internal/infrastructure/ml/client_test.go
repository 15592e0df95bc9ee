package ml

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

type fakeChat struct {
	reply string
	err   error
	reqs  []ports.ChatRequest
}

func (f *fakeChat) Complete(_ context.Context, req ports.ChatRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

var testModels = Models{Extraction: "extract-m", Judge: "judge-m", Selection: "select-m", Roundup: "roundup-m"}

const articleHTML = `<html><head><title>Singer wins award</title></head><body>
<article><h1>Singer wins award</h1>
<p>The singer received the national music award on Friday evening in Bratislava. Fans gathered outside the hall for hours.</p>
<p>She thanked her family and band. The next tour starts in spring. Tickets are already on sale.</p>
</article></body></html>`

func TestDistillUsesModelReply(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: `{"title": "Award night", "summary": "A singer won."}`}
	client := NewClient(chat, testModels, 0)

	got, err := client.Distill(context.Background(), "https://www.cas.sk/a", articleHTML)
	require.NoError(t, err)
	assert.Equal(t, "Award night", got.Title)
	assert.Equal(t, "A singer won.", got.Summary)
	assert.Contains(t, got.Content, "national music award")
	assert.Empty(t, got.Error)

	require.Len(t, chat.reqs, 1)
	assert.Equal(t, "extract-m", chat.reqs[0].Model)
	assert.NotContains(t, chat.reqs[0].User, "<p>")
}

func TestDistillFallsBackOnMalformedReply(t *testing.T) {
	t.Parallel()

	client := NewClient(&fakeChat{reply: "sorry, I cannot"}, testModels, 0)

	got, err := client.Distill(context.Background(), "https://www.cas.sk/a", articleHTML)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Summary)
	assert.Contains(t, got.Summary, "The singer received")
	assert.Contains(t, got.Error, "malformed")
}

func TestDistillReturnsTransportError(t *testing.T) {
	t.Parallel()

	client := NewClient(&fakeChat{err: errors.New("connection reset")}, testModels, 0)

	_, err := client.Distill(context.Background(), "https://www.cas.sk/a", articleHTML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestDistillTruncatesInput(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: `{"title": "t", "summary": "s"}`}
	client := NewClient(chat, testModels, 10)

	_, err := client.Distill(context.Background(), "https://x.sk/a", "<html><body><p>"+strings.Repeat("á", 50)+"</p></body></html>")
	require.NoError(t, err)
	assert.Equal(t, "Content:\n"+strings.Repeat("á", 10)+"\n\nReturn JSON.", chat.reqs[0].User)
}

func TestExtractiveSummary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", extractiveSummary("   "))
	assert.Equal(t, "One. Two! Three?", extractiveSummary("One. Two! Three? Four."))
	assert.Equal(t, "v1.2 is out.", extractiveSummary("v1.2 is out."))

	long := strings.Repeat("word ", 200)
	assert.LessOrEqual(t, len([]rune(extractiveSummary(long))), fallbackSummaryChars)
}

func TestJudge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reply   string
		want    domain.Verdict
		wantErr error
	}{
		{
			name:  "score and formats",
			reply: `{"score": 8, "formats": ["Headline", "video", "tweet", "video"]}`,
			want:  domain.Verdict{Score: 8, Formats: []domain.ContentType{domain.ContentHeadline, domain.ContentVideo}},
		},
		{
			name:  "string score without formats",
			reply: `{"score": "6.6"}`,
			want:  domain.Verdict{Score: 7},
		},
		{
			name:  "score clamped",
			reply: `{"score": 42}`,
			want:  domain.Verdict{Score: 10},
		},
		{name: "missing score", reply: `{"formats": ["headline"]}`, wantErr: domain.ErrMalformedResponse},
		{name: "not json", reply: `great article`, wantErr: domain.ErrMalformedResponse},
		{name: "nan score", reply: `{"score": "NaN"}`, wantErr: domain.ErrMalformedResponse},
		{name: "infinite score", reply: `{"score": "-Inf"}`, wantErr: domain.ErrMalformedResponse},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := NewClient(&fakeChat{reply: tt.reply}, testModels, 0)
			got, err := client.Judge(context.Background(), "summary")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateKeepsRequestedFormats(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: `{"headline": "Big news", "carousel": ["a", "b"], "video": {"script": "x"}}`}
	client := NewClient(chat, testModels, 0)

	got, err := client.Generate(context.Background(), "gen-m", "content", []domain.ContentType{domain.ContentHeadline, domain.ContentCarousel, domain.ContentPodcast}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `"Big news"`, string(got[domain.ContentHeadline]))
	assert.JSONEq(t, `["a","b"]`, string(got[domain.ContentCarousel]))

	req := chat.reqs[0]
	assert.Equal(t, "gen-m", req.Model)
	assert.Contains(t, req.User, "Formats: headline, carousel, podcast")
	assert.Contains(t, req.User, "variant 2")
}

func TestPickWinner(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: `{"winner_variant": "2", "model": "m2", "reasoning": "punchier"}`}
	client := NewClient(chat, testModels, 0)

	candidates := []domain.Candidate{
		{PostID: "p1", VariantID: 1, Model: "m1", Content: json.RawMessage(`{"text":"a"}`)},
		{PostID: "p2", VariantID: 2, Model: "m2", Content: json.RawMessage(`{"text":"b"}`)},
	}
	got, err := client.PickWinner(context.Background(), domain.ContentHeadline, candidates)
	require.NoError(t, err)
	assert.Equal(t, domain.WinnerRef{VariantID: 2, Model: "m2", Reasoning: "punchier"}, got)

	req := chat.reqs[0]
	assert.Equal(t, "select-m", req.Model)
	assert.Contains(t, req.User, `"format":"headline"`)
	assert.NotContains(t, req.User, "p1")
}

func TestPickWinnerReadsBareWinnerField(t *testing.T) {
	t.Parallel()

	candidates := []domain.Candidate{
		{PostID: "p1", VariantID: 1, Model: "m1"},
		{PostID: "p2", VariantID: 2, Model: "m2"},
	}
	tests := []struct {
		name  string
		reply string
		want  domain.WinnerRef
	}{
		{"number", `{"winner": 2, "reasoning": "better"}`, domain.WinnerRef{VariantID: 2, Reasoning: "better"}},
		{"numeric string", `{"winner": "2"}`, domain.WinnerRef{VariantID: 2}},
		{"model name", `{"winner": "m1"}`, domain.WinnerRef{Model: "m1"}},
		{"winner_variant wins", `{"winner_variant": 1, "winner": 2}`, domain.WinnerRef{VariantID: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(&fakeChat{reply: tt.reply}, testModels, 0)
			got, err := client.PickWinner(context.Background(), domain.ContentHeadline, candidates)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteRoundup(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: `{"title": "Today", "dialogue": [{"speaker": "host_a", "text": "Hi"}, "Hello"], "duration_seconds": 200}`}
	client := NewClient(chat, testModels, 0)

	got, err := client.WriteRoundup(context.Background(), []domain.Story{{Title: "t", Summary: "s"}}, "Slovak")
	require.NoError(t, err)
	assert.Equal(t, "roundup-m", client.Model())
	assert.Equal(t, 200, got.DurationSeconds)
	require.Len(t, got.Dialogue, 2)
	assert.Equal(t, domain.DialogueTurn{Speaker: "host_a", Text: "Hi"}, got.Dialogue[0])
	assert.Equal(t, "Hello", got.Dialogue[1].Text)
	assert.Contains(t, chat.reqs[0].System, "Write the script in Slovak")

	empty := NewClient(&fakeChat{reply: `{"dialogue": []}`}, testModels, 0)
	_, err = empty.WriteRoundup(context.Background(), nil, "English")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}
