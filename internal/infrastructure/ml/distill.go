package ml

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

const extractionPrompt = "You are an extraction assistant. Extract and summarize the main content. " +
	"Return JSON with keys: title, summary."

const (
	fallbackSummaryChars     = 400
	fallbackSummarySentences = 3
)

// Distill reduces raw article HTML to title, summary and clean text. When the
// model reply is empty or unusable the result is built locally and carries the
// failure in Extraction.Error; transport failures are returned as errors.
func (c *Client) Distill(ctx context.Context, sourceURL, rawHTML string) (domain.Extraction, error) {
	title, text := readableText(sourceURL, rawHTML)

	input := text
	if input == "" {
		input = rawHTML
	}

	var resp struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	err := c.ask(ctx, ports.ChatRequest{
		Model:       c.models.Extraction,
		System:      extractionPrompt,
		User:        "Content:\n" + c.truncate(input) + "\n\nReturn JSON.",
		Temperature: 0.1,
		MaxTokens:   600,
	}, &resp)

	switch {
	case err == nil && strings.TrimSpace(resp.Summary) != "":
		out := domain.Extraction{
			Title:   strings.TrimSpace(resp.Title),
			Summary: strings.TrimSpace(resp.Summary),
			Content: text,
		}
		if out.Title == "" {
			out.Title = title
		}
		return out, nil
	case err == nil:
		err = domain.ErrEmptyResponse
	case !recoverable(err):
		return domain.Extraction{}, err
	}

	return domain.Extraction{
		Title:   title,
		Summary: extractiveSummary(text),
		Content: text,
		Error:   err.Error(),
	}, nil
}

// recoverable reports whether a collaborator failure may be replaced by a local result.
func recoverable(err error) bool {
	return errors.Is(err, domain.ErrEmptyResponse) ||
		errors.Is(err, domain.ErrMalformedResponse) ||
		errors.Is(err, domain.ErrMisconfigured)
}

func readableText(sourceURL, rawHTML string) (title, text string) {
	if strings.TrimSpace(rawHTML) == "" {
		return "", ""
	}
	if parsed, err := url.Parse(sourceURL); err == nil {
		if article, err := readability.FromReader(strings.NewReader(rawHTML), parsed); err == nil {
			title = strings.TrimSpace(article.Title)
			text = collapseSpace(article.TextContent)
		}
	}
	if text != "" {
		return title, text
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return title, ""
	}
	doc.Find("script, style, noscript").Remove()
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return title, collapseSpace(doc.Find("body").Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractiveSummary keeps the leading sentences of text within a small budget.
func extractiveSummary(text string) string {
	text = collapseSpace(text)
	if text == "" {
		return ""
	}

	var b strings.Builder
	sentences := 0
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		if end < len(text) && text[end] != ' ' {
			continue
		}
		sentence := strings.TrimSpace(text[start:end])
		start = end
		if sentence == "" {
			continue
		}
		if b.Len()+1+len(sentence) > fallbackSummaryChars {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
		sentences++
		if sentences == fallbackSummarySentences {
			break
		}
	}

	if b.Len() == 0 {
		runes := []rune(text)
		if len(runes) > fallbackSummaryChars {
			runes = runes[:fallbackSummaryChars]
		}
		return strings.TrimSpace(string(runes))
	}
	return b.String()
}
