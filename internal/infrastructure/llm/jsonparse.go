package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"NewsCast/internal/domain"
)

// DecodeObject unmarshals a JSON object from model output, falling back to the
// outermost {...} span when the text carries surrounding prose or fences.
func DecodeObject(text string, v any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("%w: no json object in reply", domain.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
