package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ContentType names one output format a post can carry.
type ContentType string

const (
	ContentHeadline     ContentType = "headline"
	ContentCarousel     ContentType = "carousel"
	ContentVideo        ContentType = "video"
	ContentPodcast      ContentType = "podcast"
	ContentAudioRoundup ContentType = "audio_roundup"
)

// GeneratedFormats are the per-article formats the generation funnel produces.
var GeneratedFormats = []ContentType{ContentHeadline, ContentCarousel, ContentVideo, ContentPodcast}

// ParseContentType normalises a collaborator-supplied format name.
func ParseContentType(value string) (ContentType, bool) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(value)))
	switch ct {
	case ContentHeadline, ContentCarousel, ContentVideo, ContentPodcast, ContentAudioRoundup:
		return ct, true
	default:
		return "", false
	}
}

// FormatList is an ordered set of content types stored as a JSON array.
type FormatList []ContentType

// Contains reports whether ct is part of the list.
func (l FormatList) Contains(ct ContentType) bool {
	for _, item := range l {
		if item == ct {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (l FormatList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]ContentType(l))
	if err != nil {
		return nil, fmt.Errorf("marshal formats: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *FormatList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan formats: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var items []ContentType
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("scan formats: %w", err)
	}
	*l = items
	return nil
}

// Headline is a single-line hook.
type Headline struct {
	VariantID int    `json:"variant_id,omitempty"`
	Text      string `json:"text"`
}

// Carousel is an ordered list of slide captions.
type Carousel struct {
	VariantID int      `json:"variant_id,omitempty"`
	Slides    []string `json:"slides"`
}

// Scene is one beat of a short video.
type Scene struct {
	Text   string `json:"text"`
	Visual string `json:"visual,omitempty"`
}

// Video is a short-form video script.
type Video struct {
	VariantID       int     `json:"variant_id,omitempty"`
	Script          string  `json:"script"`
	Scenes          []Scene `json:"scenes,omitempty"`
	DurationSeconds int     `json:"duration_seconds,omitempty"`
}

// DialogueTurn is one spoken line.
type DialogueTurn struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

// UnmarshalJSON accepts either an object or a bare string.
func (t *DialogueTurn) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*t = DialogueTurn{Text: text}
		return nil
	}
	type plain DialogueTurn
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = DialogueTurn(p)
	return nil
}

// Dialogue is the payload shared by podcast and audio_roundup posts.
type Dialogue struct {
	VariantID       int            `json:"variant_id,omitempty"`
	Title           string         `json:"title,omitempty"`
	Description     string         `json:"description,omitempty"`
	Dialogue        []DialogueTurn `json:"dialogue"`
	DurationSeconds int            `json:"duration_seconds,omitempty"`
	VoiceA          string         `json:"tts_voice_a,omitempty"`
	VoiceB          string         `json:"tts_voice_b,omitempty"`
}

// Payload is the typed content of a post. Exactly one field is set,
// matching ContentType.
type Payload struct {
	ContentType ContentType
	Headline    *Headline
	Carousel    *Carousel
	Video       *Video
	Dialogue    *Dialogue
}

// DecodePayload parses collaborator or stored JSON into the shape for ct.
// Bare strings are accepted for headlines and bare arrays for carousels.
func DecodePayload(ct ContentType, raw json.RawMessage) (Payload, error) {
	p := Payload{ContentType: ct}
	switch ct {
	case ContentHeadline:
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			p.Headline = &Headline{Text: text}
			break
		}
		var h Headline
		if err := json.Unmarshal(raw, &h); err != nil {
			return Payload{}, fmt.Errorf("decode headline: %w", err)
		}
		p.Headline = &h
	case ContentCarousel:
		var slides []string
		if err := json.Unmarshal(raw, &slides); err == nil {
			p.Carousel = &Carousel{Slides: slides}
			break
		}
		var c Carousel
		if err := json.Unmarshal(raw, &c); err != nil {
			return Payload{}, fmt.Errorf("decode carousel: %w", err)
		}
		p.Carousel = &c
	case ContentVideo:
		var v Video
		if err := json.Unmarshal(raw, &v); err != nil {
			return Payload{}, fmt.Errorf("decode video: %w", err)
		}
		p.Video = &v
	case ContentPodcast, ContentAudioRoundup:
		var d Dialogue
		if err := json.Unmarshal(raw, &d); err != nil {
			var turns []DialogueTurn
			if arrErr := json.Unmarshal(raw, &turns); arrErr != nil {
				return Payload{}, fmt.Errorf("decode dialogue: %w", err)
			}
			d = Dialogue{Dialogue: turns}
		}
		p.Dialogue = &d
	default:
		return Payload{}, fmt.Errorf("decode payload: unknown content type %q", ct)
	}
	return p, nil
}

// Empty reports whether the payload carries no usable content.
func (p Payload) Empty() bool {
	switch {
	case p.Headline != nil:
		return strings.TrimSpace(p.Headline.Text) == ""
	case p.Carousel != nil:
		for _, slide := range p.Carousel.Slides {
			if strings.TrimSpace(slide) != "" {
				return false
			}
		}
		return true
	case p.Video != nil:
		return strings.TrimSpace(p.Video.Script) == "" && len(p.Video.Scenes) == 0
	case p.Dialogue != nil:
		for _, turn := range p.Dialogue.Dialogue {
			if strings.TrimSpace(turn.Text) != "" {
				return false
			}
		}
		return true
	}
	return true
}

// VariantID returns the embedded variant number, 0 when absent.
func (p Payload) VariantID() int {
	switch {
	case p.Headline != nil:
		return p.Headline.VariantID
	case p.Carousel != nil:
		return p.Carousel.VariantID
	case p.Video != nil:
		return p.Video.VariantID
	case p.Dialogue != nil:
		return p.Dialogue.VariantID
	}
	return 0
}

// WithVariant returns a copy of the payload tagged with id.
func (p Payload) WithVariant(id int) Payload {
	switch {
	case p.Headline != nil:
		h := *p.Headline
		h.VariantID = id
		p.Headline = &h
	case p.Carousel != nil:
		c := *p.Carousel
		c.VariantID = id
		p.Carousel = &c
	case p.Video != nil:
		v := *p.Video
		v.VariantID = id
		p.Video = &v
	case p.Dialogue != nil:
		d := *p.Dialogue
		d.VariantID = id
		p.Dialogue = &d
	}
	return p
}

// MarshalJSON encodes only the populated shape.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch {
	case p.Headline != nil:
		return json.Marshal(p.Headline)
	case p.Carousel != nil:
		return json.Marshal(p.Carousel)
	case p.Video != nil:
		return json.Marshal(p.Video)
	case p.Dialogue != nil:
		return json.Marshal(p.Dialogue)
	}
	return []byte("null"), nil
}
