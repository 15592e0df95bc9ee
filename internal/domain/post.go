package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Post is one generated artifact: a tournament candidate or a roundup.
type Post struct {
	ID                 string     `db:"id"`
	ArticleID          *string    `db:"article_id"`
	Platform           string     `db:"platform"`
	ContentType        string     `db:"content_type"`
	GeneratingModel    string     `db:"generating_model"`
	Content            string     `db:"content"`
	Selected           bool       `db:"selected"`
	PodcastURL         *string    `db:"podcast_url"`
	PodcastPosted      bool       `db:"podcast_posted"`
	PodcastPublishedAt *time.Time `db:"podcast_published_at"`
	CreatedAt          time.Time  `db:"created_at"`
}

// NewPost builds an unsaved post carrying payload.
func NewPost(articleID *string, platform, model string, payload Payload) (Post, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Post{}, fmt.Errorf("marshal %s payload: %w", payload.ContentType, err)
	}
	return Post{
		ArticleID:       articleID,
		Platform:        platform,
		ContentType:     string(payload.ContentType),
		GeneratingModel: model,
		Content:         string(raw),
	}, nil
}

// Payload decodes the stored content into its typed shape.
func (p Post) Payload() (Payload, error) {
	return DecodePayload(ContentType(p.ContentType), json.RawMessage(p.Content))
}

// GroupKey identifies one tournament group.
type GroupKey struct {
	ArticleID   string      `db:"article_id"`
	ContentType ContentType `db:"content_type"`
}

// Candidate is one post as presented to the selection collaborator.
type Candidate struct {
	PostID    string          `json:"-"`
	VariantID int             `json:"variant_id,omitempty"`
	Model     string          `json:"model"`
	Content   json.RawMessage `json:"content"`
}

// WinnerRef is the selection collaborator's answer.
type WinnerRef struct {
	VariantID int
	Model     string
	Reasoning string
}
