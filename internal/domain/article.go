package domain

import "time"

// CategoryPage is a scraped listing page waiting for link extraction.
type CategoryPage struct {
	ID            string    `db:"id"`
	SourceURL     string    `db:"source_url"`
	SourceWebsite string    `db:"source_website"`
	RawHTML       string    `db:"raw_html"`
	ScrapedAt     time.Time `db:"scraped_at"`
	Processed     bool      `db:"processed"`
}

// ArticleURL is a discovered article link that has not necessarily been fetched yet.
type ArticleURL struct {
	ID             string `db:"id"`
	ArticleURL     string `db:"article_url"`
	SourceWebsite  string `db:"source_website"`
	CategoryPageID string `db:"category_page_id"`
	Scraped        bool   `db:"scraped"`
}

// Article is a fetched document moving through extraction and judging.
type Article struct {
	ID                string     `db:"id"`
	SourceURL         string     `db:"source_url"`
	SourceWebsite     string     `db:"source_website"`
	RawHTML           string     `db:"raw_html"`
	Title             string     `db:"title"`
	Content           string     `db:"content"`
	Summary           string     `db:"summary"`
	JudgeScore        int        `db:"judge_score"`
	FormatAssignments FormatList `db:"format_assignments"`
	Processed         bool       `db:"processed"`
	Scored            bool       `db:"scored"`
	ProjectID         *string    `db:"project_id"`
	ScrapedAt         time.Time  `db:"scraped_at"`
	CreatedAt         time.Time  `db:"created_at"`
}

// Extraction is the distilled form of an article's raw HTML.
type Extraction struct {
	Title   string
	Summary string
	Content string
	// Error is set when the result was produced by the local fallback.
	Error string
}

// Verdict is the outcome of scoring one article summary.
type Verdict struct {
	Score   int
	Formats []ContentType
}

// Story is one article handed to the roundup writer.
type Story struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Project owns articles and a podcast feed.
type Project struct {
	ID                 string `db:"id" yaml:"id"`
	Name               string `db:"name" yaml:"name"`
	Language           string `db:"language" yaml:"language"`
	PodcastImagePrompt string `db:"podcast_image_prompt" yaml:"podcastImagePrompt"`
}
