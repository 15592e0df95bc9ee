package storage

// schema is portable between Postgres and SQLite: ids are TEXT uuids,
// JSON payloads are TEXT and timestamps are written in UTC.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		podcast_image_prompt TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS category_pages (
		id TEXT PRIMARY KEY,
		source_url TEXT NOT NULL UNIQUE,
		source_website TEXT NOT NULL,
		raw_html TEXT NOT NULL DEFAULT '',
		scraped_at TIMESTAMP NOT NULL,
		processed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS article_urls (
		id TEXT PRIMARY KEY,
		article_url TEXT NOT NULL UNIQUE,
		source_website TEXT NOT NULL,
		category_page_id TEXT NOT NULL DEFAULT '',
		scraped BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		source_url TEXT NOT NULL UNIQUE,
		source_website TEXT NOT NULL,
		raw_html TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		judge_score INTEGER NOT NULL DEFAULT 0,
		format_assignments TEXT NOT NULL DEFAULT '[]',
		processed BOOLEAN NOT NULL DEFAULT FALSE,
		scored BOOLEAN NOT NULL DEFAULT FALSE,
		project_id TEXT,
		scraped_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS articles_stage_idx ON articles (processed, scored)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		article_id TEXT,
		platform TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL,
		generating_model TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		selected BOOLEAN NOT NULL DEFAULT FALSE,
		podcast_url TEXT,
		podcast_posted BOOLEAN NOT NULL DEFAULT FALSE,
		podcast_published_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS posts_group_idx ON posts (article_id, content_type, selected)`,
	`CREATE TABLE IF NOT EXISTS article_usage (
		post_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		PRIMARY KEY (post_id, article_id)
	)`,
	`CREATE TABLE IF NOT EXISTS model_performance (
		model_name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		total_runs INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (model_name, content_type)
	)`,
}
