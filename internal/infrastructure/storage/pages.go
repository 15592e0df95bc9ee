package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsCast/internal/domain"
)

// UpsertCategoryPage stores a listing page keyed by source_url. A rescrape
// replaces the HTML and makes the page eligible for link extraction again.
func (s *Store) UpsertCategoryPage(ctx context.Context, page domain.CategoryPage) (string, error) {
	scrapedAt := page.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = s.now()
	}

	q := s.sb.Insert("category_pages").
		Columns("id", "source_url", "source_website", "raw_html", "scraped_at", "processed").
		Values(uuid.NewString(), page.SourceURL, page.SourceWebsite, page.RawHTML, scrapedAt.UTC(), false).
		Suffix(`ON CONFLICT (source_url) DO UPDATE SET
			source_website = excluded.source_website,
			raw_html = excluded.raw_html,
			scraped_at = excluded.scraped_at,
			processed = excluded.processed
			RETURNING id`)

	id, err := s.returningID(ctx, q)
	if err != nil {
		return "", fmt.Errorf("upsert category page %s: %w", page.SourceURL, err)
	}
	return id, nil
}

// ListUnprocessedPages returns pages the link extractor has not consumed.
func (s *Store) ListUnprocessedPages(ctx context.Context, limit int) ([]domain.CategoryPage, error) {
	q := s.sb.Select("id", "source_url", "source_website", "raw_html", "scraped_at", "processed").
		From("category_pages").
		Where(sq.Eq{"processed": false}).
		OrderBy("scraped_at", "id").
		Limit(limitOf(limit))

	var pages []domain.CategoryPage
	if err := s.selectInto(ctx, &pages, q); err != nil {
		return nil, fmt.Errorf("list unprocessed pages: %w", err)
	}
	return pages, nil
}

// MarkPageProcessed flips processed=true.
func (s *Store) MarkPageProcessed(ctx context.Context, id string) error {
	q := s.sb.Update("category_pages").Set("processed", true).Where(sq.Eq{"id": id})
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("mark page %s processed: %w", id, err)
	}
	return nil
}

// UpsertArticleURLs inserts unseen URLs and ignores known ones. It returns
// the number of new rows.
func (s *Store) UpsertArticleURLs(ctx context.Context, urls []domain.ArticleURL) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	q := s.sb.Insert("article_urls").
		Columns("id", "article_url", "source_website", "category_page_id", "scraped")
	for _, u := range urls {
		q = q.Values(uuid.NewString(), u.ArticleURL, u.SourceWebsite, u.CategoryPageID, false)
	}
	q = q.Suffix("ON CONFLICT (article_url) DO NOTHING")

	res, err := s.exec(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("upsert article urls: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("upsert article urls: rows affected: %w", err)
	}
	return int(n), nil
}

// ListUnscrapedURLs returns links whose article has not been fetched.
func (s *Store) ListUnscrapedURLs(ctx context.Context, limit int) ([]domain.ArticleURL, error) {
	q := s.sb.Select("id", "article_url", "source_website", "category_page_id", "scraped").
		From("article_urls").
		Where(sq.Eq{"scraped": false}).
		OrderBy("id").
		Limit(limitOf(limit))

	var urls []domain.ArticleURL
	if err := s.selectInto(ctx, &urls, q); err != nil {
		return nil, fmt.Errorf("list unscraped urls: %w", err)
	}
	return urls, nil
}

// MarkURLScraped flips scraped=true.
func (s *Store) MarkURLScraped(ctx context.Context, id string) error {
	q := s.sb.Update("article_urls").Set("scraped", true).Where(sq.Eq{"id": id})
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("mark url %s scraped: %w", id, err)
	}
	return nil
}
