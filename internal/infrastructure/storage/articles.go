package storage

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

var articleColumns = []string{
	"id", "source_url", "source_website", "raw_html", "title", "content", "summary",
	"judge_score", "format_assignments", "processed", "scored", "project_id", "scraped_at", "created_at",
}

func (s *Store) selectArticles() sq.SelectBuilder {
	return s.sb.Select(articleColumns...).From("articles")
}

// UpsertRawArticle stores fetched HTML keyed by source_url. Stage flags of an
// existing row are left untouched.
func (s *Store) UpsertRawArticle(ctx context.Context, article domain.Article) (string, error) {
	now := s.now()
	scrapedAt := article.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = now
	}

	q := s.sb.Insert("articles").
		Columns("id", "source_url", "source_website", "raw_html", "title", "content", "project_id", "scraped_at", "created_at").
		Values(uuid.NewString(), article.SourceURL, article.SourceWebsite, article.RawHTML,
			article.Title, article.Content, article.ProjectID, scrapedAt.UTC(), now).
		Suffix(`ON CONFLICT (source_url) DO UPDATE SET
			raw_html = excluded.raw_html,
			scraped_at = excluded.scraped_at
			RETURNING id`)

	id, err := s.returningID(ctx, q)
	if err != nil {
		return "", fmt.Errorf("upsert article %s: %w", article.SourceURL, err)
	}
	return id, nil
}

// GetArticle loads one article by id.
func (s *Store) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	var article domain.Article
	if err := s.getInto(ctx, &article, s.selectArticles().Where(sq.Eq{"id": id})); err != nil {
		return domain.Article{}, fmt.Errorf("get article %s: %w", id, notFound(err))
	}
	return article, nil
}

// ListUnprocessedArticles returns articles awaiting extraction.
func (s *Store) ListUnprocessedArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	q := s.selectArticles().
		Where(sq.Eq{"processed": false}).
		OrderBy("created_at", "id").
		Limit(limitOf(limit))
	return s.listArticles(ctx, "unprocessed", q)
}

// MarkArticleExtracted stores the distilled fields and sets processed=true.
func (s *Store) MarkArticleExtracted(ctx context.Context, id string, extraction domain.Extraction) error {
	if strings.TrimSpace(extraction.Summary) == "" {
		return fmt.Errorf("mark article %s extracted: empty summary", id)
	}
	q := s.sb.Update("articles").
		Set("title", extraction.Title).
		Set("summary", extraction.Summary).
		Set("content", extraction.Content).
		Set("processed", true).
		Where(sq.Eq{"id": id})
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("mark article %s extracted: %w", id, err)
	}
	return nil
}

// ListUnscoredArticles returns extracted articles awaiting the judge.
func (s *Store) ListUnscoredArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	q := s.selectArticles().
		Where(sq.Eq{"processed": true, "scored": false}).
		OrderBy("created_at", "id").
		Limit(limitOf(limit))
	return s.listArticles(ctx, "unscored", q)
}

// MarkArticleScored writes the verdict once. Rows that are not processed or
// have an empty summary are refused.
func (s *Store) MarkArticleScored(ctx context.Context, id string, score int, formats domain.FormatList) error {
	if formats == nil {
		formats = domain.FormatList{}
	}
	q := s.sb.Update("articles").
		Set("judge_score", score).
		Set("format_assignments", formats).
		Set("scored", true).
		Where(sq.Eq{"id": id, "processed": true, "scored": false}).
		Where(sq.NotEq{"summary": ""})

	res, err := s.exec(ctx, q)
	if err != nil {
		return fmt.Errorf("mark article %s scored: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark article %s scored: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListArticlesForGeneration returns scored articles with content and formats
// that have no posts yet.
func (s *Store) ListArticlesForGeneration(ctx context.Context, limit int) ([]domain.Article, error) {
	q := s.selectArticles().
		Where(sq.Eq{"scored": true}).
		Where(sq.NotEq{"content": ""}).
		Where(sq.NotEq{"format_assignments": "[]"}).
		Where("NOT EXISTS (SELECT 1 FROM posts WHERE posts.article_id = articles.id)").
		OrderBy("judge_score DESC", "created_at", "id").
		Limit(limitOf(limit))
	return s.listArticles(ctx, "generation", q)
}

// ListRoundupCandidates returns the best recent stories, highest score first.
func (s *Store) ListRoundupCandidates(ctx context.Context, filter ports.RoundupFilter) ([]domain.Article, error) {
	q := s.selectArticles().
		Where(sq.Eq{"processed": true, "scored": true}).
		Where(sq.GtOrEq{"judge_score": filter.MinScore, "scraped_at": filter.Since.UTC()}).
		OrderBy("judge_score DESC", "scraped_at DESC").
		Limit(limitOf(filter.Limit))
	if filter.ProjectID != "" {
		q = q.Where(sq.Eq{"project_id": filter.ProjectID})
	}
	return s.listArticles(ctx, "roundup", q)
}

func (s *Store) listArticles(ctx context.Context, kind string, q sq.SelectBuilder) ([]domain.Article, error) {
	var articles []domain.Article
	if err := s.selectInto(ctx, &articles, q); err != nil {
		return nil, fmt.Errorf("list %s articles: %w", kind, err)
	}
	return articles, nil
}
