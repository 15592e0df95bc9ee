package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsCast/internal/domain"
)

var postColumns = []string{
	"id", "article_id", "platform", "content_type", "generating_model", "content", "selected",
	"podcast_url", "podcast_posted", "podcast_published_at", "created_at",
}

// HasPosts reports whether any post references the article.
func (s *Store) HasPosts(ctx context.Context, articleID string) (bool, error) {
	var n int
	q := s.sb.Select("COUNT(*)").From("posts").Where(sq.Eq{"article_id": articleID})
	if err := s.getInto(ctx, &n, q); err != nil {
		return false, fmt.Errorf("count posts for %s: %w", articleID, err)
	}
	return n > 0, nil
}

// InsertPost stores a new unselected post and returns its id.
func (s *Store) InsertPost(ctx context.Context, post domain.Post) (string, error) {
	id := post.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	q := s.sb.Insert("posts").
		Columns("id", "article_id", "platform", "content_type", "generating_model", "content", "selected", "created_at").
		Values(id, post.ArticleID, post.Platform, post.ContentType, post.GeneratingModel, post.Content, false, createdAt.UTC())
	if _, err := s.exec(ctx, q); err != nil {
		return "", fmt.Errorf("insert %s post: %w", post.ContentType, err)
	}
	return id, nil
}

// GetPost loads one post by id.
func (s *Store) GetPost(ctx context.Context, id string) (domain.Post, error) {
	var post domain.Post
	q := s.sb.Select(postColumns...).From("posts").Where(sq.Eq{"id": id})
	if err := s.getInto(ctx, &post, q); err != nil {
		return domain.Post{}, fmt.Errorf("get post %s: %w", id, notFound(err))
	}
	return post, nil
}

// ListOpenGroups returns (article, content type) groups that have candidates
// and no winner yet, oldest first.
func (s *Store) ListOpenGroups(ctx context.Context, contentType domain.ContentType, limit int) ([]domain.GroupKey, error) {
	q := s.sb.Select("p.article_id", "p.content_type").
		From("posts AS p").
		Where(sq.Eq{"p.selected": false}).
		Where(sq.NotEq{"p.article_id": nil}).
		Where(sq.NotEq{"p.content_type": string(domain.ContentAudioRoundup)}).
		Where(`NOT EXISTS (SELECT 1 FROM posts AS w
			WHERE w.article_id = p.article_id AND w.content_type = p.content_type AND w.selected = ?)`, true).
		GroupBy("p.article_id", "p.content_type").
		OrderBy("MIN(p.created_at)", "p.article_id").
		Limit(limitOf(limit))
	if contentType != "" {
		q = q.Where(sq.Eq{"p.content_type": string(contentType)})
	}

	var groups []domain.GroupKey
	if err := s.selectInto(ctx, &groups, q); err != nil {
		return nil, fmt.Errorf("list open groups: %w", err)
	}
	return groups, nil
}

// ListGroupCandidates returns the unselected posts of one group in creation order.
func (s *Store) ListGroupCandidates(ctx context.Context, key domain.GroupKey) ([]domain.Post, error) {
	q := s.sb.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"article_id": key.ArticleID, "content_type": string(key.ContentType), "selected": false}).
		OrderBy("created_at", "id")

	var posts []domain.Post
	if err := s.selectInto(ctx, &posts, q); err != nil {
		return nil, fmt.Errorf("list candidates %s/%s: %w", key.ArticleID, key.ContentType, err)
	}
	return posts, nil
}

// MarkSelected makes postID the winner of its group in one conditional
// update. It returns false when the group already has a winner.
func (s *Store) MarkSelected(ctx context.Context, postID string, key domain.GroupKey) (bool, error) {
	q := s.sb.Update("posts").
		Set("selected", true).
		Where(sq.Eq{"id": postID, "selected": false}).
		Where(`NOT EXISTS (SELECT 1 FROM posts AS w
			WHERE w.article_id = ? AND w.content_type = ? AND w.selected = ?)`,
			key.ArticleID, string(key.ContentType), true)

	res, err := s.exec(ctx, q)
	if err != nil {
		return false, fmt.Errorf("select post %s: %w", postID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("select post %s: rows affected: %w", postID, err)
	}
	return n == 1, nil
}

// RecordArticleUsage links a roundup post to the stories it covers.
func (s *Store) RecordArticleUsage(ctx context.Context, postID string, articleIDs []string) error {
	if len(articleIDs) == 0 {
		return nil
	}
	q := s.sb.Insert("article_usage").Columns("post_id", "article_id")
	for _, id := range articleIDs {
		q = q.Values(postID, id)
	}
	q = q.Suffix("ON CONFLICT (post_id, article_id) DO NOTHING")
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("record usage for %s: %w", postID, err)
	}
	return nil
}

// ListProjectRoundups returns audio roundups that used at least one of the
// project's articles, newest first.
func (s *Store) ListProjectRoundups(ctx context.Context, projectID string, limit int) ([]domain.Post, error) {
	// Built with the default "?" placeholder so the outer builder numbers it.
	used := sq.Select("u.post_id").
		From("article_usage AS u").
		Join("articles AS a ON a.id = u.article_id").
		Where(sq.Eq{"a.project_id": projectID})
	usedSQL, usedArgs, err := used.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build usage query: %w", err)
	}

	q := s.sb.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"content_type": string(domain.ContentAudioRoundup)}).
		Where("id IN ("+usedSQL+")", usedArgs...).
		OrderBy("created_at DESC", "id").
		Limit(limitOf(limit))

	var posts []domain.Post
	if err := s.selectInto(ctx, &posts, q); err != nil {
		return nil, fmt.Errorf("list roundups for project %s: %w", projectID, err)
	}
	return posts, nil
}

// MarkPodcastPublished stores the episode URL. An existing publish time is kept.
func (s *Store) MarkPodcastPublished(ctx context.Context, postID, url string, publishedAt time.Time) error {
	q := s.sb.Update("posts").
		Set("podcast_url", url).
		Set("podcast_posted", true).
		Set("podcast_published_at", sq.Expr("COALESCE(podcast_published_at, ?)", publishedAt.UTC())).
		Where(sq.Eq{"id": postID})
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("mark post %s published: %w", postID, err)
	}
	return nil
}
