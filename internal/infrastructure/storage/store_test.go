package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

// Test helper: open a fresh SQLite store
func createTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err, "should open store")
	t.Cleanup(func() { store.Close() })
	return store
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func insertScoredArticle(t *testing.T, s *Store, url string, score int, formats domain.FormatList) string {
	t.Helper()
	ctx := context.Background()
	id, err := s.UpsertRawArticle(ctx, domain.Article{SourceURL: url, SourceWebsite: "news.example", RawHTML: "<p>x</p>"})
	require.NoError(t, err)
	require.NoError(t, s.MarkArticleExtracted(ctx, id, domain.Extraction{Title: "T", Summary: "S", Content: "C"}))
	require.NoError(t, s.MarkArticleScored(ctx, id, score, formats))
	return id
}

func TestCategoryPageUpsertIsKeyedBySourceURL(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id1, err := s.UpsertCategoryPage(ctx, domain.CategoryPage{SourceURL: "https://news.example/list", SourceWebsite: "news.example", RawHTML: "<a>1</a>"})
	require.NoError(t, err)
	require.NoError(t, s.MarkPageProcessed(ctx, id1))

	pages, err := s.ListUnprocessedPages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pages)

	id2, err := s.UpsertCategoryPage(ctx, domain.CategoryPage{SourceURL: "https://news.example/list", SourceWebsite: "news.example", RawHTML: "<a>2</a>"})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, countRows(t, s, "category_pages"))

	pages, err = s.ListUnprocessedPages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pages, 1, "rescrape makes the page eligible again")
	assert.Equal(t, "<a>2</a>", pages[0].RawHTML)
}

func TestUpsertArticleURLsIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	urls := []domain.ArticleURL{
		{ArticleURL: "https://news.example/a", SourceWebsite: "news.example", CategoryPageID: "p1"},
		{ArticleURL: "https://news.example/b", SourceWebsite: "news.example", CategoryPageID: "p1"},
	}
	n, err := s.UpsertArticleURLs(ctx, urls)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.UpsertArticleURLs(ctx, urls)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, countRows(t, s, "article_urls"))

	pending, err := s.ListUnscrapedURLs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.NoError(t, s.MarkURLScraped(ctx, pending[0].ID))

	pending, err = s.ListUnscrapedURLs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestArticleStageFlags(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertRawArticle(ctx, domain.Article{SourceURL: "https://news.example/a", SourceWebsite: "news.example", RawHTML: "<p>a</p>"})
	require.NoError(t, err)
	again, err := s.UpsertRawArticle(ctx, domain.Article{SourceURL: "https://news.example/a", SourceWebsite: "news.example", RawHTML: "<p>b</p>"})
	require.NoError(t, err)
	assert.Equal(t, id, again, "rediscovered url collapses to one article")

	err = s.MarkArticleScored(ctx, id, 9, domain.FormatList{domain.ContentHeadline})
	require.ErrorIs(t, err, domain.ErrNotFound, "unprocessed rows cannot be scored")

	require.Error(t, s.MarkArticleExtracted(ctx, id, domain.Extraction{Summary: "  "}))

	require.NoError(t, s.MarkArticleExtracted(ctx, id, domain.Extraction{Title: "T", Summary: "S", Content: "C"}))
	unscored, err := s.ListUnscoredArticles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unscored, 1)

	require.NoError(t, s.MarkArticleScored(ctx, id, 7, domain.FormatList{domain.ContentCarousel, domain.ContentHeadline}))
	require.ErrorIs(t, s.MarkArticleScored(ctx, id, 1, nil), domain.ErrNotFound, "scoring happens once")

	article, err := s.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.True(t, article.Processed)
	assert.True(t, article.Scored)
	assert.Equal(t, 7, article.JudgeScore)
	assert.Equal(t, domain.FormatList{domain.ContentCarousel, domain.ContentHeadline}, article.FormatAssignments)
	assert.Equal(t, "<p>b</p>", article.RawHTML)
}

func TestListArticlesForGenerationSkipsArticlesWithPosts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	withPost := insertScoredArticle(t, s, "https://news.example/a", 9, domain.FormatList{domain.ContentHeadline})
	fresh := insertScoredArticle(t, s, "https://news.example/b", 8, domain.FormatList{domain.ContentHeadline})
	insertScoredArticle(t, s, "https://news.example/c", 2, domain.FormatList{})

	post, err := domain.NewPost(&withPost, "instagram", "m1", domain.Payload{ContentType: domain.ContentHeadline, Headline: &domain.Headline{Text: "h"}})
	require.NoError(t, err)
	_, err = s.InsertPost(ctx, post)
	require.NoError(t, err)

	has, err := s.HasPosts(ctx, withPost)
	require.NoError(t, err)
	assert.True(t, has)

	eligible, err := s.ListArticlesForGeneration(ctx, 10)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, fresh, eligible[0].ID)
}

func TestMarkSelectedAllowsOneWinnerPerGroup(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	articleID := insertScoredArticle(t, s, "https://news.example/a", 9, domain.FormatList{domain.ContentVideo})

	var ids []string
	for _, model := range []string{"m1", "m2"} {
		post, err := domain.NewPost(&articleID, "tiktok", model, domain.Payload{ContentType: domain.ContentVideo, Video: &domain.Video{Script: model}})
		require.NoError(t, err)
		id, err := s.InsertPost(ctx, post)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	groups, err := s.ListOpenGroups(ctx, "", 10)
	require.NoError(t, err)
	require.Equal(t, []domain.GroupKey{{ArticleID: articleID, ContentType: domain.ContentVideo}}, groups)

	candidates, err := s.ListGroupCandidates(ctx, groups[0])
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	ok, err := s.MarkSelected(ctx, ids[1], groups[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkSelected(ctx, ids[0], groups[0])
	require.NoError(t, err)
	assert.False(t, ok, "a group keeps its first winner")

	groups, err = s.ListOpenGroups(ctx, domain.ContentVideo, 10)
	require.NoError(t, err)
	assert.Empty(t, groups)

	winner, err := s.GetPost(ctx, ids[1])
	require.NoError(t, err)
	assert.True(t, winner.Selected)
	loser, err := s.GetPost(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, loser.Selected)
}

func TestProjectRoundupsFollowArticleUsage(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProject(ctx, domain.Project{ID: "p1", Name: "Celebrities / Entertainment", Language: "en"}))
	project := "p1"
	articleID, err := s.UpsertRawArticle(ctx, domain.Article{SourceURL: "https://news.example/a", SourceWebsite: "news.example", ProjectID: &project})
	require.NoError(t, err)

	payload := domain.Payload{ContentType: domain.ContentAudioRoundup, Dialogue: &domain.Dialogue{Dialogue: []domain.DialogueTurn{{Speaker: "host_a", Text: "hi"}}}}
	older, err := domain.NewPost(nil, "youtube", "m", payload)
	require.NoError(t, err)
	older.CreatedAt = time.Now().Add(-time.Hour)
	olderID, err := s.InsertPost(ctx, older)
	require.NoError(t, err)
	newer, err := domain.NewPost(nil, "youtube", "m", payload)
	require.NoError(t, err)
	newerID, err := s.InsertPost(ctx, newer)
	require.NoError(t, err)
	unrelated, err := domain.NewPost(nil, "youtube", "m", payload)
	require.NoError(t, err)
	_, err = s.InsertPost(ctx, unrelated)
	require.NoError(t, err)

	require.NoError(t, s.RecordArticleUsage(ctx, olderID, []string{articleID}))
	require.NoError(t, s.RecordArticleUsage(ctx, newerID, []string{articleID}))
	require.NoError(t, s.RecordArticleUsage(ctx, newerID, []string{articleID}))

	roundups, err := s.ListProjectRoundups(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, roundups, 2)
	assert.Equal(t, newerID, roundups[0].ID)
	assert.Equal(t, olderID, roundups[1].ID)

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.MarkPodcastPublished(ctx, newerID, "https://cdn.example/a.mp3", first))
	require.NoError(t, s.MarkPodcastPublished(ctx, newerID, "https://cdn.example/b.mp3", first.Add(time.Hour)))

	post, err := s.GetPost(ctx, newerID)
	require.NoError(t, err)
	require.NotNil(t, post.PodcastURL)
	assert.Equal(t, "https://cdn.example/b.mp3", *post.PodcastURL)
	require.NotNil(t, post.PodcastPublishedAt)
	assert.True(t, first.Equal(*post.PodcastPublishedAt), "first publish time is kept")
	assert.True(t, post.PodcastPosted)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
	_, err = s.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListRoundupCandidates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	low := insertScoredArticle(t, s, "https://news.example/low", 3, domain.FormatList{})
	high := insertScoredArticle(t, s, "https://news.example/high", 9, domain.FormatList{domain.ContentHeadline})
	mid := insertScoredArticle(t, s, "https://news.example/mid", 6, domain.FormatList{domain.ContentHeadline})

	stories, err := s.ListRoundupCandidates(ctx, ports.RoundupFilter{Since: time.Now().Add(-time.Hour), MinScore: 4, Limit: 5})
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, high, stories[0].ID)
	assert.Equal(t, mid, stories[1].ID)
	assert.NotEqual(t, low, stories[1].ID)

	stories, err = s.ListRoundupCandidates(ctx, ports.RoundupFilter{Since: time.Now().Add(time.Hour), Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, stories, "window excludes older stories")
}

func TestRecordOutcomeAccumulates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordOutcome(ctx, "m1", domain.ContentVideo, true))
	require.NoError(t, s.RecordOutcome(ctx, "m1", domain.ContentVideo, false))
	require.NoError(t, s.RecordOutcome(ctx, "m1", domain.ContentVideo, true))
	require.NoError(t, s.RecordOutcome(ctx, "m2", domain.ContentVideo, false))

	rows, err := s.ListPerformance(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "m1", rows[0].ModelName)
	assert.Equal(t, 2, rows[0].Wins)
	assert.Equal(t, 1, rows[0].Losses)
	assert.Equal(t, 3, rows[0].TotalRuns)
	assert.Equal(t, 1, rows[1].Losses)
}
