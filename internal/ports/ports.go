package ports

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"NewsCast/internal/domain"
)

// CategoryPageRepository stores scraped listing pages.
type CategoryPageRepository interface {
	UpsertCategoryPage(ctx context.Context, page domain.CategoryPage) (string, error)
	ListUnprocessedPages(ctx context.Context, limit int) ([]domain.CategoryPage, error)
	MarkPageProcessed(ctx context.Context, id string) error
}

// ArticleURLRepository stores discovered article links.
type ArticleURLRepository interface {
	UpsertArticleURLs(ctx context.Context, urls []domain.ArticleURL) (int, error)
	ListUnscrapedURLs(ctx context.Context, limit int) ([]domain.ArticleURL, error)
	MarkURLScraped(ctx context.Context, id string) error
}

// ArticleRepository persists articles across the extraction and judging stages.
type ArticleRepository interface {
	UpsertRawArticle(ctx context.Context, article domain.Article) (string, error)
	ListUnprocessedArticles(ctx context.Context, limit int) ([]domain.Article, error)
	MarkArticleExtracted(ctx context.Context, id string, extraction domain.Extraction) error
	ListUnscoredArticles(ctx context.Context, limit int) ([]domain.Article, error)
	MarkArticleScored(ctx context.Context, id string, score int, formats domain.FormatList) error
	ListArticlesForGeneration(ctx context.Context, limit int) ([]domain.Article, error)
	ListRoundupCandidates(ctx context.Context, filter RoundupFilter) ([]domain.Article, error)
}

// RoundupFilter narrows the roundup story query.
type RoundupFilter struct {
	Since     time.Time
	MinScore  int
	ProjectID string
	Limit     int
}

// PostRepository persists generated posts and tournament outcomes.
type PostRepository interface {
	HasPosts(ctx context.Context, articleID string) (bool, error)
	InsertPost(ctx context.Context, post domain.Post) (string, error)
	ListOpenGroups(ctx context.Context, contentType domain.ContentType, limit int) ([]domain.GroupKey, error)
	ListGroupCandidates(ctx context.Context, key domain.GroupKey) ([]domain.Post, error)
	MarkSelected(ctx context.Context, postID string, key domain.GroupKey) (bool, error)
	RecordArticleUsage(ctx context.Context, postID string, articleIDs []string) error
	ListProjectRoundups(ctx context.Context, projectID string, limit int) ([]domain.Post, error)
	MarkPodcastPublished(ctx context.Context, postID, url string, publishedAt time.Time) error
}

// PerformanceRecorder accumulates per-model tournament results.
type PerformanceRecorder interface {
	RecordOutcome(ctx context.Context, model string, contentType domain.ContentType, won bool) error
}

// ProjectRepository reads project reference data.
type ProjectRepository interface {
	GetProject(ctx context.Context, id string) (domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// ChatRequest is one role-tagged prompt.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// ChatClient sends prompts to an LLM and returns the raw reply text.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Distiller turns raw article HTML into title, summary and clean content.
type Distiller interface {
	Distill(ctx context.Context, sourceURL, rawHTML string) (domain.Extraction, error)
}

// Judge scores a distilled summary.
type Judge interface {
	Judge(ctx context.Context, summary string) (domain.Verdict, error)
}

// Generator produces candidate content keyed by format name.
type Generator interface {
	Generate(ctx context.Context, model, content string, formats []domain.ContentType, variant int) (map[domain.ContentType]json.RawMessage, error)
}

// Selector picks the best candidate of one tournament group.
type Selector interface {
	PickWinner(ctx context.Context, contentType domain.ContentType, candidates []domain.Candidate) (domain.WinnerRef, error)
}

// RoundupWriter turns a story list into a two-host dialogue.
type RoundupWriter interface {
	Model() string
	WriteRoundup(ctx context.Context, stories []domain.Story, languageLabel string) (domain.Dialogue, error)
}

// SpeechSynthesizer renders text to mp3 bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, voice, text string) ([]byte, error)
}

// ImageGenerator renders a prompt to image bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// ObjectStore uploads published artifacts.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType, cacheControl string) (string, error)
	PublicURL(key string) string
}

// Fetcher performs outbound page requests.
type Fetcher interface {
	Get(ctx context.Context, url string) (string, error)
	ContentLength(ctx context.Context, url string) (int64, error)
}

// AudioRenderer produces a local mp3 for a roundup post.
type AudioRenderer interface {
	Render(ctx context.Context, postID string, dialogue domain.Dialogue) (string, error)
}

// ArtworkProvider produces a local square PNG for a project.
type ArtworkProvider interface {
	Artwork(ctx context.Context, projectID, prompt string) (string, error)
}

// Notifier announces published feeds.
type Notifier interface {
	Announce(ctx context.Context, message string) error
}

// StageObserver records stage outcomes.
type StageObserver interface {
	ObserveStage(stage string, processed, skipped, failed int, duration time.Duration, err error)
}

// Scheduler runs named jobs on fixed intervals.
type Scheduler interface {
	Schedule(name string, every time.Duration, job func(ctx context.Context)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
