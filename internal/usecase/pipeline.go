package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
	"NewsCast/internal/scanner"
)

// Source is one category listing page scraped on every run.
type Source struct {
	Site    string
	URL     string
	Project string
}

// GenerationPolicy controls the model/variant fan-out of the generation funnel.
type GenerationPolicy struct {
	Models          []string
	Variants        int
	DefaultPlatform string
	Platforms       map[domain.ContentType]string
}

// PlatformFor returns the publishing platform recorded on posts of ct.
func (g GenerationPolicy) PlatformFor(ct domain.ContentType) string {
	if p := g.Platforms[ct]; p != "" {
		return p
	}
	return g.DefaultPlatform
}

// RoundupPolicy controls story selection for audio roundups. Stories are
// picked across all projects unless ScopeToProject is set; the requested
// project otherwise only sets the language.
type RoundupPolicy struct {
	Size            int
	Window          time.Duration
	MinScore        int
	DefaultLanguage string
	Platform        string
	ScopeToProject  bool
}

// PipelineDeps wires all driven adapters into the staged pipeline.
type PipelineDeps struct {
	Pages       ports.CategoryPageRepository
	URLs        ports.ArticleURLRepository
	Articles    ports.ArticleRepository
	Posts       ports.PostRepository
	Projects    ports.ProjectRepository
	Performance ports.PerformanceRecorder
	Fetcher     ports.Fetcher
	Rules       *scanner.Table
	Distiller   ports.Distiller
	Judge       ports.Judge
	Generator   ports.Generator
	Selector    ports.Selector
	Writer      ports.RoundupWriter
	Observer    ports.StageObserver
	Logger      *slog.Logger
	Now         func() time.Time

	Sources    []Source
	Formats    FormatPolicy
	Generation GenerationPolicy
	Roundup    RoundupPolicy
}

// Pipeline implements the polling stages. Each stage method reads one bounded
// batch, processes rows sequentially and advances their flags; a row that
// fails is left for the next poll.
type Pipeline struct {
	pages       ports.CategoryPageRepository
	urls        ports.ArticleURLRepository
	articles    ports.ArticleRepository
	posts       ports.PostRepository
	projects    ports.ProjectRepository
	performance ports.PerformanceRecorder
	fetcher     ports.Fetcher
	rules       *scanner.Table
	distiller   ports.Distiller
	judge       ports.Judge
	generator   ports.Generator
	selector    ports.Selector
	writer      ports.RoundupWriter
	observer    ports.StageObserver
	logger      *slog.Logger
	now         func() time.Time

	sources      []Source
	siteProjects map[string]string
	formats      FormatPolicy
	generation   GenerationPolicy
	roundup      RoundupPolicy
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	formats := deps.Formats
	if len(formats) == 0 {
		formats = DefaultFormatPolicy()
	}
	rules := deps.Rules
	if rules == nil {
		rules, _ = scanner.NewTable(nil)
	}

	siteProjects := make(map[string]string)
	for _, src := range deps.Sources {
		if _, ok := siteProjects[src.Site]; !ok && src.Project != "" {
			siteProjects[src.Site] = src.Project
		}
	}

	return &Pipeline{
		pages:        deps.Pages,
		urls:         deps.URLs,
		articles:     deps.Articles,
		posts:        deps.Posts,
		projects:     deps.Projects,
		performance:  deps.Performance,
		fetcher:      deps.Fetcher,
		rules:        rules,
		distiller:    deps.Distiller,
		judge:        deps.Judge,
		generator:    deps.Generator,
		selector:     deps.Selector,
		writer:       deps.Writer,
		observer:     deps.Observer,
		logger:       logger.With("component", "pipeline"),
		now:          now,
		sources:      deps.Sources,
		siteProjects: siteProjects,
		formats:      formats,
		generation:   deps.Generation,
		roundup:      deps.Roundup,
	}
}

// StageResult counts row outcomes of one stage run. Created counts rows the
// stage inserted downstream (links, posts).
type StageResult struct {
	Processed int
	Skipped   int
	Failed    int
	Created   int
}

// finish logs and reports a completed stage run.
func (p *Pipeline) finish(ctx context.Context, stage string, start time.Time, res StageResult, err error) {
	elapsed := time.Since(start)
	attrs := []any{
		"stage", stage,
		"processed", res.Processed,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"created", res.Created,
		"duration", elapsed,
	}
	if err != nil {
		p.logger.ErrorContext(ctx, "stage failed", append(attrs, "error", err)...)
	} else {
		p.logger.InfoContext(ctx, "stage done", attrs...)
	}
	if p.observer != nil {
		p.observer.ObserveStage(stage, res.Processed, res.Skipped, res.Failed, elapsed, err)
	}
}
