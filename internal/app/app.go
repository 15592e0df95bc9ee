package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"NewsCast/internal/config"
	"NewsCast/internal/domain"
	"NewsCast/internal/infrastructure/llm"
	"NewsCast/internal/infrastructure/media"
	"NewsCast/internal/infrastructure/ml"
	"NewsCast/internal/infrastructure/objectstore"
	"NewsCast/internal/infrastructure/scheduler"
	"NewsCast/internal/infrastructure/storage"
	"NewsCast/internal/infrastructure/telegram"
	"NewsCast/internal/infrastructure/web"
	"NewsCast/internal/logging"
	"NewsCast/internal/metrics"
	"NewsCast/internal/podcast"
	"NewsCast/internal/ports"
	"NewsCast/internal/scanner"
	"NewsCast/internal/usecase"
	"NewsCast/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	metrics   *metrics.Stages
	pipeline  *usecase.Pipeline
	publisher *usecase.Publisher
	scheduler *usecase.Scheduler
}

// New opens storage and builds every adapter the stages need.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	for _, project := range cfg.Projects {
		if err := store.SaveProject(ctx, project); err != nil {
			store.Close()
			return nil, err
		}
	}

	rules, err := scanner.NewTable(cfg.Sites)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("site rules: %w", err)
	}

	openai := llm.NewOpenAIClient(llm.OpenAIOptions{
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		TTSModel:   cfg.LLM.TTSModel,
		ImageModel: cfg.LLM.ImageModel,
		ImageSize:  cfg.LLM.ImageSize,
		Timeout:    cfg.LLM.Timeout,
	})
	var anthropic ports.ChatClient
	if cfg.LLM.AnthropicAPIKey != "" {
		anthropic = llm.NewAnthropicClient(cfg.LLM.AnthropicAPIKey, cfg.LLM.AnthropicBaseURL, &http.Client{Timeout: cfg.LLM.Timeout})
	}
	models := ml.NewClient(llm.NewRouter(openai, anthropic), ml.Models{
		Extraction: cfg.LLM.ExtractionModel,
		Judge:      cfg.LLM.JudgeModel,
		Selection:  cfg.LLM.SelectionModel,
		Roundup:    cfg.LLM.RoundupModel,
	}, cfg.LLM.MaxInputChars)

	fetcher := web.NewFetcher(web.Options{
		Timeout:           cfg.HTTP.Timeout,
		UserAgent:         cfg.HTTP.UserAgent,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stages := metrics.NewStages(reg)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Pages:       store,
		URLs:        store,
		Articles:    store,
		Posts:       store,
		Projects:    store,
		Performance: store,
		Fetcher:     fetcher,
		Rules:       rules,
		Distiller:   models,
		Judge:       models,
		Generator:   models,
		Selector:    models,
		Writer:      models,
		Observer:    stages,
		Logger:      baseLogger,
		Sources:     sources(cfg.Sources),
		Formats:     formatPolicy(cfg.Judging.Bands),
		Generation: usecase.GenerationPolicy{
			Models:          cfg.LLM.GenerationModels,
			Variants:        cfg.Generation.Variants,
			DefaultPlatform: cfg.Generation.DefaultPlatform,
			Platforms:       platforms(cfg.Generation.Platforms),
		},
		Roundup: usecase.RoundupPolicy{
			Size:            cfg.Roundup.Size,
			Window:          cfg.Roundup.Window,
			MinScore:        cfg.Roundup.MinScore,
			DefaultLanguage: cfg.Roundup.DefaultLanguage,
			Platform:        cfg.Roundup.Platform,
			ScopeToProject:  cfg.Roundup.ScopeToProject,
		},
	})

	var objects ports.ObjectStore
	if cfg.Storage.Enabled() {
		r2, err := objectstore.New(objectstore.Options{
			Endpoint:      cfg.Storage.Endpoint,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			Bucket:        cfg.Storage.Bucket,
			Region:        cfg.Storage.Region,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
			UseSSL:        cfg.Storage.UseSSL,
		})
		if err != nil {
			store.Close()
			return nil, err
		}
		objects = r2
	} else {
		baseLogger.Info("object storage not configured, podcast publishing disabled")
	}

	var notifier ports.Notifier
	tg := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID, cfg.Notifications.Telegram.APIBase)
	if tg.Enabled() {
		notifier = tg
	}

	publisher := usecase.NewPublisher(usecase.PublisherDeps{
		Projects:       store,
		Posts:          store,
		Store:          objects,
		Audio:          media.NewAudioRenderer(openai, cfg.Podcast.MediaDir, cfg.LLM.VoiceA, cfg.LLM.VoiceB, cfg.Podcast.EnableTTS),
		Artwork:        media.NewArtworkProvider(openai, cfg.Podcast.MediaDir, cfg.Podcast.ArtworkSize, cfg.Podcast.EnableImages),
		Fetcher:        fetcher,
		Notifier:       notifier,
		Observer:       stages,
		Catalogue:      podcast.DefaultCatalogue(cfg.Podcast.OwnerEmail).Merge(cfg.Podcast.Shows),
		MaxEpisodes:    cfg.Podcast.MaxEpisodes,
		BytesPerSecond: cfg.Podcast.BytesPerSec,
		Logger:         baseLogger,
	})

	driver := scheduler.NewCronScheduler(cron.PrintfLogger(logger.New(baseLogger, "cron")))
	sched := usecase.NewScheduler(driver, pipeline, publisher, usecase.Intervals{
		Scrape:   cfg.Intervals.Scrape,
		Links:    cfg.Intervals.Links,
		Articles: cfg.Intervals.Articles,
		Extract:  cfg.Intervals.Extract,
		Judge:    cfg.Intervals.Judge,
		Generate: cfg.Intervals.Generate,
		Select:   cfg.Intervals.Select,
		Roundup:  cfg.Intervals.Roundup,
		Publish:  cfg.Intervals.Publish,
	}, usecase.Batches{
		Links:    cfg.Batches.Links,
		Articles: cfg.Batches.Articles,
		Extract:  cfg.Batches.Extract,
		Judge:    cfg.Batches.Judge,
		Generate: cfg.Batches.Generate,
		Select:   cfg.Batches.Select,
	})

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		metrics:   stages,
		pipeline:  pipeline,
		publisher: publisher,
		scheduler: sched,
	}, nil
}

// Config returns the loaded configuration.
func (a *Application) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Pipeline exposes the stage runner for one-shot commands.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Publisher exposes the podcast publisher.
func (a *Application) Publisher() *usecase.Publisher { return a.publisher }

// MetricsHandler serves the Prometheus registry.
func (a *Application) MetricsHandler() http.Handler { return a.metrics.Handler() }

// Run starts every scheduled stage and blocks until ctx ends.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.Timeout)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases the database handle.
func (a *Application) Close() error {
	return a.store.Close()
}

func sources(in []config.SourceConfig) []usecase.Source {
	out := make([]usecase.Source, 0, len(in))
	for _, s := range in {
		out = append(out, usecase.Source{Site: s.Site, URL: s.URL, Project: s.Project})
	}
	return out
}

func formatPolicy(bands []config.FormatBand) usecase.FormatPolicy {
	if len(bands) == 0 {
		return usecase.DefaultFormatPolicy()
	}
	out := make([]usecase.FormatBand, 0, len(bands))
	for _, band := range bands {
		var formats []domain.ContentType
		for _, name := range band.Formats {
			if ct, ok := domain.ParseContentType(name); ok {
				formats = append(formats, ct)
			}
		}
		out = append(out, usecase.FormatBand{MinScore: band.MinScore, Formats: formats})
	}
	return usecase.NewFormatPolicy(out)
}

func platforms(in map[string]string) map[domain.ContentType]string {
	out := make(map[domain.ContentType]string, len(in))
	for name, platform := range in {
		if ct, ok := domain.ParseContentType(name); ok {
			out[ct] = platform
		}
	}
	return out
}
