package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"NewsCast/internal/domain"
	"NewsCast/internal/podcast"
	"NewsCast/internal/ports"
)

const (
	mediaCacheControl = "public, max-age=31536000, immutable"
	feedCacheControl  = "public, max-age=300"
	feedContentType   = "application/rss+xml; charset=utf-8"

	defaultEpisodeTitle       = "Daily Roundup"
	defaultEpisodeDescription = "Daily roundup from OnePlace."
	minEstimatedSeconds       = 60
)

// PublishStatus is the outcome of publishing one project feed.
type PublishStatus string

const (
	StatusOK             PublishStatus = "ok"
	StatusMissingProject PublishStatus = "missing_project"
	StatusMissingMeta    PublishStatus = "missing_meta"
	StatusMissingStorage PublishStatus = "missing_storage"
	StatusNoRoundups     PublishStatus = "no_roundups"
	StatusError          PublishStatus = "error"
)

// PublishResult reports what PublishProject did.
type PublishResult struct {
	ProjectID   string        `json:"project_id"`
	ProjectName string        `json:"project_name,omitempty"`
	Status      PublishStatus `json:"status"`
	RSSURL      string        `json:"rss_url,omitempty"`
	AudioURL    string        `json:"audio_url,omitempty"`
	ImageURL    string        `json:"image_url,omitempty"`
	Episodes    int           `json:"episodes"`
	Error       string        `json:"error,omitempty"`
}

// PublisherDeps wires the podcast publisher.
type PublisherDeps struct {
	Projects       ports.ProjectRepository
	Posts          ports.PostRepository
	Store          ports.ObjectStore
	Audio          ports.AudioRenderer
	Artwork        ports.ArtworkProvider
	Fetcher        ports.Fetcher
	Notifier       ports.Notifier
	Observer       ports.StageObserver
	Catalogue      podcast.Catalogue
	MaxEpisodes    int
	BytesPerSecond int
	Logger         *slog.Logger
	Now            func() time.Time
}

// Publisher turns a project's roundups into an uploaded podcast feed.
type Publisher struct {
	projects       ports.ProjectRepository
	posts          ports.PostRepository
	store          ports.ObjectStore
	audio          ports.AudioRenderer
	artwork        ports.ArtworkProvider
	fetcher        ports.Fetcher
	notifier       ports.Notifier
	observer       ports.StageObserver
	catalogue      podcast.Catalogue
	maxEpisodes    int
	bytesPerSecond int
	logger         *slog.Logger
	now            func() time.Time
}

// localAudio is implemented by renderers that keep episodes on disk.
type localAudio interface {
	Path(postID string) string
}

// NewPublisher constructs the publisher.
func NewPublisher(deps PublisherDeps) *Publisher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	maxEpisodes := deps.MaxEpisodes
	if maxEpisodes <= 0 {
		maxEpisodes = 30
	}
	bps := deps.BytesPerSecond
	if bps <= 0 {
		bps = 16000
	}
	return &Publisher{
		projects:       deps.Projects,
		posts:          deps.Posts,
		store:          deps.Store,
		audio:          deps.Audio,
		artwork:        deps.Artwork,
		fetcher:        deps.Fetcher,
		notifier:       deps.Notifier,
		observer:       deps.Observer,
		catalogue:      deps.Catalogue,
		maxEpisodes:    maxEpisodes,
		bytesPerSecond: bps,
		logger:         logger.With("component", "publisher"),
		now:            now,
	}
}

// PublishAll publishes every project. A failing project is reported in its
// result and does not stop the others.
func (p *Publisher) PublishAll(ctx context.Context, refresh bool) ([]PublishResult, error) {
	start := time.Now()
	projects, err := p.projects.ListProjects(ctx)
	if err != nil {
		err = fmt.Errorf("list projects: %w", err)
		p.observe("publish", start, nil, err)
		return nil, err
	}

	results := make([]PublishResult, 0, len(projects))
	for _, project := range projects {
		res, err := p.PublishProject(ctx, project.ID, refresh)
		if err != nil {
			p.logger.ErrorContext(ctx, "publish project", "project_id", project.ID, "error", err)
			res = PublishResult{ProjectID: project.ID, ProjectName: project.Name, Status: StatusError, Error: err.Error()}
		}
		results = append(results, res)
	}

	p.observe("publish", start, results, nil)
	return results, nil
}

func (p *Publisher) observe(stage string, start time.Time, results []PublishResult, err error) {
	var ok, skipped, failed int
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			ok++
		case StatusError:
			failed++
		default:
			skipped++
		}
	}
	p.logger.Info("publish done", "ok", ok, "skipped", skipped, "failed", failed, "duration", time.Since(start))
	if p.observer != nil {
		p.observer.ObserveStage(stage, ok, skipped, failed, time.Since(start), err)
	}
}

// PublishProject renders, uploads and lists the project's roundups and
// writes its RSS feed. Missing configuration is reported via Status, not as an error.
func (p *Publisher) PublishProject(ctx context.Context, projectID string, refresh bool) (PublishResult, error) {
	res := PublishResult{ProjectID: projectID}

	project, err := p.projects.GetProject(ctx, projectID)
	if errors.Is(err, domain.ErrNotFound) {
		res.Status = StatusMissingProject
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("load project %s: %w", projectID, err)
	}
	res.ProjectName = project.Name

	meta, ok := p.catalogue.Lookup(project.Name)
	if !ok {
		res.Status = StatusMissingMeta
		res.Error = "no podcast metadata configured for project"
		return res, nil
	}
	if p.store == nil {
		res.Status = StatusMissingStorage
		res.Error = "object storage is not configured"
		return res, nil
	}

	roundups, err := p.posts.ListProjectRoundups(ctx, projectID, p.maxEpisodes)
	if err != nil {
		return res, fmt.Errorf("list roundups of %s: %w", projectID, err)
	}
	if len(roundups) == 0 {
		res.Status = StatusNoRoundups
		return res, nil
	}

	slug := podcast.Slugify(project.Name)
	res.ImageURL = p.publishArtwork(ctx, project, slug)

	episodes := make([]podcast.Episode, 0, len(roundups))
	for _, post := range roundups {
		ep, err := p.episode(ctx, post, slug, refresh)
		if err != nil {
			p.logger.WarnContext(ctx, "skip episode", "project_id", projectID, "post_id", post.ID, "error", err)
			continue
		}
		episodes = append(episodes, ep)
	}

	rssKey := "podcasts/" + slug + "/rss.xml"
	res.RSSURL = p.store.PublicURL(rssKey)
	feed, err := podcast.BuildRSS(meta, podcast.Channel{FeedURL: res.RSSURL, ImageURL: res.ImageURL}, episodes)
	if err != nil {
		return res, fmt.Errorf("build feed: %w", err)
	}
	if _, err := p.store.Upload(ctx, rssKey, bytes.NewReader(feed), int64(len(feed)), feedContentType, feedCacheControl); err != nil {
		return res, fmt.Errorf("upload feed: %w", err)
	}

	res.Status = StatusOK
	res.Episodes = len(episodes)
	if latest, ok := newest(episodes); ok {
		res.AudioURL = latest.AudioURL
	}

	if p.notifier != nil {
		msg := fmt.Sprintf("%s: %d episodes\n%s", meta.Title, res.Episodes, res.RSSURL)
		if err := p.notifier.Announce(ctx, msg); err != nil {
			p.logger.WarnContext(ctx, "announce feed", "project_id", projectID, "error", err)
		}
	}
	return res, nil
}

// publishArtwork uploads the project cover; without one the feed points at
// the cover's stable key.
func (p *Publisher) publishArtwork(ctx context.Context, project domain.Project, slug string) string {
	key := "podcasts/" + slug + "/artwork.png"
	if p.artwork == nil {
		return p.store.PublicURL(key)
	}

	path, err := p.artwork.Artwork(ctx, project.ID, project.PodcastImagePrompt)
	if err != nil {
		p.logger.DebugContext(ctx, "artwork unavailable", "project_id", project.ID, "error", err)
		return p.store.PublicURL(key)
	}
	url, err := p.uploadFile(ctx, path, key, "image/png")
	if err != nil {
		p.logger.WarnContext(ctx, "upload artwork", "project_id", project.ID, "error", err)
		return p.store.PublicURL(key)
	}
	return url
}

func (p *Publisher) episode(ctx context.Context, post domain.Post, slug string, refresh bool) (podcast.Episode, error) {
	var dialogue domain.Dialogue
	if payload, err := post.Payload(); err == nil && payload.Dialogue != nil {
		dialogue = *payload.Dialogue
	}

	audioKey := fmt.Sprintf("podcasts/%s/episodes/%s.mp3", slug, post.ID)
	audioURL := ""
	if post.PodcastURL != nil {
		audioURL = *post.PodcastURL
	}
	publishedAt := post.CreatedAt
	if post.PodcastPublishedAt != nil {
		publishedAt = *post.PodcastPublishedAt
	}

	localPath := ""
	if refresh || audioURL == "" {
		if p.audio == nil {
			return podcast.Episode{}, fmt.Errorf("no audio renderer: %w", domain.ErrMisconfigured)
		}
		path, err := p.audio.Render(ctx, post.ID, dialogue)
		if err != nil {
			return podcast.Episode{}, fmt.Errorf("render audio: %w", err)
		}
		url, err := p.uploadFile(ctx, path, audioKey, "audio/mpeg")
		if err != nil {
			return podcast.Episode{}, err
		}
		if post.PodcastPublishedAt == nil {
			publishedAt = p.now().UTC()
		}
		if err := p.posts.MarkPodcastPublished(ctx, post.ID, url, publishedAt); err != nil {
			p.logger.ErrorContext(ctx, "store episode url", "post_id", post.ID, "error", err)
		}
		audioURL = url
		localPath = path
	}
	if audioURL == "" {
		audioURL = p.store.PublicURL(audioKey)
	}
	if localPath == "" {
		if cache, ok := p.audio.(localAudio); ok {
			localPath = cache.Path(post.ID)
		}
	}

	var localSize int64
	if localPath != "" {
		if info, err := os.Stat(localPath); err == nil {
			localSize = info.Size()
		}
	}

	duration := dialogue.DurationSeconds
	if duration <= 0 && localSize > 0 {
		duration = max(minEstimatedSeconds, int(localSize)/p.bytesPerSecond)
	}

	length := localSize
	if length <= 0 && p.fetcher != nil {
		if n, err := p.fetcher.ContentLength(ctx, audioURL); err == nil {
			length = n
		}
	}
	if length <= 0 {
		length = int64(duration) * int64(p.bytesPerSecond)
	}

	return podcast.Episode{
		Title:           firstNonEmpty(dialogue.Title, defaultEpisodeTitle),
		Description:     firstNonEmpty(dialogue.Description, defaultEpisodeDescription),
		GUID:            post.ID,
		AudioURL:        audioURL,
		AudioLength:     length,
		DurationSeconds: duration,
		PublishedAt:     publishedAt,
	}, nil
}

func (p *Publisher) uploadFile(ctx context.Context, path, key, contentType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	url, err := p.store.Upload(ctx, key, f, info.Size(), contentType, mediaCacheControl)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return url, nil
}

func newest(episodes []podcast.Episode) (podcast.Episode, bool) {
	if len(episodes) == 0 {
		return podcast.Episode{}, false
	}
	latest := episodes[0]
	for _, ep := range episodes[1:] {
		if ep.PublishedAt.After(latest.PublishedAt) {
			latest = ep
		}
	}
	return latest, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
