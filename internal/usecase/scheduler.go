package usecase

import (
	"context"
	"time"

	"NewsCast/internal/ports"
)

// Intervals sets each stage's polling period; zero disables the stage.
type Intervals struct {
	Scrape   time.Duration
	Links    time.Duration
	Articles time.Duration
	Extract  time.Duration
	Judge    time.Duration
	Generate time.Duration
	Select   time.Duration
	Roundup  time.Duration
	Publish  time.Duration
}

// Batches bounds the rows each stage takes per poll.
type Batches struct {
	Links    int
	Articles int
	Extract  int
	Judge    int
	Generate int
	Select   int
}

type stageJob struct {
	name  string
	every time.Duration
	run   func(context.Context)
}

// Scheduler wires the interval driver with the pipeline stages.
type Scheduler struct {
	driver    ports.Scheduler
	pipeline  *Pipeline
	publisher *Publisher
	intervals Intervals
	batches   Batches
}

// NewScheduler returns a helper to start/stop recurring stages.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, publisher *Publisher, intervals Intervals, batches Batches) *Scheduler {
	return &Scheduler{
		driver:    driver,
		pipeline:  pipeline,
		publisher: publisher,
		intervals: intervals,
		batches:   batches,
	}
}

// Start registers every enabled stage and starts the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	p := s.pipeline
	jobs := []stageJob{
		{"scrape", s.intervals.Scrape, func(ctx context.Context) { _, _ = p.ScrapeCategories(ctx) }},
		{"links", s.intervals.Links, func(ctx context.Context) { _, _ = p.ExtractLinks(ctx, s.batches.Links) }},
		{"articles", s.intervals.Articles, func(ctx context.Context) { _, _ = p.FetchArticles(ctx, s.batches.Articles) }},
		{"extract", s.intervals.Extract, func(ctx context.Context) { _, _ = p.RunExtraction(ctx, s.batches.Extract) }},
		{"judge", s.intervals.Judge, func(ctx context.Context) { _, _ = p.RunJudging(ctx, s.batches.Judge) }},
		{"generate", s.intervals.Generate, func(ctx context.Context) { _, _ = p.RunGeneration(ctx, s.batches.Generate) }},
		{"select", s.intervals.Select, func(ctx context.Context) { _, _ = p.RunTournament(ctx, "", s.batches.Select) }},
		{"roundup", s.intervals.Roundup, s.roundups},
	}
	if s.publisher != nil {
		jobs = append(jobs, stageJob{"publish", s.intervals.Publish, func(ctx context.Context) { _, _ = s.publisher.PublishAll(ctx, false) }})
	}

	for _, job := range jobs {
		if err := s.driver.Schedule(job.name, job.every, job.run); err != nil {
			return err
		}
	}
	return s.driver.Start(ctx)
}

// roundups assembles one global roundup, or one per project when stories
// are scoped to projects.
func (s *Scheduler) roundups(ctx context.Context) {
	p := s.pipeline
	if !p.roundup.ScopeToProject {
		_, _ = p.AssembleRoundup(ctx, RoundupRequest{})
		return
	}
	projects, err := p.projects.ListProjects(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "list projects for roundup", "error", err)
		return
	}
	if len(projects) == 0 {
		_, _ = p.AssembleRoundup(ctx, RoundupRequest{})
		return
	}
	for _, project := range projects {
		_, _ = p.AssembleRoundup(ctx, RoundupRequest{ProjectID: project.ID})
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
